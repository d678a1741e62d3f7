package order

import (
	"context"
	"time"
)

// Status is the lifecycle state of an order. Every order is inserted as
// StatusPending and transitions exactly once to a terminal status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status is final. Terminal statuses are never
// overwritten.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Order represents one transaction attempt.
type Order struct {
	ID        string
	Amount    int64
	Status    Status
	TraceID   string
	CreatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts a new order. Callers always insert with StatusPending;
	// CreatedAt is assigned by the store.
	Create(ctx context.Context, order *Order) error
	// UpdateStatus moves a pending order to a terminal status. A row that is
	// already terminal is left untouched.
	UpdateStatus(ctx context.Context, id string, status Status) error
	// GetByID returns the order with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
}
