package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-orchestrator/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, amount, status, trace_id)
	VALUES ($1, $2, $3, $4)`

	// The status guard keeps a terminal row from ever moving backward or
	// sideways: only a pending order can be finalized.
	updateOrderStatusSQL = `UPDATE orders SET status = $1
	WHERE id = $2 AND status = 'pending'`

	getOrderSQL = `SELECT id, amount, status, trace_id, created_at
	FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order row. CreatedAt is assigned by the database.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Amount, string(o.Status), o.TraceID,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.ID)
	}
	return nil
}

// UpdateStatus finalizes a pending order. Updating a row that is already
// terminal (or absent) affects zero rows and is not an error: the write is
// best-effort by contract and terminal statuses never regress.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	_, err := r.pool.Exec(ctx, updateOrderStatusSQL, string(status), id)
	if err != nil {
		return errors.Wrapf(err, "updating order %q status", id)
	}
	return nil
}

// GetByID returns a single order by primary key.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.Amount, &o.Status, &o.TraceID, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}
	return &o, nil
}
