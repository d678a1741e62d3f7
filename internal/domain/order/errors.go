package order

import "fmt"

// Sentinel errors for order placement and lookup.
var (
	ErrInvalidAmount = fmt.Errorf("amount must be greater than 0")
	ErrNotFound      = fmt.Errorf("order not found")
)

// StoreError indicates the initial pending insert failed. No downstream calls
// were made and no order identity is surfaced to the caller.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
