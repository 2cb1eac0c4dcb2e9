package domain

import (
	"errors"
	"fmt"
)

// Domain errors are recoverable at the boundary: the caller shows the
// message and retries.
var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrTableAlreadyOpen     = errors.New("table already has an open order")
	ErrTableOutOfRange      = errors.New("table number out of range")
	ErrOrderNotOpen         = errors.New("order not found or already paid")
	ErrSessionAlreadyActive = errors.New("a day session is already active")
	ErrNoActiveSession      = errors.New("day is not started")
	ErrTablesStillOpen      = errors.New("all tables must be settled before closing the day")
	ErrEmptyDay             = errors.New("no paid orders in the current session")
	ErrDuplicateClosing     = errors.New("a closing already exists for this date")
	ErrNoOrdersFound        = errors.New("no orders found for this date")
	ErrStaffHasOrders       = errors.New("cannot delete staff member with existing orders")
)

// InsufficientStockError reports which product ran short. It matches
// ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
