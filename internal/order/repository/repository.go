package repository

import (
	"context"

	"github.com/shopmicro/shopmicro/internal/order/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	CustomerEmail *string
	Status        *string
	Page          int
	PerPage       int
}

// OrderRepository defines the interface for order persistence operations.
// Create persists the order and all of its items in a single transaction;
// a failure leaves no partial state.
type OrderRepository interface {
	// Create inserts a new order and its items atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its ID, eagerly loading its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the given filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus changes the status of an order.
	UpdateStatus(ctx context.Context, id string, status string) error

	// Delete removes an order and its items.
	Delete(ctx context.Context, id string) error
}
