package repository

import (
	"context"

	"github.com/shopmicro/shopmicro/internal/product/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Category  *string
	Search    *string
	Available bool
	MinPrice  *int64
	MaxPrice  *int64
	Page      int
	PerPage   int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product and assigns its generated ID.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// List returns products matching the given filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// UpdateStock sets the stock quantity of a product.
	UpdateStock(ctx context.Context, id int64, quantity int) (*domain.Product, error)

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id int64) error
}
