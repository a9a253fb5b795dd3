package domain

import (
	"time"
)

// Product represents a product in the catalog. Price is stored in minor
// currency units (cents).
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InStock reports whether the product has any units available.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// HasStock reports whether the product can satisfy the requested quantity.
func (p *Product) HasStock(quantity int) bool {
	return p.StockQuantity >= quantity
}
