package client

// ProductSnapshot is the result of a catalog lookup: a denormalized copy of
// the product's state at lookup time. Price is in minor currency units
// (cents). It is never persisted as its own entity; the order workflow copies
// its fields into line items.
type ProductSnapshot struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
}

// FallbackProductName is the sentinel name of the snapshot returned when the
// catalog dependency is unusable.
const FallbackProductName = "Product Unavailable"

// FallbackSnapshot returns the sentinel snapshot for a product whose catalog
// lookup terminally failed: zero price, zero stock. The workflow treats it as
// insufficient stock.
func FallbackSnapshot(productID int64) *ProductSnapshot {
	return &ProductSnapshot{
		ID:            productID,
		Name:          FallbackProductName,
		Price:         0,
		StockQuantity: 0,
	}
}

// IsFallback reports whether the snapshot is the sentinel produced by
// FallbackSnapshot.
func (s *ProductSnapshot) IsFallback() bool {
	return s.Name == FallbackProductName && s.Price == 0 && s.StockQuantity == 0
}
