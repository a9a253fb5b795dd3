package domain

// Quantity bounds for a single line item.
const (
	MinItemQuantity = 1
	MaxItemQuantity = 100
)

// OrderItem represents a line item in an order. ProductName and UnitPrice are
// snapshots taken from the catalog at order-creation time; later catalog
// changes never affect persisted orders.
type OrderItem struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// ValidQuantity reports whether the quantity is within the allowed bounds.
func ValidQuantity(quantity int) bool {
	return quantity >= MinItemQuantity && quantity <= MaxItemQuantity
}
