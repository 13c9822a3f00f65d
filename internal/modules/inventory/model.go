// Inventory tracks per-product stock. Stock is reserved when an order is
// confirmed, not when it is placed: pending orders can still be cancelled
// freely without touching counts.
package inventory

import "wasla/internal/types"

type Product struct {
	ID        types.ID
	Name      string
	NameAr    string
	Price     types.Money
	Stock     int
	Threshold int
}

// StockLevel is the post-decrement view of one product.
type StockLevel struct {
	ProductID types.ID
	Name      string
	Remaining int
	Threshold int
}

// CrossedThreshold reports whether this decrement moved the product from
// above its threshold to at-or-below it. Products already below threshold
// do not re-fire.
func (l StockLevel) CrossedThreshold(decremented int) bool {
	return l.Remaining+decremented > l.Threshold && l.Remaining <= l.Threshold
}
