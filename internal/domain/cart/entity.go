// internal/domain/cart/entity.go
package cart

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/catalog"
)

// Line is one cart entry. Quantity is the stock snapshot taken the last
// time the product was added, CartQuantity never exceeds it.
type Line struct {
	ID           catalog.ProductID `json:"id"`
	Name         string            `json:"name"`
	Price        decimal.Decimal   `json:"price"`
	Quantity     int               `json:"quantity"`
	CartQuantity int               `json:"cart_quantity"`
}

// Subtotal returns CartQuantity × Price
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.CartQuantity)))
}

// Totals are derived from the lines and never stored independently
type Totals struct {
	Size  int             `json:"cart_size"`
	Total decimal.Decimal `json:"cart_total"`
}

// Fold computes totals from scratch
func Fold(lines []Line) Totals {
	t := Totals{Total: decimal.Zero}
	for _, l := range lines {
		t.Size += l.CartQuantity
		t.Total = t.Total.Add(l.Subtotal())
	}
	return t
}

// LineView is a line annotated for display
type LineView struct {
	Index             int    `json:"index"`
	Line              Line   `json:"line"`
	FormattedPrice    string `json:"formatted_price"`
	FormattedSubtotal string `json:"formatted_subtotal"`
}

// Snapshot is a read-only copy of the cart
type Snapshot struct {
	Lines          []LineView      `json:"lines"`
	Size           int             `json:"cart_size"`
	Total          decimal.Decimal `json:"cart_total"`
	FormattedTotal string          `json:"formatted_total"`
}

// Repository mirrors the cart lines to durable storage.
// Load never fails: anything unreadable yields an empty cart.
type Repository interface {
	Save(ctx context.Context, lines []Line) error
	Load(ctx context.Context) []Line
}

// Observer is notified after cart mutations, outside the store lock
type Observer interface {
	CartChanged()
	CartCleared()
}
