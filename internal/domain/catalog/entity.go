// internal/domain/catalog/entity.go
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductID is the opaque product identifier used by the remote services.
// It decodes from either a JSON string or a JSON number.
type ProductID string

// UnmarshalJSON accepts "sku1" as well as 17
func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

// Product is one catalog item as reported by the product service
type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"` // stock snapshot at fetch time
	// DesiredQuantity is the shopper's pending selection, never sent anywhere
	DesiredQuantity int `json:"desired_quantity"`
}

// ListedProduct is a product annotated for display
type ListedProduct struct {
	Index          int     `json:"index"`
	FormattedPrice string  `json:"formatted_price"`
	Product        Product `json:"product"`
}

// Listing is the result of one catalog fetch
type Listing struct {
	Query string          `json:"query"`
	Items []ListedProduct `json:"items"`
}

// Len returns the number of listed products
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// At returns the listed product at index i for in-place updates
func (l *Listing) At(i int) (*ListedProduct, error) {
	if i < 0 || i >= l.Len() {
		return nil, NewIndexOutOfRangeError(i, l.Len())
	}
	return &l.Items[i], nil
}

// Clone returns a deep copy safe to hand to another goroutine
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	out := &Listing{Query: l.Query, Items: make([]ListedProduct, len(l.Items))}
	copy(out.Items, l.Items)
	return out
}

// FormatPrice renders a price for display, e.g. $10.00
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
