// internal/domain/storefront/entity.go
package storefront

import (
	"errors"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
)

// View is the screen the shopper is looking at
type View string

const (
	ViewProducts View = "products"
	ViewCart     View = "cart"
	// ViewPay and ViewRedirect are derived from the checkout state
	ViewPay      View = "pay"
	ViewRedirect View = "redirect"
)

// ErrUnknownView is returned when a presentation asks for a view that cannot be selected directly
var ErrUnknownView = errors.New("unknown view")

// ParseView accepts the views a shopper can switch to
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewProducts, ViewCart:
		return View(s), nil
	}
	return "", ErrUnknownView
}

// Snapshot is the complete shopper-visible state
type Snapshot struct {
	Version      uint64           `json:"version"`
	ShopperID    string           `json:"shopper_id"`
	View         View             `json:"view"`
	Search       string           `json:"search"`
	Listing      *catalog.Listing `json:"listing"`
	CatalogError string           `json:"catalog_error,omitempty"`
	Cart         cart.Snapshot    `json:"cart"`
	Checkout     checkout.Status  `json:"checkout"`
	Flash        string           `json:"flash,omitempty"`
	RedirectURL  string           `json:"redirect_url,omitempty"`
}
