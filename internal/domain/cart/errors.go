package cart

import (
	"errors"
	"fmt"

	"github.com/your-org/storefront/internal/domain/catalog"
)

// LineNotFoundError is returned when no cart line has the given product id
type LineNotFoundError struct {
	ProductID catalog.ProductID
}

// Error implements the error interface for LineNotFoundError
func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("cart line not found: id=%s", e.ProductID)
}

// Is allows proper error type checking with errors.Is()
func (e *LineNotFoundError) Is(target error) bool {
	_, ok := target.(*LineNotFoundError)
	return ok
}

// InvalidLineError describes a line that breaks the cart invariants
type InvalidLineError struct {
	ProductID catalog.ProductID
	Reason    string
}

// Error implements the error interface for InvalidLineError
func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid cart line: id=%s, reason=%s", e.ProductID, e.Reason)
}

// Is allows proper error type checking with errors.Is()
func (e *InvalidLineError) Is(target error) bool {
	_, ok := target.(*InvalidLineError)
	return ok
}

// NewLineNotFoundError creates a new LineNotFoundError
func NewLineNotFoundError(id catalog.ProductID) error {
	return &LineNotFoundError{ProductID: id}
}

// IsLineNotFound reports whether err is a LineNotFoundError
func IsLineNotFound(err error) bool {
	var target *LineNotFoundError
	return errors.As(err, &target)
}

// ValidateLines checks lines read from outside the store: ids present and
// unique, quantities within range, prices non-negative.
func ValidateLines(lines []Line) error {
	seen := make(map[catalog.ProductID]struct{}, len(lines))
	for _, l := range lines {
		switch {
		case l.ID == "":
			return &InvalidLineError{Reason: "empty id"}
		case l.Quantity < 0:
			return &InvalidLineError{ProductID: l.ID, Reason: "negative stock snapshot"}
		case l.CartQuantity < 0 || l.CartQuantity > l.Quantity:
			return &InvalidLineError{ProductID: l.ID, Reason: "cart quantity outside [0, quantity]"}
		case l.Price.IsNegative():
			return &InvalidLineError{ProductID: l.ID, Reason: "negative price"}
		}
		if _, dup := seen[l.ID]; dup {
			return &InvalidLineError{ProductID: l.ID, Reason: "duplicate id"}
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}
