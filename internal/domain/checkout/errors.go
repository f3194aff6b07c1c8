package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart is returned when checkout is requested with nothing to buy
	ErrEmptyCart = errors.New("cart is empty")
	// ErrFulfillmentRequired is returned when pay is requested before name and address are known
	ErrFulfillmentRequired = errors.New("fulfillment name and address are required")
)

// IllegalTransitionError is returned when an action is not allowed in the current state
type IllegalTransitionError struct {
	From   State
	Action string
}

// Error implements the error interface for IllegalTransitionError
func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal checkout transition: %s is not allowed while %s", e.Action, e.From)
}

// Is allows proper error type checking with errors.Is()
func (e *IllegalTransitionError) Is(target error) bool {
	_, ok := target.(*IllegalTransitionError)
	return ok
}

// NewIllegalTransitionError creates a new IllegalTransitionError
func NewIllegalTransitionError(from State, action string) error {
	return &IllegalTransitionError{From: from, Action: action}
}

// IsIllegalTransition reports whether err is an IllegalTransitionError
func IsIllegalTransition(err error) bool {
	var target *IllegalTransitionError
	return errors.As(err, &target)
}
