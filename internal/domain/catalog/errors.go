package catalog

import (
	"errors"
	"fmt"
)

// IndexOutOfRangeError is returned when a display index does not address a listed product
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

// Error implements the error interface for IndexOutOfRangeError
func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("product index out of range: index=%d, listed=%d", e.Index, e.Len)
}

// Is allows proper error type checking with errors.Is()
func (e *IndexOutOfRangeError) Is(target error) bool {
	_, ok := target.(*IndexOutOfRangeError)
	return ok
}

// NewIndexOutOfRangeError creates a new IndexOutOfRangeError
func NewIndexOutOfRangeError(index, n int) error {
	return &IndexOutOfRangeError{Index: index, Len: n}
}

// IsIndexOutOfRange reports whether err is an IndexOutOfRangeError
func IsIndexOutOfRange(err error) bool {
	var target *IndexOutOfRangeError
	return errors.As(err, &target)
}
