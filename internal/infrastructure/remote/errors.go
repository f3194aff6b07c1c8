package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers connection failures and cancelled requests
	ErrTransport = errors.New("remote service unreachable")
	// ErrTimeout is returned when a call exceeds the configured timeout
	ErrTimeout = errors.New("remote service timed out")
	// ErrUnavailable is returned while the circuit breaker is open
	ErrUnavailable = errors.New("remote service temporarily unavailable")
	// ErrMalformedResponse is returned when a reply cannot be decoded
	ErrMalformedResponse = errors.New("malformed response from remote service")
)

// StatusError is returned for replies with an error status code
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface for StatusError
func (e *StatusError) Error() string {
	return fmt.Sprintf("remote service returned status %d: %s", e.Code, e.Body)
}

// Is allows proper error type checking with errors.Is()
func (e *StatusError) Is(target error) bool {
	_, ok := target.(*StatusError)
	return ok
}

// IsServerError reports whether err is a 5xx StatusError
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500
}
