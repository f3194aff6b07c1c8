// Package requestid carries the per-request correlation id through contexts.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header used to propagate the id
const Header = "X-Request-ID"

type key struct{}

// With attaches id to ctx
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// From returns the id carried by ctx, or an empty string
func From(ctx context.Context) string {
	id, _ := ctx.Value(key{}).(string)
	return id
}

// New generates a fresh id
func New() string {
	return uuid.New().String()
}
