package auth

import "context"

type shopperKey struct{}

// WithShopperID attaches the shopper identity to ctx
func WithShopperID(ctx context.Context, shopperID string) context.Context {
	return context.WithValue(ctx, shopperKey{}, shopperID)
}

// ShopperIDFromContext returns the shopper identity carried by ctx
func ShopperIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(shopperKey{}).(string)
	return id, ok && id != ""
}
