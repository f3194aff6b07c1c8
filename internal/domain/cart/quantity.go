package cart

import (
	"math"

	"github.com/your-org/storefront/internal/domain/catalog"
)

// clampAdd returns current+delta bounded to [0, ceiling].
// The addition saturates instead of wrapping.
func clampAdd(current, delta, ceiling int) int {
	if ceiling < 0 {
		ceiling = 0
	}

	var next int
	switch {
	case delta > 0 && current > math.MaxInt-delta:
		next = math.MaxInt
	case delta < 0 && current < math.MinInt-delta:
		next = math.MinInt
	default:
		next = current + delta
	}

	if next < 0 {
		return 0
	}
	if next > ceiling {
		return ceiling
	}
	return next
}

// AdjustDesiredQuantity moves the pending selection on a listed product,
// bounded by its stock snapshot, and returns the new value.
func AdjustDesiredQuantity(p *catalog.Product, delta int) int {
	p.DesiredQuantity = clampAdd(p.DesiredQuantity, delta, p.Quantity)
	return p.DesiredQuantity
}
