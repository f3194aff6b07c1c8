package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/pkg/logger"
)

type memRepo struct {
	mu    sync.Mutex
	saved [][]Line
	load  []Line
}

func (r *memRepo) Save(_ context.Context, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, lines)
	return nil
}

func (r *memRepo) Load(context.Context) []Line {
	return r.load
}

func (r *memRepo) last() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil
	}
	return r.saved[len(r.saved)-1]
}

type countingObserver struct {
	mu      sync.Mutex
	changed int
	cleared int
}

func (o *countingObserver) CartChanged() { o.mu.Lock(); o.changed++; o.mu.Unlock() }
func (o *countingObserver) CartCleared() { o.mu.Lock(); o.cleared++; o.mu.Unlock() }

func newTestStore(t *testing.T) (*Store, *memRepo) {
	t.Helper()
	repo := &memRepo{}
	return NewStore(repo, logger.Discard()), repo
}

func prod(id, price string, stock, desired int) catalog.Product {
	return catalog.Product{
		ID:              catalog.ProductID(id),
		Name:            "Product " + id,
		Price:           decimal.RequireFromString(price),
		Quantity:        stock,
		DesiredQuantity: desired,
	}
}

func TestAddToCart_NewLine(t *testing.T) {
	s, repo := newTestStore(t)

	line := s.AddToCart(context.Background(), prod("sku1", "10.00", 2, 2))

	assert.Equal(t, 2, line.CartQuantity)
	totals := s.Totals()
	assert.Equal(t, 2, totals.Size)
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("20")), "total %s", totals.Total)

	saved := repo.last()
	require.Len(t, saved, 1)
	assert.Equal(t, catalog.ProductID("sku1"), saved[0].ID)
	assert.Equal(t, 2, saved[0].CartQuantity)
}

func TestAddToCart_MergesAndClamps(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddToCart(ctx, prod("sku1", "10.00", 3, 2))
	line := s.AddToCart(ctx, prod("sku1", "10.00", 3, 2))

	assert.Equal(t, 3, line.CartQuantity)
	require.Len(t, s.Lines(), 1)
	assert.Equal(t, 3, s.Totals().Size)
}

func TestAddToCart_MergeRefreshesSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AddToCart(ctx, prod("sku1", "10.00", 5, 4))
	line := s.AddToCart(ctx, prod("sku1", "12.50", 2, 1))

	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 2, line.CartQuantity, "reclamped to the newer stock snapshot")
	assert.True(t, line.Price.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, s.Totals().Total.Equal(decimal.RequireFromString("25")))
}

func TestAddToCart_ZeroDesiredKeepsLine(t *testing.T) {
	s, _ := newTestStore(t)

	s.AddToCart(context.Background(), prod("sku1", "1", 0, 0))

	require.Len(t, s.Lines(), 1)
	assert.False(t, s.HasItems())
}

func TestAdjustCartQuantity(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()
	s.AddToCart(ctx, prod("a", "2.50", 4, 1))
	s.AddToCart(ctx, prod("b", "1.00", 1, 1))

	line, err := s.AdjustCartQuantity(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, 4, line.CartQuantity)
	assert.Equal(t, 5, s.Totals().Size)
	assert.True(t, s.Totals().Total.Equal(decimal.RequireFromString("11")))

	line, err = s.AdjustCartQuantity(ctx, "a", -100)
	require.NoError(t, err)
	assert.Equal(t, 0, line.CartQuantity)
	assert.Len(t, s.Lines(), 2, "zero-quantity lines stay in the cart")
	assert.Equal(t, 1, s.Totals().Size)
	assert.Len(t, repo.last(), 2)

	_, err = s.AdjustCartQuantity(ctx, "missing", 1)
	assert.True(t, IsLineNotFound(err))
}

func TestTotals_TrackLinesThroughEveryMutation(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	s.AddToCart(ctx, prod("a", "0.10", 10, 3))
	s.AddToCart(ctx, prod("b", "0.20", 10, 7))
	assert.Equal(t, Fold(s.Lines()), s.Totals())
	assert.True(t, s.Totals().Total.Equal(decimal.RequireFromString("1.70")))
	assert.Equal(t, s.Lines(), repo.last())

	_, err := s.AdjustCartQuantity(ctx, "b", -5)
	require.NoError(t, err)
	assert.Equal(t, Fold(s.Lines()), s.Totals())
	assert.Equal(t, s.Lines(), repo.last())

	s.Clear(ctx)
	assert.Equal(t, Totals{Size: 0, Total: decimal.Zero}, s.Totals())
	assert.Empty(t, repo.last())
}

func TestRestore(t *testing.T) {
	s, repo := newTestStore(t)
	repo.load = []Line{
		{ID: "a", Name: "A", Price: decimal.RequireFromString("3"), Quantity: 5, CartQuantity: 2},
		{ID: "b", Name: "B", Price: decimal.RequireFromString("1.5"), Quantity: 1, CartQuantity: 1},
	}
	obs := &countingObserver{}
	s.AddObserver(obs)

	s.Restore(context.Background())

	assert.Len(t, s.Lines(), 2)
	assert.Equal(t, 3, s.Totals().Size)
	assert.True(t, s.Totals().Total.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, 1, obs.changed)
	assert.Empty(t, repo.saved, "restore does not write back")
}

func TestRestore_NilYieldsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	s.Restore(context.Background())

	assert.NotNil(t, s.Lines())
	assert.Empty(t, s.Lines())
	assert.True(t, s.Totals().Total.IsZero())
}

func TestClear(t *testing.T) {
	s, repo := newTestStore(t)
	obs := &countingObserver{}
	s.AddObserver(obs)
	s.AddToCart(context.Background(), prod("a", "1", 1, 1))

	s.Clear(context.Background())

	assert.Empty(t, s.Lines())
	assert.Equal(t, 0, s.Totals().Size)
	assert.NotNil(t, repo.last())
	assert.Empty(t, repo.last())
	assert.Equal(t, 1, obs.changed)
	assert.Equal(t, 1, obs.cleared)
}

func TestSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddToCart(context.Background(), prod("sku1", "10", 2, 2))

	snap := s.Snapshot()

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 0, snap.Lines[0].Index)
	assert.Equal(t, "$10.00", snap.Lines[0].FormattedPrice)
	assert.Equal(t, "$20.00", snap.Lines[0].FormattedSubtotal)
	assert.Equal(t, "$20.00", snap.FormattedTotal)
	assert.Equal(t, 2, snap.Size)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.AddToCart(ctx, prod("a", "1", 1000, 0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.AddToCart(ctx, prod("a", "1", 1000, 1))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.AdjustCartQuantity(ctx, "a", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Totals().Size)
	assert.Equal(t, Fold(s.Lines()), s.Totals())
}

func TestValidateLines(t *testing.T) {
	ok := []Line{{ID: "a", Price: decimal.NewFromInt(1), Quantity: 2, CartQuantity: 2}}
	assert.NoError(t, ValidateLines(ok))
	assert.NoError(t, ValidateLines(nil))

	bad := map[string][]Line{
		"empty id":       {{ID: "", Quantity: 1}},
		"duplicate":      {{ID: "a", Quantity: 1}, {ID: "a", Quantity: 1}},
		"over stock":     {{ID: "a", Quantity: 1, CartQuantity: 2}},
		"negative qty":   {{ID: "a", Quantity: 1, CartQuantity: -1}},
		"negative snap":  {{ID: "a", Quantity: -1}},
		"negative price": {{ID: "a", Quantity: 1, Price: decimal.NewFromInt(-1)}},
	}
	for name, lines := range bad {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateLines(lines), &InvalidLineError{})
		})
	}
}
