package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/pkg/logger"
)

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingKV) Set(context.Context, string, []byte) error   { return f.err }

func sampleLines() []cart.Line {
	return []cart.Line{
		{ID: "sku1", Name: "Widget", Price: decimal.RequireFromString("10.00"), Quantity: 2, CartQuantity: 2},
		{ID: "sku2", Name: "Gadget", Price: decimal.RequireFromString("0.99"), Quantity: 5, CartQuantity: 0},
	}
}

func assertLinesEqual(t *testing.T, want, got []cart.Line) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].CartQuantity, got[i].CartQuantity)
		assert.True(t, want[i].Price.Equal(got[i].Price), "price %s != %s", want[i].Price, got[i].Price)
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	backends := map[string]func(t *testing.T) KV{
		"memory": func(t *testing.T) KV { return NewMemoryKV() },
		"file": func(t *testing.T) KV {
			kv, err := NewFileKV(t.TempDir())
			require.NoError(t, err)
			return kv
		},
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			a := NewAdapter(mk(t), "storefront", logger.Discard())
			repo := a.ForShopper("shopper-1")
			ctx := context.Background()

			require.NoError(t, repo.Save(ctx, sampleLines()))
			assertLinesEqual(t, sampleLines(), repo.Load(ctx))

			require.NoError(t, repo.Save(ctx, nil))
			got := repo.Load(ctx)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestAdapter_DocumentShape(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, "shop", logger.Discard())

	require.NoError(t, a.ForShopper("abc").Save(context.Background(), []cart.Line{}))

	raw, err := kv.Get(context.Background(), "shop:cart:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cart":[]}`, string(raw))
}

func TestAdapter_ShoppersAreIsolated(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), "storefront", logger.Discard())
	ctx := context.Background()

	require.NoError(t, a.ForShopper("one").Save(ctx, sampleLines()))

	assert.Empty(t, a.ForShopper("two").Load(ctx))
	assert.Len(t, a.ForShopper("one").Load(ctx), 2)
}

func TestAdapter_LoadNeverFails(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{cart: nope`},
		{"wrong shape", `{"cart": {"id": "a"}}`},
		{"null cart", `{"cart": null}`},
		{"over stock", `{"cart":[{"id":"a","name":"A","price":"1","quantity":1,"cart_quantity":3}]}`},
		{"duplicate ids", `{"cart":[{"id":"a","price":"1","quantity":1,"cart_quantity":1},{"id":"a","price":"1","quantity":1,"cart_quantity":1}]}`},
		{"negative price", `{"cart":[{"id":"a","price":"-1","quantity":1,"cart_quantity":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV()
			a := NewAdapter(kv, "storefront", logger.Discard())
			require.NoError(t, kv.Set(context.Background(), a.Key("s"), []byte(tt.raw)))

			got := a.ForShopper("s").Load(context.Background())
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestAdapter_BackendErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	a := NewAdapter(failingKV{err: boom}, "storefront", logger.Discard())
	repo := a.ForShopper("s")

	assert.Empty(t, repo.Load(context.Background()))
	assert.ErrorIs(t, repo.Save(context.Background(), sampleLines()), boom)
}

func TestAdapter_NumericIDsAndPrices(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, "storefront", logger.Discard())
	raw := `{"cart":[{"id":17,"name":"Legacy","price":4.5,"quantity":3,"cart_quantity":1}]}`
	require.NoError(t, kv.Set(context.Background(), a.Key("s"), []byte(raw)))

	got := a.ForShopper("s").Load(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, "17", string(got[0].ID))
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("4.5")))
}

func TestFileKV_MissingKey(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	_, err = kv.Get(context.Background(), "nothing:here")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKV_CancelledContext(t *testing.T) {
	kv := NewMemoryKV()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, kv.Set(ctx, "k", []byte("v")), context.Canceled)
}
