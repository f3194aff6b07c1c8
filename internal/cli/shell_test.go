package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/storefront"
	"github.com/your-org/storefront/internal/infrastructure/persistence"
	"github.com/your-org/storefront/internal/pkg/logger"
)

type stubServices struct {
	verdict bool
}

func (s *stubServices) ListProducts(_ context.Context, _ string) ([]catalog.Product, error) {
	return []catalog.Product{
		{ID: "sku1", Name: "Widget", Price: decimal.RequireFromString("10"), Quantity: 3},
		{ID: "sku2", Name: "Gadget", Price: decimal.RequireFromString("2.5"), Quantity: 0},
	}, nil
}

func (s *stubServices) VerifyStock(_ context.Context, _ checkout.CheckoutRequest) (checkout.Verdict, error) {
	return checkout.Verdict{OK: s.verdict}, nil
}

func (s *stubServices) CreatePaymentSession(_ context.Context, _ checkout.PayRequest) (checkout.SessionResult, error) {
	return checkout.SessionResult{OK: true, SessionID: "sess_9"}, nil
}

func newShellService(t *testing.T, verdict bool) *storefront.Service {
	t.Helper()
	log := logger.Discard()
	stub := &stubServices{verdict: verdict}
	adapter := persistence.NewAdapter(persistence.NewMemoryKV(), "test", log)
	svc := storefront.NewService("shell", adapter.ForShopper("shell"), storefront.Dependencies{
		Catalog: catalog.NewService(stub, log),
		Orders:  stub,
		Gateway: config.GatewayConfig{RedirectURLTemplate: "https://pay.example/{session_id}"},
	}, log)
	svc.Init(context.Background(), false)
	return svc
}

func run(t *testing.T, svc *storefront.Service, line string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	quit, err := runShellLine(context.Background(), svc, &out, line)
	assert.False(t, quit)
	return out.String(), err
}

func TestShell_PurchaseFlow(t *testing.T) {
	svc := newShellService(t, true)

	out, err := run(t, svc, "products")
	require.NoError(t, err)
	assert.Contains(t, out, "[0] Widget")
	assert.Contains(t, out, "$10.00")

	out, err = run(t, svc, "want 0 1")
	require.NoError(t, err)
	assert.Contains(t, out, "want 2 of [0]")

	out, err = run(t, svc, "add 0")
	require.NoError(t, err)
	assert.Contains(t, out, "2 items, total $20.00")

	out, err = run(t, svc, "checkout")
	require.NoError(t, err)
	assert.Contains(t, out, "accepted (ready_to_pay)")

	_, err = run(t, svc, "fulfill Ada Lovelace | 1 Loop Rd")
	require.NoError(t, err)

	out, err = run(t, svc, "pay")
	require.NoError(t, err)
	assert.Contains(t, out, "https://pay.example/sess_9")

	out, err = run(t, svc, "paid")
	require.NoError(t, err)
	assert.Contains(t, out, checkout.MessagePaymentSuccess)

	out, err = run(t, svc, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "cart is empty")
}

func TestShell_RejectedCheckout(t *testing.T) {
	svc := newShellService(t, false)

	_, err := run(t, svc, "add 0")
	require.NoError(t, err)

	out, err := run(t, svc, "checkout")
	require.NoError(t, err)
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, checkout.MessageConflict)

	out, err = run(t, svc, "state")
	require.NoError(t, err)
	assert.Contains(t, out, "checkout browsing")
}

func TestShell_Errors(t *testing.T) {
	svc := newShellService(t, true)

	tests := []struct {
		line    string
		wantErr string
	}{
		{"add", "usage"},
		{"add 7", "out of range"},
		{"want 0", "usage"},
		{"qty nope 1", "not found"},
		{"fulfill nobody", "usage"},
		{"pay", "illegal"},
		{"checkout", "empty"},
		{"dance", "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := run(t, svc, tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunShell_ExitsOnQuitAndEOF(t *testing.T) {
	svc := newShellService(t, true)

	var out bytes.Buffer
	err := runShell(context.Background(), svc, strings.NewReader("products\nquit\nadd 0\n"), &out)
	require.NoError(t, err)
	assert.Zero(t, svc.Snapshot().Cart.Size, "commands after quit are not run")

	out.Reset()
	err = runShell(context.Background(), svc, strings.NewReader("add 0"), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Snapshot().Cart.Size, "a final line without newline still runs")
}
