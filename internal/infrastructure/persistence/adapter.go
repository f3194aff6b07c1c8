package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
)

// document is the stored shape; only the lines are persisted
type document struct {
	Cart []cart.Line `json:"cart"`
}

// Adapter maps shopper carts onto namespaced KV keys
type Adapter struct {
	kv        KV
	namespace string
	log       logrus.FieldLogger
}

// NewAdapter creates a cart persistence adapter
func NewAdapter(kv KV, namespace string, log logrus.FieldLogger) *Adapter {
	return &Adapter{kv: kv, namespace: namespace, log: log}
}

// Key returns the storage key of a shopper's cart
func (a *Adapter) Key(shopperID string) string {
	return fmt.Sprintf("%s:cart:%s", a.namespace, shopperID)
}

// ForShopper returns a cart.Repository bound to one shopper
func (a *Adapter) ForShopper(shopperID string) cart.Repository {
	return &shopperRepository{adapter: a, key: a.Key(shopperID)}
}

// Save replaces the stored document with lines
func (a *Adapter) Save(ctx context.Context, key string, lines []cart.Line) error {
	if lines == nil {
		lines = []cart.Line{}
	}
	b, err := json.Marshal(document{Cart: lines})
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := a.kv.Set(ctx, key, b); err != nil {
		return fmt.Errorf("failed to store cart: %w", err)
	}
	return nil
}

// Load reads the stored lines. Absent, unreadable or inconsistent
// documents all come back as an empty cart.
func (a *Adapter) Load(ctx context.Context, key string) []cart.Line {
	b, err := a.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.log.WithError(err).WithField("key", key).Warn("Failed to read stored cart, starting empty")
		}
		return []cart.Line{}
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		a.log.WithError(err).WithField("key", key).Warn("Stored cart is not valid JSON, starting empty")
		return []cart.Line{}
	}
	if err := cart.ValidateLines(doc.Cart); err != nil {
		a.log.WithError(err).WithField("key", key).Warn("Stored cart is inconsistent, starting empty")
		return []cart.Line{}
	}
	if doc.Cart == nil {
		return []cart.Line{}
	}
	return doc.Cart
}

type shopperRepository struct {
	adapter *Adapter
	key     string
}

func (r *shopperRepository) Save(ctx context.Context, lines []cart.Line) error {
	return r.adapter.Save(ctx, r.key, lines)
}

func (r *shopperRepository) Load(ctx context.Context) []cart.Line {
	return r.adapter.Load(ctx, r.key)
}
