// Package persistence mirrors shopper carts to a key-value backend.
package persistence

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a KV when the key holds nothing
var ErrNotFound = errors.New("key not found")

// KV is the minimal storage contract the cart adapter needs
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryKV keeps documents in process memory
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// compile-time assertion
var _ KV = (*MemoryKV)(nil)

// NewMemoryKV creates an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}
