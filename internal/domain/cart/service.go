// internal/domain/cart/service.go
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/catalog"
)

// Store holds one shopper's cart. Every mutation recomputes totals and is
// mirrored to the repository before the lock is released.
type Store struct {
	mu        sync.RWMutex
	lines     []Line
	totals    Totals
	repo      Repository
	observers []Observer
	log       logrus.FieldLogger
}

// NewStore creates an empty cart store
func NewStore(repo Repository, log logrus.FieldLogger) *Store {
	return &Store{
		lines:  []Line{},
		totals: Totals{Total: decimal.Zero},
		repo:   repo,
		log:    log,
	}
}

// AddObserver registers o for change notifications
func (s *Store) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// AddToCart merges the product's desired quantity into the cart.
// An existing line takes the newer name, price and stock snapshot and its
// quantity is reclamped; otherwise a new line is appended.
func (s *Store) AddToCart(ctx context.Context, p catalog.Product) Line {
	s.mu.Lock()

	var added Line
	merged := false
	for i := range s.lines {
		if s.lines[i].ID != p.ID {
			continue
		}
		line := &s.lines[i]
		line.Name = p.Name
		line.Price = p.Price
		line.Quantity = p.Quantity
		line.CartQuantity = clampAdd(line.CartQuantity, p.DesiredQuantity, line.Quantity)
		added = *line
		merged = true
		break
	}

	if !merged {
		added = Line{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Quantity:     max(p.Quantity, 0),
			CartQuantity: clampAdd(0, p.DesiredQuantity, p.Quantity),
		}
		s.lines = append(s.lines, added)
	}

	s.commitLocked(ctx)
	observers := s.observersLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"product_id":    added.ID,
		"cart_quantity": added.CartQuantity,
		"merged":        merged,
	}).Debug("Added to cart")

	notifyChanged(observers)
	return added
}

// AdjustCartQuantity moves a line's quantity by delta within [0, stock snapshot]
func (s *Store) AdjustCartQuantity(ctx context.Context, id catalog.ProductID, delta int) (Line, error) {
	s.mu.Lock()

	idx := -1
	for i := range s.lines {
		if s.lines[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return Line{}, NewLineNotFoundError(id)
	}

	line := &s.lines[idx]
	line.CartQuantity = clampAdd(line.CartQuantity, delta, line.Quantity)
	updated := *line

	s.commitLocked(ctx)
	observers := s.observersLocked()
	s.mu.Unlock()

	notifyChanged(observers)
	return updated, nil
}

// Totals returns the current derived totals
func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// HasItems reports whether anything would be checked out
func (s *Store) HasItems() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals.Size > 0
}

// Lines returns a copy of the cart lines in insertion order
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Snapshot returns the cart annotated for display
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]LineView, len(s.lines))
	for i, l := range s.lines {
		views[i] = LineView{
			Index:             i,
			Line:              l,
			FormattedPrice:    catalog.FormatPrice(l.Price),
			FormattedSubtotal: catalog.FormatPrice(l.Subtotal()),
		}
	}
	return Snapshot{
		Lines:          views,
		Size:           s.totals.Size,
		Total:          s.totals.Total,
		FormattedTotal: catalog.FormatPrice(s.totals.Total),
	}
}

// Restore replaces the cart with whatever the repository holds
func (s *Store) Restore(ctx context.Context) {
	lines := s.repo.Load(ctx)
	if lines == nil {
		lines = []Line{}
	}

	s.mu.Lock()
	s.lines = lines
	s.recomputeTotalsLocked()
	observers := s.observersLocked()
	size := s.totals.Size
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"lines":     len(lines),
		"cart_size": size,
	}).Debug("Cart restored")

	notifyChanged(observers)
}

// Clear empties the cart and persists the empty state
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = []Line{}
	s.commitLocked(ctx)
	observers := s.observersLocked()
	s.mu.Unlock()

	for _, o := range observers {
		o.CartCleared()
	}
}

// commitLocked is the single path by which mutations update totals and storage
func (s *Store) commitLocked(ctx context.Context) {
	s.recomputeTotalsLocked()
	if err := s.persistLocked(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to persist cart")
	}
}

func (s *Store) recomputeTotalsLocked() {
	s.totals = Fold(s.lines)
}

func (s *Store) persistLocked(ctx context.Context) error {
	return s.repo.Save(ctx, s.copyLocked())
}

func (s *Store) copyLocked() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) observersLocked() []Observer {
	out := make([]Observer, len(s.observers))
	copy(out, s.observers)
	return out
}

func notifyChanged(observers []Observer) {
	for _, o := range observers {
		o.CartChanged()
	}
}
