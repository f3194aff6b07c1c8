package storefront

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Factory builds an uninitialised Service for a shopper
type Factory func(shopperID string) *Service

type entry struct {
	once     sync.Once
	svc      *Service
	lastSeen time.Time
}

// Registry holds one Service per shopper. Sessions idle for longer than
// the idle timeout, or the least recently used ones beyond the session cap,
// are dropped; their carts stay in the repository and are restored on the
// next visit. Sessions with live subscribers are never dropped.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  Factory

	idleTimeout time.Duration
	maxSessions int
	now         func() time.Time
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithIdleTimeout drops sessions not used for d. Zero keeps them forever.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) { r.maxSessions = n }
}

// NewRegistry creates an empty registry
func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the shopper's Service, creating and initialising it on first use.
// Initialisation is detached from ctx so an abandoned first request cannot
// leave the session with an unrestored cart.
func (r *Registry) Get(ctx context.Context, shopperID string) *Service {
	r.mu.Lock()
	e, ok := r.sessions[shopperID]
	if !ok {
		e = &entry{svc: r.factory(shopperID)}
		r.sessions[shopperID] = e
	}
	e.lastSeen = r.now()
	overCap := r.maxSessions > 0 && len(r.sessions) > r.maxSessions
	r.mu.Unlock()

	if overCap {
		r.Sweep()
	}

	e.once.Do(func() {
		e.svc.Init(context.WithoutCancel(ctx), false)
	})
	return e.svc
}

// Len returns the number of live shopper sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type candidate struct {
	id   string
	e    *entry
	seen time.Time
}

// Sweep drops idle sessions and trims the registry to its cap, returning
// how many sessions were dropped
func (r *Registry) Sweep() int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTimeout)
	var idle, active []candidate
	for id, e := range r.sessions {
		c := candidate{id: id, e: e, seen: e.lastSeen}
		if r.idleTimeout > 0 && e.lastSeen.Before(cutoff) {
			idle = append(idle, c)
		} else {
			active = append(active, c)
		}
	}
	over := 0
	if r.maxSessions > 0 {
		over = len(active) - r.maxSessions
	}
	r.mu.Unlock()

	victims := idle
	if over > 0 {
		sort.Slice(active, func(i, j int) bool { return active[i].seen.Before(active[j].seen) })
		victims = append(victims, active[:over]...)
	}

	// subscriber checks happen outside the registry lock
	kept := victims[:0]
	for _, c := range victims {
		if !c.e.svc.Subscribed() {
			kept = append(kept, c)
		}
	}

	dropped := 0
	r.mu.Lock()
	for _, c := range kept {
		// skip sessions touched since the scan
		if cur, ok := r.sessions[c.id]; ok && cur == c.e && cur.lastSeen.Equal(c.seen) {
			delete(r.sessions, c.id)
			dropped++
		}
	}
	r.mu.Unlock()
	return dropped
}

// Run sweeps every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration, log logrus.FieldLogger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.WithFields(logrus.Fields{
					"dropped":  n,
					"sessions": r.Len(),
				}).Info("Dropped idle shopper sessions")
			}
		}
	}
}
