// internal/domain/storefront/service.go
package storefront

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/pkg/auth"
)

// Dependencies are shared by every shopper's Service
type Dependencies struct {
	Catalog *catalog.Service
	Orders  checkout.OrderService
	Gateway config.GatewayConfig
}

// Service is one shopper's storefront: listing, cart and checkout in a
// single explicit state. Its lock is never held while calling the cart,
// the coordinator or the network.
type Service struct {
	shopperID string

	mu          sync.Mutex
	view        View
	search      string
	listing     *catalog.Listing
	catalogErr  string
	flash       string
	redirectURL string
	version     uint64

	subMu       sync.Mutex
	subscribers map[int]chan Snapshot
	nextSub     int

	catalog *catalog.Service
	cart    *cart.Store
	coord   *checkout.Coordinator
	log     logrus.FieldLogger
}

// compile-time assertions
var (
	_ cart.Observer             = (*Service)(nil)
	_ checkout.Notifier         = (*Service)(nil)
	_ checkout.CatalogRefresher = (*Service)(nil)
	_ payment.Navigator         = (*Service)(nil)
)

// NewService wires a shopper's cart store and checkout coordinator
func NewService(shopperID string, repo cart.Repository, deps Dependencies, log logrus.FieldLogger) *Service {
	log = log.WithField("shopper_id", shopperID)

	s := &Service{
		shopperID:   shopperID,
		view:        ViewProducts,
		listing:     &catalog.Listing{Items: []catalog.ListedProduct{}},
		subscribers: make(map[int]chan Snapshot),
		catalog:     deps.Catalog,
		log:         log,
	}

	s.cart = cart.NewStore(repo, log)
	s.cart.AddObserver(s)

	gateway := payment.NewHostedCheckout(deps.Gateway.RedirectURLTemplate, deps.Gateway.PublishableKey, s, log)
	s.coord = checkout.NewCoordinator(checkout.Dependencies{
		Cart:       s.cart,
		Orders:     deps.Orders,
		Redirector: gateway,
		Refresher:  s,
		Notifier:   s,
	}, log)
	s.coord.Observe(s.publish)

	return s
}

// ShopperID returns the identity this storefront belongs to
func (s *Service) ShopperID() string {
	return s.shopperID
}

// Init restores the persisted cart and loads the catalog. clearCart
// empties the cart first, as on a landing after a completed payment.
// A catalog failure is recorded in the snapshot rather than returned.
func (s *Service) Init(ctx context.Context, clearCart bool) {
	ctx = s.withShopper(ctx)

	s.cart.Restore(ctx)
	if clearCart {
		s.cart.Clear(ctx)
	}
	if err := s.RefreshCatalog(ctx); err != nil {
		s.log.WithError(err).Warn("Initial catalog fetch failed")
	}
}

// Search replaces the search term and refetches the listing
func (s *Service) Search(ctx context.Context, query string) error {
	s.mu.Lock()
	s.search = strings.TrimSpace(query)
	s.mu.Unlock()
	return s.RefreshCatalog(ctx)
}

// ClearSearch drops the search term and refetches the full listing
func (s *Service) ClearSearch(ctx context.Context) error {
	return s.Search(ctx, "")
}

// RefreshCatalog refetches the listing for the current search term.
// On failure the previous listing is kept.
func (s *Service) RefreshCatalog(ctx context.Context) error {
	s.mu.Lock()
	query := s.search
	s.mu.Unlock()

	listing, err := s.catalog.Fetch(s.withShopper(ctx), query)

	s.mu.Lock()
	if err != nil {
		s.catalogErr = err.Error()
	} else if s.search == query {
		s.listing = listing
		s.catalogErr = ""
	}
	s.mu.Unlock()

	s.publish()
	return err
}

// AdjustDesired moves the pending quantity of a listed product
func (s *Service) AdjustDesired(index, delta int) (int, error) {
	s.mu.Lock()
	item, err := s.listing.At(index)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	q := cart.AdjustDesiredQuantity(&item.Product, delta)
	s.mu.Unlock()

	s.publish()
	return q, nil
}

// AddToCart adds the listed product's pending quantity to the cart
func (s *Service) AddToCart(ctx context.Context, index int) (cart.Line, error) {
	s.mu.Lock()
	item, err := s.listing.At(index)
	if err != nil {
		s.mu.Unlock()
		return cart.Line{}, err
	}
	p := item.Product
	s.mu.Unlock()

	return s.cart.AddToCart(s.withShopper(ctx), p), nil
}

// AdjustCartQuantity moves a cart line's quantity
func (s *Service) AdjustCartQuantity(ctx context.Context, id catalog.ProductID, delta int) (cart.Line, error) {
	return s.cart.AdjustCartQuantity(s.withShopper(ctx), id, delta)
}

// ClearCart empties the cart and returns to the product view
func (s *Service) ClearCart(ctx context.Context) {
	s.cart.Clear(s.withShopper(ctx))
}

// Show switches between the product and cart views
func (s *Service) Show(view View) error {
	if _, err := ParseView(string(view)); err != nil {
		return err
	}
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()

	s.publish()
	return nil
}

// Checkout starts stock verification
func (s *Service) Checkout(ctx context.Context) (checkout.Result, error) {
	s.mu.Lock()
	s.redirectURL = ""
	s.mu.Unlock()
	return s.coord.Checkout(s.withShopper(ctx))
}

// SetFulfillment records the shopper's name and address
func (s *Service) SetFulfillment(info checkout.FulfillmentInfo) error {
	return s.coord.SetFulfillment(info)
}

// Back leaves the pay view without paying
func (s *Service) Back() error {
	return s.coord.Back()
}

// Pay requests a payment session and redirects to the gateway
func (s *Service) Pay(ctx context.Context) (checkout.Result, error) {
	return s.coord.Pay(s.withShopper(ctx))
}

// PaymentReturned handles the shopper coming back from the gateway
func (s *Service) PaymentReturned(ctx context.Context, success bool) error {
	s.mu.Lock()
	s.redirectURL = ""
	s.view = ViewProducts
	s.mu.Unlock()

	if success {
		return s.coord.CompletePayment(s.withShopper(ctx))
	}
	return s.coord.CancelPayment()
}

// DismissFlash hides the current message
func (s *Service) DismissFlash() {
	s.mu.Lock()
	s.flash = ""
	s.mu.Unlock()
	s.publish()
}

// Snapshot returns the current shopper-visible state
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Version:      s.version,
		ShopperID:    s.shopperID,
		View:         s.view,
		Search:       s.search,
		Listing:      s.listing.Clone(),
		CatalogError: s.catalogErr,
		Flash:        s.flash,
	}
	redirectURL := s.redirectURL
	s.mu.Unlock()

	snap.Cart = s.cart.Snapshot()
	snap.Checkout = s.coord.Status()

	switch snap.Checkout.State {
	case checkout.StateReadyToPay, checkout.StatePaying:
		snap.View = ViewPay
	case checkout.StateRedirecting:
		snap.View = ViewRedirect
		snap.RedirectURL = redirectURL
	}
	return snap
}

// Subscribe returns a channel receiving a snapshot after every change.
// Slow subscribers only see the latest snapshot.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribed reports whether any subscriber is attached
func (s *Service) Subscribed() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subscribers) > 0
}

// CartChanged implements cart.Observer
func (s *Service) CartChanged() {
	s.publish()
}

// CartCleared implements cart.Observer
func (s *Service) CartCleared() {
	s.mu.Lock()
	s.view = ViewProducts
	s.mu.Unlock()
	s.publish()
}

// Flash implements checkout.Notifier
func (s *Service) Flash(message string) {
	s.mu.Lock()
	s.flash = message
	s.mu.Unlock()
	s.publish()
}

// Navigate implements payment.Navigator; presentations follow RedirectURL
func (s *Service) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	s.redirectURL = url
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *Service) withShopper(ctx context.Context) context.Context {
	return auth.WithShopperID(ctx, s.shopperID)
}

func (s *Service) publish() {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()

	snap := s.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot in favour of the new one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
