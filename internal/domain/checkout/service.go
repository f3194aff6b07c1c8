// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Dependencies are the collaborators a Coordinator drives
type Dependencies struct {
	Cart       Cart
	Orders     OrderService
	Redirector Redirector
	Refresher  CatalogRefresher
	Notifier   Notifier
}

// Coordinator runs the checkout, pay and redirect sequence for one shopper.
// The lock is never held across a call into another component.
type Coordinator struct {
	mu          sync.Mutex
	state       State
	fulfillment *FulfillmentInfo
	sessionID   string
	lastFailure string
	onChange    []func()

	deps   Dependencies
	flight singleflight.Group
	log    logrus.FieldLogger
}

// NewCoordinator creates a coordinator in the browsing state
func NewCoordinator(deps Dependencies, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		state: StateBrowsing,
		deps:  deps,
		log:   log,
	}
}

// Observe registers fn to run after every state change
func (c *Coordinator) Observe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Status returns a copy of the current state
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:       c.state,
		SessionID:   c.sessionID,
		LastFailure: c.lastFailure,
	}
	if c.fulfillment != nil {
		info := *c.fulfillment
		st.Fulfillment = &info
	}
	return st
}

// Checkout asks the verification service whether the cart can be bought.
// Concurrent calls share one remote request.
func (c *Coordinator) Checkout(ctx context.Context) (Result, error) {
	v, err, _ := c.flight.Do("checkout", func() (interface{}, error) {
		return c.checkout(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (c *Coordinator) checkout(ctx context.Context) (Result, error) {
	items := ItemsFromLines(c.deps.Cart.Lines())

	c.mu.Lock()
	if c.state != StateBrowsing {
		from := c.state
		c.mu.Unlock()
		return Result{}, NewIllegalTransitionError(from, "checkout")
	}
	if len(items) == 0 {
		c.mu.Unlock()
		return Result{}, ErrEmptyCart
	}
	c.moveLocked(StateVerifying)
	c.lastFailure = ""
	c.mu.Unlock()
	c.notify()

	c.log.WithField("items", len(items)).Info("Verifying stock")

	verdict, err := c.deps.Orders.VerifyStock(ctx, CheckoutRequest{Items: items})
	if err != nil {
		return c.fail(StateBrowsing, err), nil
	}
	if !verdict.OK {
		return c.reject(ctx, "checkout"), nil
	}

	c.mu.Lock()
	c.moveLocked(StateReadyToPay)
	c.mu.Unlock()
	c.notify()

	return Result{State: StateReadyToPay, Outcome: OutcomeAccepted}, nil
}

// SetFulfillment records the shopper's name and address
func (c *Coordinator) SetFulfillment(info FulfillmentInfo) error {
	info = info.Normalize()
	if !info.Complete() {
		return ErrFulfillmentRequired
	}

	c.mu.Lock()
	if c.state != StateReadyToPay {
		from := c.state
		c.mu.Unlock()
		return NewIllegalTransitionError(from, "set fulfillment")
	}
	c.fulfillment = &info
	c.mu.Unlock()
	c.notify()
	return nil
}

// Back abandons a verified checkout and returns to browsing
func (c *Coordinator) Back() error {
	c.mu.Lock()
	if c.state != StateReadyToPay {
		from := c.state
		c.mu.Unlock()
		return NewIllegalTransitionError(from, "back")
	}
	c.moveLocked(StateBrowsing)
	c.fulfillment = nil
	c.mu.Unlock()
	c.notify()
	return nil
}

// Pay requests a payment session and redirects to the gateway with it.
// Concurrent calls share one remote request.
func (c *Coordinator) Pay(ctx context.Context) (Result, error) {
	v, err, _ := c.flight.Do("pay", func() (interface{}, error) {
		return c.pay(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (c *Coordinator) pay(ctx context.Context) (Result, error) {
	items := ItemsFromLines(c.deps.Cart.Lines())

	c.mu.Lock()
	if c.state != StateReadyToPay {
		from := c.state
		c.mu.Unlock()
		return Result{}, NewIllegalTransitionError(from, "pay")
	}
	if c.fulfillment == nil {
		c.mu.Unlock()
		return Result{}, ErrFulfillmentRequired
	}
	if len(items) == 0 {
		c.mu.Unlock()
		return Result{}, ErrEmptyCart
	}
	info := *c.fulfillment
	c.moveLocked(StatePaying)
	c.lastFailure = ""
	c.mu.Unlock()
	c.notify()

	c.log.WithField("items", len(items)).Info("Requesting payment session")

	res, err := c.deps.Orders.CreatePaymentSession(ctx, PayRequest{Items: items, Fulfillment: info})
	if err != nil {
		return c.fail(StateReadyToPay, err), nil
	}
	if !res.OK {
		return c.reject(ctx, "pay"), nil
	}

	session := PaymentSession{ID: res.SessionID}

	c.mu.Lock()
	c.moveLocked(StateRedirecting)
	c.sessionID = session.ID
	c.mu.Unlock()
	c.notify()

	if err := c.deps.Redirector.Redirect(ctx, session); err != nil {
		c.log.WithError(err).WithField("session_id", session.ID).Error("Gateway redirect failed")

		msg := "Could not open the payment page: " + err.Error()
		c.mu.Lock()
		c.moveLocked(StateBrowsing)
		c.sessionID = ""
		c.fulfillment = nil
		c.lastFailure = msg
		c.mu.Unlock()

		c.deps.Notifier.Flash(msg)
		c.notify()
		return Result{State: StateBrowsing, Outcome: OutcomeFailed, Message: msg}, nil
	}

	c.log.WithField("session_id", session.ID).Info("Redirected to payment gateway")
	return Result{State: StateRedirecting, Outcome: OutcomeAccepted, SessionID: session.ID}, nil
}

// CompletePayment handles a successful return from the gateway
func (c *Coordinator) CompletePayment(ctx context.Context) error {
	c.mu.Lock()
	if c.state.InFlight() {
		from := c.state
		c.mu.Unlock()
		return NewIllegalTransitionError(from, "complete payment")
	}
	c.resetLocked()
	c.mu.Unlock()

	c.deps.Cart.Clear(ctx)
	c.deps.Notifier.Flash(MessagePaymentSuccess)
	c.notify()
	return nil
}

// CancelPayment handles a cancelled return from the gateway; the cart is kept
func (c *Coordinator) CancelPayment() error {
	c.mu.Lock()
	if c.state.InFlight() {
		from := c.state
		c.mu.Unlock()
		return NewIllegalTransitionError(from, "cancel payment")
	}
	c.resetLocked()
	c.mu.Unlock()

	c.deps.Notifier.Flash(MessagePaymentCanceled)
	c.notify()
	return nil
}

// fail records a transport failure and falls back to the given state
func (c *Coordinator) fail(to State, err error) Result {
	c.log.WithError(err).WithField("fallback_state", to).Warn("Remote call failed")

	c.mu.Lock()
	c.moveLocked(to)
	c.lastFailure = err.Error()
	c.mu.Unlock()

	c.deps.Notifier.Flash(MessageUnreachable)
	c.notify()
	return Result{State: to, Outcome: OutcomeFailed, Message: MessageUnreachable}
}

// reject handles a stock conflict: refresh stock, empty the cart, start over
func (c *Coordinator) reject(ctx context.Context, stage string) Result {
	c.log.WithField("stage", stage).Warn("Stock conflict, resetting cart")

	c.mu.Lock()
	c.moveLocked(StateRejected)
	c.mu.Unlock()
	c.notify()

	if err := c.deps.Refresher.RefreshCatalog(ctx); err != nil {
		c.log.WithError(err).Warn("Failed to refresh catalog after conflict")
	}
	c.deps.Cart.Clear(ctx)
	c.deps.Notifier.Flash(MessageConflict)

	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	c.notify()

	return Result{State: StateBrowsing, Outcome: OutcomeRejected, Message: MessageConflict}
}

func (c *Coordinator) resetLocked() {
	if c.state != StateBrowsing {
		c.moveLocked(StateBrowsing)
	}
	c.fulfillment = nil
	c.sessionID = ""
	c.lastFailure = ""
}

func (c *Coordinator) moveLocked(to State) {
	if !CanTransitionTo(c.state, to) {
		c.log.WithFields(logrus.Fields{"from": c.state, "to": to}).Error("Unexpected checkout transition")
	}
	c.state = to
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	fns := make([]func(), len(c.onChange))
	copy(fns, c.onChange)
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
