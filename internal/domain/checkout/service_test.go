package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/pkg/logger"
)

type fakeCart struct {
	mu      sync.Mutex
	lines   []cart.Line
	cleared int
}

func (f *fakeCart) Lines() []cart.Line {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]cart.Line, len(f.lines))
	copy(out, f.lines)
	return out
}

func (f *fakeCart) Clear(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = nil
	f.cleared++
}

type fakeOrders struct {
	verdict     Verdict
	verifyErr   error
	session     SessionResult
	sessionErr  error
	verifyCalls atomic.Int32
	payCalls    atomic.Int32
	lastVerify  CheckoutRequest
	lastPay     PayRequest
	release     chan struct{}
	started     chan struct{}
}

func (f *fakeOrders) VerifyStock(_ context.Context, req CheckoutRequest) (Verdict, error) {
	f.verifyCalls.Add(1)
	f.lastVerify = req
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.verdict, f.verifyErr
}

func (f *fakeOrders) CreatePaymentSession(_ context.Context, req PayRequest) (SessionResult, error) {
	f.payCalls.Add(1)
	f.lastPay = req
	return f.session, f.sessionErr
}

type fakeRedirector struct {
	sessions []PaymentSession
	err      error
}

func (f *fakeRedirector) Redirect(_ context.Context, s PaymentSession) error {
	f.sessions = append(f.sessions, s)
	return f.err
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) RefreshCatalog(context.Context) error {
	f.calls++
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Flash(m string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
}

func (f *fakeNotifier) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fixture struct {
	coord      *Coordinator
	cart       *fakeCart
	orders     *fakeOrders
	redirector *fakeRedirector
	refresher  *fakeRefresher
	notifier   *fakeNotifier
}

func newFixture(lines ...cart.Line) *fixture {
	f := &fixture{
		cart:       &fakeCart{lines: lines},
		orders:     &fakeOrders{verdict: Verdict{OK: true}, session: SessionResult{OK: true, SessionID: "sess_abc"}},
		redirector: &fakeRedirector{},
		refresher:  &fakeRefresher{},
		notifier:   &fakeNotifier{},
	}
	f.coord = NewCoordinator(Dependencies{
		Cart:       f.cart,
		Orders:     f.orders,
		Redirector: f.redirector,
		Refresher:  f.refresher,
		Notifier:   f.notifier,
	}, logger.Discard())
	return f
}

func sku1() cart.Line {
	return cart.Line{ID: "sku1", Name: "Widget", Price: decimal.RequireFromString("10.00"), Quantity: 2, CartQuantity: 2}
}

func readyToPay(t *testing.T, f *fixture) {
	t.Helper()
	res, err := f.coord.Checkout(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateReadyToPay, res.State)
	require.NoError(t, f.coord.SetFulfillment(FulfillmentInfo{Name: "Ada", Address: "1 Loop Rd"}))
}

func TestCheckout_Accepted(t *testing.T) {
	f := newFixture(sku1())

	res, err := f.coord.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{State: StateReadyToPay, Outcome: OutcomeAccepted}, res)
	assert.Equal(t, []Item{{ProductID: "sku1", Quantity: 2}}, f.orders.lastVerify.Items)
	assert.Equal(t, StateReadyToPay, f.coord.Status().State)
	assert.Zero(t, f.cart.cleared)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(cart.Line{ID: "z", Quantity: 3, CartQuantity: 0})

	_, err := f.coord.Checkout(context.Background())

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.orders.verifyCalls.Load())
	assert.Equal(t, StateBrowsing, f.coord.Status().State)
}

func TestCheckout_SkipsZeroQuantityLines(t *testing.T) {
	f := newFixture(sku1(), cart.Line{ID: "z", Quantity: 3, CartQuantity: 0})

	_, err := f.coord.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Item{{ProductID: "sku1", Quantity: 2}}, f.orders.lastVerify.Items)
}

func TestCheckout_RejectedResetsCart(t *testing.T) {
	f := newFixture(sku1())
	f.orders.verdict = Verdict{OK: false}

	var states []State
	f.coord.Observe(func() { states = append(states, f.coord.Status().State) })

	res, err := f.coord.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, StateBrowsing, res.State)
	assert.Equal(t, 1, f.refresher.calls)
	assert.Equal(t, 1, f.cart.cleared)
	assert.Empty(t, f.cart.Lines())
	assert.Equal(t, MessageConflict, f.notifier.last())
	assert.Equal(t, StateBrowsing, f.coord.Status().State)
	assert.Contains(t, states, StateRejected)
}

func TestCheckout_TransportFailureKeepsCart(t *testing.T) {
	f := newFixture(sku1())
	f.orders.verifyErr = errors.New("dial tcp: connection refused")

	res, err := f.coord.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, StateBrowsing, res.State)
	assert.Len(t, f.cart.Lines(), 1)
	assert.Zero(t, f.cart.cleared)
	assert.Zero(t, f.refresher.calls)
	assert.Equal(t, MessageUnreachable, f.notifier.last())
	assert.Contains(t, f.coord.Status().LastFailure, "connection refused")

	// a retry starts from browsing again
	f.orders.verifyErr = nil
	res, err = f.coord.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReadyToPay, res.State)
	assert.Empty(t, f.coord.Status().LastFailure)
}

func TestCheckout_NotFromReadyToPay(t *testing.T) {
	f := newFixture(sku1())
	readyToPay(t, f)

	_, err := f.coord.Checkout(context.Background())

	assert.True(t, IsIllegalTransition(err))
	assert.Equal(t, int32(1), f.orders.verifyCalls.Load())
}

func TestCheckout_ConcurrentCallsShareOneRequest(t *testing.T) {
	f := newFixture(sku1())
	f.orders.started = make(chan struct{})
	f.orders.release = make(chan struct{})

	const callers = 8
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		illegal  atomic.Int32
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if res, err := f.coord.Checkout(context.Background()); err == nil && res.Outcome == OutcomeAccepted {
			accepted.Add(1)
		}
	}()
	<-f.orders.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.coord.Checkout(context.Background())
			switch {
			case err == nil && res.Outcome == OutcomeAccepted:
				accepted.Add(1)
			case IsIllegalTransition(err):
				illegal.Add(1)
			}
		}()
	}
	close(f.orders.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.orders.verifyCalls.Load())
	assert.Equal(t, int32(callers), accepted.Load()+illegal.Load())
	assert.GreaterOrEqual(t, accepted.Load(), int32(1))
}

func TestSetFulfillment(t *testing.T) {
	f := newFixture(sku1())

	err := f.coord.SetFulfillment(FulfillmentInfo{Name: "Ada", Address: "1 Loop Rd"})
	assert.True(t, IsIllegalTransition(err), "not allowed while browsing")

	_, err = f.coord.Checkout(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, f.coord.SetFulfillment(FulfillmentInfo{Name: "  ", Address: "x"}), ErrFulfillmentRequired)
	require.NoError(t, f.coord.SetFulfillment(FulfillmentInfo{Name: " Ada ", Address: "1 Loop Rd"}))
	require.NotNil(t, f.coord.Status().Fulfillment)
	assert.Equal(t, "Ada", f.coord.Status().Fulfillment.Name)
}

func TestPay_RequiresFulfillment(t *testing.T) {
	f := newFixture(sku1())
	_, err := f.coord.Checkout(context.Background())
	require.NoError(t, err)

	_, err = f.coord.Pay(context.Background())

	assert.ErrorIs(t, err, ErrFulfillmentRequired)
	assert.Zero(t, f.orders.payCalls.Load())
}

func TestPay_NotFromBrowsing(t *testing.T) {
	f := newFixture(sku1())

	_, err := f.coord.Pay(context.Background())

	assert.ErrorIs(t, err, &IllegalTransitionError{})
}

func TestPay_RedirectsOnce(t *testing.T) {
	f := newFixture(sku1())
	readyToPay(t, f)

	res, err := f.coord.Pay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{State: StateRedirecting, Outcome: OutcomeAccepted, SessionID: "sess_abc"}, res)
	assert.Equal(t, []PaymentSession{{ID: "sess_abc"}}, f.redirector.sessions)
	assert.Equal(t, "Ada", f.orders.lastPay.Fulfillment.Name)
	assert.Equal(t, []Item{{ProductID: "sku1", Quantity: 2}}, f.orders.lastPay.Items)
	assert.Equal(t, StateRedirecting, f.coord.Status().State)
	assert.Equal(t, "sess_abc", f.coord.Status().SessionID)

	_, err = f.coord.Pay(context.Background())
	assert.True(t, IsIllegalTransition(err))
	assert.Len(t, f.redirector.sessions, 1)
}

func TestPay_RejectedResetsCart(t *testing.T) {
	f := newFixture(sku1())
	readyToPay(t, f)
	f.orders.session = SessionResult{OK: false}

	res, err := f.coord.Pay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, 1, f.cart.cleared)
	assert.Equal(t, 1, f.refresher.calls)
	assert.Empty(t, f.redirector.sessions)
	assert.Equal(t, MessageConflict, f.notifier.last())

	st := f.coord.Status()
	assert.Equal(t, StateBrowsing, st.State)
	assert.Nil(t, st.Fulfillment)
}

func TestPay_TransportFailureReturnsToReadyToPay(t *testing.T) {
	f := newFixture(sku1())
	readyToPay(t, f)
	f.orders.sessionErr = context.DeadlineExceeded

	res, err := f.coord.Pay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{State: StateReadyToPay, Outcome: OutcomeFailed, Message: MessageUnreachable}, res)
	assert.Zero(t, f.cart.cleared)
	st := f.coord.Status()
	assert.Equal(t, StateReadyToPay, st.State)
	assert.NotNil(t, st.Fulfillment, "fulfillment survives a retryable failure")
}

func TestPay_RedirectErrorIsFlashed(t *testing.T) {
	f := newFixture(sku1())
	readyToPay(t, f)
	f.redirector.err = errors.New("popup blocked")

	res, err := f.coord.Pay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, StateBrowsing, f.coord.Status().State)
	assert.Contains(t, f.notifier.last(), "popup blocked")
	assert.Len(t, f.cart.Lines(), 1)
}

func TestBack(t *testing.T) {
	f := newFixture(sku1())
	assert.True(t, IsIllegalTransition(f.coord.Back()))

	readyToPay(t, f)
	require.NoError(t, f.coord.Back())

	st := f.coord.Status()
	assert.Equal(t, StateBrowsing, st.State)
	assert.Nil(t, st.Fulfillment)
}

func TestCompletePayment(t *testing.T) {
	f := newFixture(sku1())
	readyToPay(t, f)
	_, err := f.coord.Pay(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.coord.CompletePayment(context.Background()))

	assert.Equal(t, StateBrowsing, f.coord.Status().State)
	assert.Empty(t, f.coord.Status().SessionID)
	assert.Equal(t, 1, f.cart.cleared)
	assert.Equal(t, MessagePaymentSuccess, f.notifier.last())
}

func TestCancelPayment(t *testing.T) {
	f := newFixture(sku1())
	readyToPay(t, f)
	_, err := f.coord.Pay(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.coord.CancelPayment())

	assert.Equal(t, StateBrowsing, f.coord.Status().State)
	assert.Zero(t, f.cart.cleared)
	assert.Equal(t, MessagePaymentCanceled, f.notifier.last())
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(StateBrowsing, StateVerifying))
	assert.True(t, CanTransitionTo(StatePaying, StateRedirecting))
	assert.True(t, CanTransitionTo(StateRejected, StateBrowsing))
	assert.False(t, CanTransitionTo(StateBrowsing, StatePaying))
	assert.False(t, CanTransitionTo(StateRedirecting, StatePaying))
}
