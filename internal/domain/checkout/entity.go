// internal/domain/checkout/entity.go
package checkout

import (
	"context"
	"strings"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
)

// State is a checkout stage
type State string

const (
	StateBrowsing    State = "browsing"
	StateVerifying   State = "verifying"
	StateReadyToPay  State = "ready_to_pay"
	StatePaying      State = "paying"
	StateRedirecting State = "redirecting"
	// StateRejected is transient: the coordinator resets to browsing right after
	StateRejected State = "rejected"
)

func (s State) String() string {
	return string(s)
}

// InFlight reports whether a remote call is outstanding in this state
func (s State) InFlight() bool {
	return s == StateVerifying || s == StatePaying
}

var transitions = map[State][]State{
	StateBrowsing:    {StateVerifying},
	StateVerifying:   {StateReadyToPay, StateRejected, StateBrowsing},
	StateReadyToPay:  {StatePaying, StateBrowsing},
	StatePaying:      {StateRedirecting, StateRejected, StateReadyToPay},
	StateRedirecting: {StateBrowsing},
	StateRejected:    {StateBrowsing},
}

// CanTransitionTo reports whether the machine may move from one state to another
func CanTransitionTo(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome summarises what a checkout or pay attempt ended with
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Flash messages shown to the shopper
const (
	MessageConflict        = "Some items in your cart are no longer available. Your cart has been cleared, please review the updated stock."
	MessageUnreachable     = "We could not reach the store. Please try again."
	MessagePaymentSuccess  = "Payment succeeded"
	MessagePaymentCanceled = "Payment canceled"
)

// Item is one requested product in a checkout or pay call
type Item struct {
	ProductID catalog.ProductID `json:"product_id"`
	Quantity  int               `json:"quantity"`
}

// CheckoutRequest asks the verification service whether stock suffices
type CheckoutRequest struct {
	Items []Item `json:"items"`
}

// FulfillmentInfo is collected between verification and payment
type FulfillmentInfo struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// Normalize trims whitespace from every field
func (f FulfillmentInfo) Normalize() FulfillmentInfo {
	return FulfillmentInfo{
		Name:    strings.TrimSpace(f.Name),
		Address: strings.TrimSpace(f.Address),
	}
}

// Complete reports whether every required field is set
func (f FulfillmentInfo) Complete() bool {
	n := f.Normalize()
	return n.Name != "" && n.Address != ""
}

// PayRequest asks the payment-session service for a hosted session
type PayRequest struct {
	Items       []Item          `json:"items"`
	Fulfillment FulfillmentInfo `json:"fulfillment"`
}

// Verdict is the verification service's answer
type Verdict struct {
	OK bool `json:"ok"`
}

// SessionResult is the payment-session service's answer
type SessionResult struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"session_id,omitempty"`
}

// PaymentSession is consumed exactly once by the gateway redirect
type PaymentSession struct {
	ID string `json:"session_id"`
}

// Result describes how a checkout or pay call ended
type Result struct {
	State     State   `json:"state"`
	Outcome   Outcome `json:"outcome"`
	SessionID string  `json:"session_id,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// Status is a read-only view of the coordinator
type Status struct {
	State       State            `json:"state"`
	Fulfillment *FulfillmentInfo `json:"fulfillment,omitempty"`
	SessionID   string           `json:"session_id,omitempty"`
	LastFailure string           `json:"last_failure,omitempty"`
}

// OrderService is the remote verification and payment-session endpoints
type OrderService interface {
	VerifyStock(ctx context.Context, req CheckoutRequest) (Verdict, error)
	CreatePaymentSession(ctx context.Context, req PayRequest) (SessionResult, error)
}

// Redirector hands a session to the hosted payment page
type Redirector interface {
	Redirect(ctx context.Context, session PaymentSession) error
}

// CatalogRefresher reloads the product listing after a conflict
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) error
}

// Notifier shows a transient message to the shopper
type Notifier interface {
	Flash(message string)
}

// Cart is the part of the cart store the coordinator needs
type Cart interface {
	Lines() []cart.Line
	Clear(ctx context.Context)
}

// ItemsFromLines builds request items from lines with a positive quantity
func ItemsFromLines(lines []cart.Line) []Item {
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		if l.CartQuantity <= 0 {
			continue
		}
		items = append(items, Item{ProductID: l.ID, Quantity: l.CartQuantity})
	}
	return items
}
