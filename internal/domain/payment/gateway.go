// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/checkout"
)

// ErrMissingSession is returned when a redirect is attempted without a session id
var ErrMissingSession = errors.New("payment session id is empty")

const sessionPlaceholder = "{session_id}"

// Navigator moves the shopper's presentation to an external URL
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// HostedCheckout sends shoppers to the gateway's hosted payment page
type HostedCheckout struct {
	template       string
	publishableKey string
	navigator      Navigator
	log            logrus.FieldLogger
}

// compile-time assertion
var _ checkout.Redirector = (*HostedCheckout)(nil)

// NewHostedCheckout creates a gateway bridge. The template may contain
// {session_id}; otherwise the id is appended as a query parameter.
func NewHostedCheckout(template, publishableKey string, navigator Navigator, log logrus.FieldLogger) *HostedCheckout {
	return &HostedCheckout{
		template:       template,
		publishableKey: publishableKey,
		navigator:      navigator,
		log:            log,
	}
}

// URL builds the hosted payment page address for a session
func (h *HostedCheckout) URL(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrMissingSession
	}

	if strings.Contains(h.template, sessionPlaceholder) {
		return strings.ReplaceAll(h.template, sessionPlaceholder, url.PathEscape(sessionID)), nil
	}

	u, err := url.Parse(h.template)
	if err != nil {
		return "", fmt.Errorf("invalid gateway URL template: %w", err)
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	if h.publishableKey != "" {
		q.Set("key", h.publishableKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Redirect hands the session to the gateway
func (h *HostedCheckout) Redirect(ctx context.Context, session checkout.PaymentSession) error {
	target, err := h.URL(session.ID)
	if err != nil {
		return err
	}

	h.log.WithField("session_id", session.ID).Debug("Redirecting to hosted checkout")

	if err := h.navigator.Navigate(ctx, target); err != nil {
		return fmt.Errorf("failed to open payment page: %w", err)
	}
	return nil
}
