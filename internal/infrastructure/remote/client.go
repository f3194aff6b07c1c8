// internal/infrastructure/remote/client.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/requestid"
)

const maxResponseBytes = 1 << 20

// Signed actions
const (
	ActionListProducts = "list_products"
	ActionCheckout     = "checkout"
	ActionPay          = "pay"
)

// Client talks to the product, verification and payment-session endpoints
type Client struct {
	baseURL      string
	productsPath string
	checkoutPath string
	payPath      string
	timeout      time.Duration
	httpClient   *http.Client
	signer       *auth.RequestSigner
	breaker      *gobreaker.CircuitBreaker[[]byte]
	log          logrus.FieldLogger
}

// compile-time assertions
var (
	_ catalog.Source        = (*Client)(nil)
	_ checkout.OrderService = (*Client)(nil)
)

// NewClient creates a new remote services client
func NewClient(cfg config.ServicesConfig, signer *auth.RequestSigner, log logrus.FieldLogger) *Client {
	maxFailures := uint32(1)
	if cfg.BreakerMaxFailures > 1 {
		maxFailures = uint32(cfg.BreakerMaxFailures)
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		productsPath: cfg.ProductsPath,
		checkoutPath: cfg.CheckoutPath,
		payPath:      cfg.PayPath,
		timeout:      cfg.Timeout,
		httpClient:   &http.Client{},
		signer:       signer,
		log:          log,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "storefront-services",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// client errors mean the service is up
			if errors.Is(err, &StatusError{}) {
				return !IsServerError(err)
			}
			// a shopper leaving mid-request says nothing about the service
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return c
}

type productsResponse struct {
	Products *[]catalog.Product `json:"products"`
}

// ListProducts fetches the catalog, narrowed by query when non-empty
func (c *Client) ListProducts(ctx context.Context, query string) ([]catalog.Product, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}

	body, err := c.makeAPICall(ctx, http.MethodGet, c.productsPath, params, nil, ActionListProducts)
	if err != nil {
		return nil, err
	}

	var resp productsResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Products == nil {
		return nil, malformed("products", err)
	}
	return *resp.Products, nil
}

type verdictResponse struct {
	OK *bool `json:"ok"`
}

// VerifyStock asks whether every requested quantity is still available
func (c *Client) VerifyStock(ctx context.Context, req checkout.CheckoutRequest) (checkout.Verdict, error) {
	body, err := c.makeAPICall(ctx, http.MethodPost, c.checkoutPath, nil, req, ActionCheckout)
	if err != nil {
		return checkout.Verdict{}, err
	}

	var resp verdictResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.OK == nil {
		return checkout.Verdict{}, malformed("checkout", err)
	}
	return checkout.Verdict{OK: *resp.OK}, nil
}

type sessionResponse struct {
	OK        *bool  `json:"ok"`
	SessionID string `json:"session_id"`
}

// CreatePaymentSession re-verifies stock and opens a hosted payment session
func (c *Client) CreatePaymentSession(ctx context.Context, req checkout.PayRequest) (checkout.SessionResult, error) {
	body, err := c.makeAPICall(ctx, http.MethodPost, c.payPath, nil, req, ActionPay)
	if err != nil {
		return checkout.SessionResult{}, err
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.OK == nil {
		return checkout.SessionResult{}, malformed("pay", err)
	}
	if *resp.OK && resp.SessionID == "" {
		return checkout.SessionResult{}, malformed("pay", errors.New("ok reply without session_id"))
	}
	return checkout.SessionResult{OK: *resp.OK, SessionID: resp.SessionID}, nil
}

// makeAPICall runs one request through the circuit breaker
func (c *Client) makeAPICall(ctx context.Context, method, path string, params url.Values, data interface{}, action string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, params, data, action)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, data interface{}, action string) ([]byte, error) {
	var reqBody io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestid.From(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}
	if c.signer.Enabled() {
		shopperID, _ := auth.ShopperIDFromContext(ctx)
		token, err := c.signer.Sign(shopperID, action)
		if err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s %s after %s", ErrTimeout, method, path, c.timeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrTransport, err)
	}

	c.log.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"latency":     time.Since(start),
	}).Debug("Remote call completed")

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

func malformed(endpoint string, cause error) error {
	if cause == nil {
		cause = errors.New("missing required field")
	}
	return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, cause)
}
