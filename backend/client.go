// Package backend implements the client for the checkout backend API:
// invoice lookup, payment intent issuance, settlement reconciliation and
// customer info updates, all under a single configured base URL.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/yoms07/lisk-checkout-go"
	"github.com/yoms07/lisk-checkout-go/retry"
	"github.com/yoms07/lisk-checkout-go/validation"
)

// AuthorizationProvider is a function that returns an Authorization header
// value. This is useful for dynamic tokens (e.g., JWT refresh) where the
// value may change.
//
// Thread-safety: the provider is called on each HTTP request, including
// retry attempts. If it accesses shared state or performs I/O, ensure it is
// safe for concurrent use; the Client does not serialize calls to it.
type AuthorizationProvider func(*http.Request) string

// OnBeforeInitiateFunc is a callback invoked before an intent is requested.
// Return an error to abort the operation.
type OnBeforeInitiateFunc func(ctx context.Context, paymentID string, sender common.Address) error

// OnAfterInitiateFunc is a callback invoked after an InitiatePayment call
// completes, with the result (success or failure) for logging or metrics.
type OnAfterInitiateFunc func(ctx context.Context, paymentID string, intent *checkout.PaymentIntent, err error)

// OnAfterMarkFunc is a callback invoked after a MarkPendingComplete call
// completes. Failures here mean funds moved without reconciliation, which
// deployments typically want to alert on.
type OnAfterMarkFunc func(ctx context.Context, paymentID string, err error)

// Client talks to the checkout backend.
type Client struct {
	// BaseURL is the backend service URL (e.g., "https://api.example.com").
	BaseURL string

	// Client is the HTTP client to use for requests. If nil, http.DefaultClient is used.
	Client *http.Client

	// Timeouts contains timeout configuration for backend operations.
	Timeouts checkout.TimeoutConfig

	// MaxRetries is the maximum number of retry attempts for unavailable
	// responses (default: 0). Set to 0 to disable retries.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts (default: 100ms).
	// Exponential backoff is applied with a multiplier of 2.0.
	RetryDelay time.Duration

	// Authorization is a static Authorization header value.
	// If AuthorizationProvider is also set, the provider takes precedence.
	Authorization string

	// AuthorizationProvider returns a dynamic Authorization header value.
	// If set, this takes precedence over the static Authorization field.
	AuthorizationProvider AuthorizationProvider

	// OnBeforeInitiate is called before InitiatePayment starts.
	// If it returns an error, the operation is aborted immediately.
	OnBeforeInitiate OnBeforeInitiateFunc

	// OnAfterInitiate is called after InitiatePayment completes.
	OnAfterInitiate OnAfterInitiateFunc

	// OnAfterMarkPendingComplete is called after MarkPendingComplete completes.
	OnAfterMarkPendingComplete OnAfterMarkFunc
}

// Client implements the flow's backend dependency.
var _ checkout.IntentService = (*Client)(nil)

// envelope is the response wrapper used by every backend endpoint. Some
// endpoints report a boolean success flag, others a numeric status; both
// are tolerated.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Status  int             `json:"status,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// declined reports whether a 2xx response still carries a failure flag.
func (e *envelope) declined() bool {
	return e.Success != nil && !*e.Success
}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *Client) setAuthorizationHeader(req *http.Request) {
	var authValue string
	if c.AuthorizationProvider != nil {
		authValue = c.AuthorizationProvider(req)
	} else if c.Authorization != "" {
		authValue = c.Authorization
	}
	if authValue != "" {
		req.Header.Set("Authorization", authValue)
	}
}

func (c *Client) retryConfig() retry.Config {
	retryDelay := c.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}

	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retry.Config{
		MaxAttempts:  maxRetries + 1, // +1 because MaxRetries is retry count, not attempt count
		InitialDelay: retryDelay,
		MaxDelay:     retryDelay * 4,
		Multiplier:   2.0,
	}
}

// do performs one backend request and decodes the envelope. A transport
// failure or 5xx maps to ErrBackendUnavailable; any other non-2xx or an
// explicit success=false maps to declineErr carrying the backend message.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, declineErr error) (*envelope, error) {
	if err := validation.ValidateBaseURL(c.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrNotConfigured, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	// Use provided context, apply timeout only if not already set
	reqCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.Timeouts.BackendTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.Timeouts.BackendTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuthorizationHeader(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrBackendUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, parseError(httpResp, checkout.ErrBackendUnavailable)
	}
	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return nil, parseError(httpResp, declineErr)
	}

	var env envelope
	if err := json.NewDecoder(httpResp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if env.declined() {
		return nil, declineWithMessage(declineErr, env.Message)
	}

	return &env, nil
}

// FetchPayment returns the invoice record for the given id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*checkout.Payment, error) {
	if err := validation.ValidatePaymentID(paymentID); err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrInvalidInvoice, err)
	}

	env, err := c.do(ctx, http.MethodGet, "/public/payment/"+paymentID, nil, checkout.ErrInvalidInvoice)
	if err != nil {
		return nil, err
	}

	var payment checkout.Payment
	if err := json.Unmarshal(env.Data, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}
	return &payment, nil
}

// InitiatePayment asks the backend for a signed payment intent binding the
// invoice to the sender. The returned intent's amount, recipient and
// deadline are authoritative over any client-side view of the invoice.
func (c *Client) InitiatePayment(ctx context.Context, paymentID string, sender common.Address) (*checkout.PaymentIntent, error) {
	if err := validation.ValidatePaymentID(paymentID); err != nil {
		return nil, fmt.Errorf("%w: %v", checkout.ErrInvalidInvoice, err)
	}
	if sender == (common.Address{}) {
		return nil, checkout.ErrMissingPayer
	}

	if c.OnBeforeInitiate != nil {
		if err := c.OnBeforeInitiate(ctx, paymentID, sender); err != nil {
			return nil, err
		}
	}

	body := map[string]string{"sender": sender.Hex()}

	intent, resultErr := retry.WithRetry(ctx, c.retryConfig(), isUnavailable, func() (*checkout.PaymentIntent, error) {
		env, err := c.do(ctx, http.MethodPost, "/public/payment/"+paymentID+"/initiate", body, checkout.ErrIntentRejected)
		if err != nil {
			return nil, err
		}

		var intent checkout.PaymentIntent
		if err := json.Unmarshal(env.Data, &intent); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent: %w", err)
		}
		if intent.Signature == "" || intent.ID == "" {
			return nil, fmt.Errorf("%w: backend returned incomplete intent", checkout.ErrInvalidIntent)
		}
		return &intent, nil
	})

	if c.OnAfterInitiate != nil {
		c.OnAfterInitiate(ctx, paymentID, intent, resultErr)
	}

	return intent, resultErr
}

// MarkPendingComplete reports a finalized settlement to the backend,
// transitioning the invoice to pending-complete. Every failure is wrapped
// as ErrReconciliationFailed since the caller's funds have already moved.
func (c *Client) MarkPendingComplete(ctx context.Context, paymentID string, sender common.Address, signature string) error {
	var resultErr error
	switch {
	case validation.ValidatePaymentID(paymentID) != nil:
		resultErr = checkout.ErrInvalidInvoice
	case sender == (common.Address{}):
		resultErr = checkout.ErrMissingPayer
	case signature == "":
		resultErr = fmt.Errorf("%w: missing intent signature", checkout.ErrInvalidIntent)
	default:
		body := map[string]string{"sender": sender.Hex(), "signature": signature}
		_, resultErr = retry.WithRetry(ctx, c.retryConfig(), isUnavailable, func() (*envelope, error) {
			return c.do(ctx, http.MethodPatch, "/public/payment/"+paymentID+"/mark-pending-complete", body, checkout.ErrReconciliationFailed)
		})
		if resultErr != nil && !errors.Is(resultErr, checkout.ErrReconciliationFailed) {
			resultErr = fmt.Errorf("%w: %v", checkout.ErrReconciliationFailed, resultErr)
		}
	}

	if c.OnAfterMarkPendingComplete != nil {
		c.OnAfterMarkPendingComplete(ctx, paymentID, resultErr)
	}

	return resultErr
}

// UpdateCustomerInfo attaches customer contact details to a paid invoice.
// The consumed intent signature serves as proof of payment.
func (c *Client) UpdateCustomerInfo(ctx context.Context, paymentID string, sender common.Address, signature string, customer checkout.Customer) error {
	if err := validation.ValidatePaymentID(paymentID); err != nil {
		return fmt.Errorf("%w: %v", checkout.ErrInvalidInvoice, err)
	}
	if sender == (common.Address{}) {
		return checkout.ErrMissingPayer
	}
	if signature == "" {
		return fmt.Errorf("%w: missing intent signature", checkout.ErrInvalidIntent)
	}

	body := map[string]interface{}{
		"sender":    sender.Hex(),
		"signature": signature,
		"customer":  customer,
	}
	_, err := retry.WithRetry(ctx, c.retryConfig(), isUnavailable, func() (*envelope, error) {
		return c.do(ctx, http.MethodPatch, "/public/payment/"+paymentID+"/customer", body, checkout.ErrCustomerRejected)
	})
	return err
}

// parseError extracts error details from a non-2xx HTTP response.
func parseError(resp *http.Response, baseErr error) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var errBody map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &errBody); err == nil {
		if message, ok := errBody["message"].(string); ok && message != "" {
			return fmt.Errorf("%w: status %d: %s", baseErr, resp.StatusCode, message)
		}
	}

	// If we couldn't parse as JSON, include raw body (truncated)
	if len(bodyBytes) > 0 && len(bodyBytes) < 500 {
		return fmt.Errorf("%w: status %d, body: %s", baseErr, resp.StatusCode, string(bodyBytes))
	}

	return fmt.Errorf("%w: status %d", baseErr, resp.StatusCode)
}

// declineWithMessage wraps a decline sentinel with the backend's message.
func declineWithMessage(baseErr error, message string) error {
	if message == "" {
		return baseErr
	}
	return fmt.Errorf("%w: %s", baseErr, message)
}

// isUnavailable checks if an error is a backend unavailable error.
// It uses errors.Is to properly detect wrapped errors.
func isUnavailable(err error) bool {
	return errors.Is(err, checkout.ErrBackendUnavailable)
}
