package gateway

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

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
)

const (
	defaultTimeout            = 10 * time.Second
	errorBodyReadLimit  int64 = 4096
	sessionEndpointPath       = "/v1/payment_sessions"
	transactionPath           = "/v1/transactions"
)

var (
	errBaseURLRequired       = errors.New("gateway base url is required")
	errAPIKeyRequired        = errors.New("gateway api key is required")
	errWebhookSecretRequired = errors.New("gateway webhook secret is required")
)

// Client talks to the payment gateway's REST API. All gateway-specific field
// names stay inside this package; callers see only the normalized shapes.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	webhookSecret  string
	minAmountCents int64
	sessionTTL     time.Duration
	logg           *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient validates credentials and builds the gateway wrapper.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errWebhookSecretRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		webhookSecret:  secret,
		minAmountCents: cfg.MinAmountCents,
		sessionTTL:     cfg.SessionTTL,
		logg:           logg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// MinAmountCents returns the smallest chargeable amount.
func (c *Client) MinAmountCents() int64 {
	if c == nil {
		return 0
	}
	return c.minAmountCents
}

// SessionTTL returns the configured payment link expiry window.
func (c *Client) SessionTTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.sessionTTL
}

// SessionRequest carries everything needed to open a hosted payment session.
type SessionRequest struct {
	AmountCents   int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	ExpiresAt     string `json:"expires_at"`
	ReturnURL     string `json:"redirect_url"`
}

// PaymentSession is the normalized create-session response.
type PaymentSession struct {
	SessionID  string
	PaymentURL string
	ExpiresAt  time.Time
}

// Transaction is the normalized transaction-status response.
type Transaction struct {
	ID            string
	Status        string
	AmountCents   int64
	FailureReason string
}

// CreatePaymentSession opens a hosted payment link for the given request.
func (c *Client) CreatePaymentSession(ctx context.Context, req SessionRequest) (*PaymentSession, error) {
	c.log(ctx, "request", "create_payment_session", map[string]any{
		"reference": req.Reference,
		"amount":    req.AmountCents,
		"currency":  req.Currency,
	})

	var payload struct {
		Data struct {
			ID          string `json:"id"`
			PaymentLink string `json:"payment_link_url"`
			ExpiresAt   string `json:"expires_at"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, sessionEndpointPath, req, &payload); err != nil {
		c.log(ctx, "error", "create_payment_session", map[string]any{"error": err.Error()})
		return nil, err
	}

	session := &PaymentSession{
		SessionID:  payload.Data.ID,
		PaymentURL: payload.Data.PaymentLink,
	}
	if ts, err := time.Parse(time.RFC3339, payload.Data.ExpiresAt); err == nil {
		session.ExpiresAt = ts
	}

	c.log(ctx, "response", "create_payment_session", map[string]any{
		"session_id": session.SessionID,
	})
	return session, nil
}

// GetTransaction fetches the gateway's status for one transaction. Used for
// manual reconciliation when a webhook is believed lost.
func (c *Client) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	c.log(ctx, "request", "get_transaction", map[string]any{"transaction_id": trimmed})

	var payload struct {
		Data struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			AmountCents   int64  `json:"amount_in_cents"`
			FailureReason string `json:"status_message"`
		} `json:"data"`
	}
	path := transactionPath + "/" + url.PathEscape(trimmed)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		c.log(ctx, "error", "get_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_transaction", map[string]any{
		"transaction_id": payload.Data.ID,
		"status":         payload.Data.Status,
	})
	return &Transaction{
		ID:            payload.Data.ID,
		Status:        payload.Data.Status,
		AmountCents:   payload.Data.AmountCents,
		FailureReason: payload.Data.FailureReason,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.mapErrorResponse(resp)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}

func (c *Client) mapErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	message := "gateway request rejected"
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	code := codeForStatus(resp.StatusCode)
	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"http_status":  resp.StatusCode,
		"gateway_type": envelope.Error.Type,
	})
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logg == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logg.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logg.Error(ctx, fmt.Sprintf("gateway %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logg.Info(ctx, fmt.Sprintf("gateway %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "cvv", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
