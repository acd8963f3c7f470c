// Package paystack provides the Paystack gateway integration: checkout
// initialization, webhook signature verification, event parsing, and
// processed-event tracking.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Paystack API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// defaultTimeout bounds every outbound gateway call.
const defaultTimeout = 10 * time.Second

// Client errors.
var (
	ErrMissingEmail  = errors.New("email is required")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Client is an interface for gateway operations to enable testing with fakes.
type Client interface {
	// Initialize creates a hosted checkout session and returns the
	// authorization URL the buyer completes payment at. Amount is in major
	// currency units; metadata is passed through to the gateway opaquely and
	// echoed back verbatim in the webhook payload.
	Initialize(ctx context.Context, email string, amountMajor float64, metadata map[string]any) (string, error)
}

// ClientConfig holds construction parameters for the HTTP client.
type ClientConfig struct {
	SecretKey   string
	Currency    string // ISO currency code, e.g. "GHS"
	CallbackURL string // Browser redirect after checkout completes
	BaseURL     string // Defaults to DefaultBaseURL
	Timeout     time.Duration
}

// HTTPClient implements Client against the Paystack REST API.
type HTTPClient struct {
	baseURL     string
	secretKey   string
	currency    string
	callbackURL string
	httpClient  *http.Client
}

// NewHTTPClient creates a gateway client with a bounded request timeout.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		baseURL:     baseURL,
		secretKey:   cfg.SecretKey,
		currency:    cfg.Currency,
		callbackURL: cfg.CallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// initializeRequest is the transaction/initialize request body. Amount is in
// the minor currency unit per the Paystack API.
type initializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

// initializeResponse is the transaction/initialize response envelope.
type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize creates a hosted checkout session.
func (c *HTTPClient) Initialize(ctx context.Context, email string, amountMajor float64, metadata map[string]any) (string, error) {
	if email == "" {
		return "", ErrMissingEmail
	}
	if amountMajor <= 0 {
		return "", ErrInvalidAmount
	}

	// Callers supply major units; the gateway takes the minor unit.
	body := initializeRequest{
		Email:       email,
		Amount:      int64(math.Round(amountMajor * 100)),
		Currency:    c.currency,
		Metadata:    metadata,
		CallbackURL: c.callbackURL,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment initialization failed: %w", err)
	}
	defer resp.Body.Close()

	var res initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !res.Status {
		message := res.Message
		if message == "" {
			message = "payment init failed"
		}
		return "", fmt.Errorf("gateway rejected initialization: %s", message)
	}

	return res.Data.AuthorizationURL, nil
}
