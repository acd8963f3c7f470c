// Package tracking provides the carrier-tracking provider integration. The
// service passes provider responses through to callers and records status
// lookups best-effort; carrier semantics stay with the provider.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the production TrackingMore API endpoint.
const DefaultBaseURL = "https://api.trackingmore.com"

// apiKeyHeader authenticates requests to the provider.
const apiKeyHeader = "Tracking-Api-Key"

const defaultTimeout = 10 * time.Second

// Defaults applied when the caller omits optional create fields.
const (
	DefaultCarrierCode   = "auto"
	DefaultTitle         = "ETA Prediction Shipment"
	DefaultCustomerName  = "Topman User"
	DefaultCustomerEmail = "user@example.com"
)

// Client errors.
var (
	// ErrMissingTrackingNumber is returned when no tracking number is supplied.
	ErrMissingTrackingNumber = errors.New("tracking_number is required")
	// ErrPlanRequired is returned when the provider reports the request needs
	// a paid API plan (meta code 203).
	ErrPlanRequired = errors.New("tracking feature requires a paid provider plan")
	// ErrUnexpectedFormat is returned when the provider's shipment data has an
	// unrecognized shape.
	ErrUnexpectedFormat = errors.New("unexpected tracking data format")
)

// CreateParams are the inputs for registering a shipment with the provider.
type CreateParams struct {
	TrackingNumber string
	CarrierCode    string
	Title          string
	CustomerName   string
	CustomerEmail  string
}

// Shipment is the normalized subset of a provider status response the service
// records for auditing.
type Shipment struct {
	DeliveryStatus string          `json:"delivery_status"`
	LatestEvent    string          `json:"latest_event"`
	Checkpoints    json.RawMessage `json:"checkpoints,omitempty"`
	Raw            json.RawMessage `json:"-"`
}

// StatusResult carries a status lookup result. Body is the provider response
// passed through verbatim to the caller; Shipment is non-nil only when the
// provider reported meta code 200 and the shipment normalized cleanly.
type StatusResult struct {
	Body     json.RawMessage
	Shipment *Shipment
}

// Client calls the TrackingMore v3 API with bounded timeouts.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a tracking client. An empty baseURL selects production.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Create registers a shipment with the provider and returns the provider's
// response verbatim.
func (c *Client) Create(ctx context.Context, params CreateParams) (json.RawMessage, error) {
	if params.TrackingNumber == "" {
		return nil, ErrMissingTrackingNumber
	}
	applyDefaults(&params)

	payload, err := json.Marshal(map[string]string{
		"tracking_number": params.TrackingNumber,
		"carrier_code":    params.CarrierCode,
		"title":           params.Title,
		"customer_name":   params.CustomerName,
		"customer_email":  params.CustomerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create request: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/v3/trackings/create", payload)
}

// GetStatus looks up a shipment's delivery status. The provider's meta code
// drives the outcome: 203 means the account plan does not cover the lookup,
// 200 yields a normalized shipment for audit logging, anything else passes
// through without one.
func (c *Client) GetStatus(ctx context.Context, trackingNumber, carrierCode string) (*StatusResult, error) {
	if trackingNumber == "" {
		return nil, ErrMissingTrackingNumber
	}
	if carrierCode == "" {
		carrierCode = DefaultCarrierCode
	}

	path := "/v3/trackings/get?" + url.Values{
		"carrier_code":    {carrierCode},
		"tracking_number": {trackingNumber},
	}.Encode()

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{Body: body}
	switch metaCode(body) {
	case 203:
		return nil, ErrPlanRequired
	case 200:
		shipment, err := normalizeShipment(body)
		if err != nil {
			return nil, err
		}
		result.Shipment = shipment
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (json.RawMessage, error) {
	var reader *bytes.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build tracking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracking provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode tracking response: %w", err)
	}
	return body, nil
}

// metaCode extracts the provider's status code, which appears either under
// meta.code or as a top-level code depending on the endpoint.
func metaCode(body json.RawMessage) int {
	var envelope struct {
		Meta struct {
			Code int `json:"code"`
		} `json:"meta"`
		Code int `json:"code"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0
	}
	if envelope.Meta.Code != 0 {
		return envelope.Meta.Code
	}
	return envelope.Code
}

// normalizeShipment pulls the shipment object out of a 200 response. The
// provider returns either a single object or a list with the shipment first.
func normalizeShipment(body json.RawMessage) (*Shipment, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Data) == 0 {
		return nil, ErrUnexpectedFormat
	}

	raw := envelope.Data
	var list []json.RawMessage
	if err := json.Unmarshal(envelope.Data, &list); err == nil {
		if len(list) == 0 {
			return nil, ErrUnexpectedFormat
		}
		raw = list[0]
	}

	var detail struct {
		DeliveryStatus string `json:"delivery_status"`
		LatestEvent    string `json:"latest_event"`
		OriginInfo     struct {
			TrackInfo json.RawMessage `json:"trackinfo"`
		} `json:"origin_info"`
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, ErrUnexpectedFormat
	}

	status := detail.DeliveryStatus
	if status == "" {
		status = "unknown"
	}
	return &Shipment{
		DeliveryStatus: status,
		LatestEvent:    detail.LatestEvent,
		Checkpoints:    detail.OriginInfo.TrackInfo,
		Raw:            raw,
	}, nil
}

func applyDefaults(params *CreateParams) {
	if params.CarrierCode == "" {
		params.CarrierCode = DefaultCarrierCode
	}
	if params.Title == "" {
		params.Title = DefaultTitle
	}
	if params.CustomerName == "" {
		params.CustomerName = DefaultCustomerName
	}
	if params.CustomerEmail == "" {
		params.CustomerEmail = DefaultCustomerEmail
	}
}
