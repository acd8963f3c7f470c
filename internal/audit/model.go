// Package audit provides append-only recording of pipeline outcomes for
// traceability. Records are written once at request time and never read back,
// updated, or deleted by the pipeline.
package audit

import (
	"encoding/json"
	"time"

	"github.com/topmanlogistics/etaserve/internal/encoding"
)

// Record statuses.
const (
	// StatusCompleted marks a prediction that ran to completion.
	StatusCompleted = "completed"
	// StatusFailed marks the error-path counterpart of a prediction record.
	// It exists for observability, not to drive retries.
	StatusFailed = "failed"
	// StatusSuccess marks a confirmed gateway payment.
	StatusSuccess = "success"
)

// PredictionRecord captures one classification outcome, successful or failed.
type PredictionRecord struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	Input            encoding.Input `json:"input,omitempty"`
	Prediction       string         `json:"prediction,omitempty"`
	Status           string         `json:"status"` // completed or failed
	Error            string         `json:"error,omitempty"`
	Email            string         `json:"email,omitempty"`
	PaymentReference string         `json:"payment_reference,omitempty"`
}

// PaymentRecord captures one confirmed gateway transaction. Amount is in
// major currency units; the gateway reports minor units.
type PaymentRecord struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
	Amount    float64         `json:"amount"`
	Email     string          `json:"email"`
	Reference string          `json:"reference"`
	Channel   string          `json:"channel,omitempty"`
	Raw       json.RawMessage `json:"raw_response,omitempty"`
}

// TrackingRecord captures one carrier status lookup.
type TrackingRecord struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	TrackingNumber string          `json:"tracking_number"`
	CarrierCode    string          `json:"carrier_code"`
	DeliveryStatus string          `json:"delivery_status"`
	LatestEvent    string          `json:"latest_event,omitempty"`
	Checkpoints    json.RawMessage `json:"checkpoints,omitempty"`
	Raw            json.RawMessage `json:"raw_data,omitempty"`
}
