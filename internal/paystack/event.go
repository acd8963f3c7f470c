package paystack

import (
	"encoding/json"
	"fmt"

	"github.com/topmanlogistics/etaserve/internal/encoding"
)

// EventChargeSuccess is the only event type the prediction pipeline acts on.
const EventChargeSuccess = "charge.success"

// StatusSuccess is the transaction status required alongside EventChargeSuccess.
const StatusSuccess = "success"

// MetadataPayloadField is the custom-field name carrying the serialized
// prediction input through checkout metadata.
const MetadataPayloadField = "payload"

// CustomField is one entry of the metadata custom_fields list the gateway
// echoes back verbatim.
type CustomField struct {
	DisplayName  string `json:"display_name,omitempty"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

// Metadata is the checkout metadata blob inside a webhook payload.
type Metadata struct {
	CustomFields []CustomField `json:"custom_fields"`
}

// EventData is the transaction detail of a webhook event. Amount is in the
// minor currency unit as reported by the gateway.
type EventData struct {
	Status    string   `json:"status"`
	Amount    int64    `json:"amount"`
	Reference string   `json:"reference"`
	Channel   string   `json:"channel"`
	Metadata  Metadata `json:"metadata"`
}

// Event is a parsed gateway webhook notification. RawData preserves the
// byte-exact data object for audit records.
type Event struct {
	Event   string
	Data    EventData
	RawData json.RawMessage
}

// ParseEvent decodes a webhook body into an Event. It must only be called
// after the body's signature has been verified.
func ParseEvent(body []byte) (*Event, error) {
	var envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}

	event := &Event{Event: envelope.Event, RawData: envelope.Data}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &event.Data); err != nil {
			return nil, fmt.Errorf("failed to parse webhook event data: %w", err)
		}
	}
	return event, nil
}

// IsSuccessfulCharge reports whether the event is a confirmed charge the
// pipeline should process. Every other event type or status is acknowledged
// and ignored.
func (e *Event) IsSuccessfulCharge() bool {
	return e.Event == EventChargeSuccess && e.Data.Status == StatusSuccess
}

// AmountMajor converts the gateway-reported minor-unit amount to major
// currency units for audit records.
func (e *Event) AmountMajor() float64 {
	return float64(e.Data.Amount) / 100
}

// DedupeKey identifies the event for idempotency tracking. Paystack does not
// assign event IDs, so the transaction reference plus event type stands in.
// Empty when the payload carries no reference.
func (e *Event) DedupeKey() string {
	if e.Data.Reference == "" {
		return ""
	}
	return e.Event + ":" + e.Data.Reference
}

// RecoverInput extracts the prediction input embedded in the checkout
// metadata's designated custom field. A missing or unparseable field yields an
// empty input and a non-nil error; the pipeline proceeds with the empty input
// and degrades to an all-zero-vector prediction rather than aborting.
func (e *Event) RecoverInput() (encoding.Input, error) {
	for _, field := range e.Data.Metadata.CustomFields {
		if field.VariableName != MetadataPayloadField {
			continue
		}

		input := encoding.Input{}
		if err := json.Unmarshal([]byte(field.Value), &input); err != nil {
			return encoding.Input{}, fmt.Errorf("failed to parse metadata payload: %w", err)
		}
		return input, nil
	}
	return encoding.Input{}, fmt.Errorf("metadata custom field %q not found", MetadataPayloadField)
}
