package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/topmanlogistics/etaserve/internal/audit"
	"github.com/topmanlogistics/etaserve/internal/encoding"
	"github.com/topmanlogistics/etaserve/internal/model"
	"github.com/topmanlogistics/etaserve/internal/paystack"
	"github.com/topmanlogistics/etaserve/internal/pipeline"
)

const testWebhookSecret = "sk_test_webhook_secret"

var handlerTestColumns = []string{
	"Cost_of_the_Product",
	"Weight_in_gms",
	"distance",
	"Mode_of_Shipment_Flight",
	"Mode_of_Shipment_Ship",
	"Warehouse_block_A",
	"Warehouse_block_F",
}

func newTestPipeline(t *testing.T, sink audit.Sink) *pipeline.Pipeline {
	t.Helper()
	classifier, err := model.Load(filepath.Join("..", "model", "testdata", "eta_model.json"))
	if err != nil {
		t.Fatalf("failed to load test classifier: %v", err)
	}
	return pipeline.New(encoding.NewEncoder(handlerTestColumns), classifier, sink, nil)
}

// signBody computes the gateway's HMAC-SHA512 hex signature for a payload.
func signBody(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/paystack/webhook", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(paystack.SignatureHeader, signature)
	}
	return req
}

const chargeSuccessBody = `{
	"event": "charge.success",
	"data": {
		"status": "success",
		"amount": 5000,
		"reference": "ref_abc",
		"channel": "card",
		"metadata": {"custom_fields": [{"variable_name": "payload", "value": "{\"distance\":12,\"email\":\"buyer@example.com\"}"}]}
	}
}`

func TestHandlePaystackWebhook_SuccessPath(t *testing.T) {
	sink := audit.NewInMemorySink()
	h := NewWebhookHandlers(testWebhookSecret, newTestPipeline(t, sink), nil)

	body := []byte(chargeSuccessBody)
	rec := httptest.NewRecorder()
	h.HandlePaystackWebhook(rec, webhookRequest(body, signBody(body, testWebhookSecret)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var ack map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack["status"] != "webhook received" {
		t.Errorf(`ack status = %q, want "webhook received"`, ack["status"])
	}

	payments := sink.Payments()
	if len(payments) != 1 {
		t.Fatalf("len(Payments()) = %d, want 1", len(payments))
	}
	if payments[0].Amount != 50.0 {
		t.Errorf("payment amount = %v, want 50.0 major units", payments[0].Amount)
	}
	if payments[0].Email != "buyer@example.com" {
		t.Errorf("payment email = %q", payments[0].Email)
	}

	predictions := sink.Predictions()
	if len(predictions) != 1 {
		t.Fatalf("len(Predictions()) = %d, want 1", len(predictions))
	}
	if predictions[0].Status != audit.StatusCompleted {
		t.Errorf("prediction status = %q, want completed", predictions[0].Status)
	}
}

func TestHandlePaystackWebhook_InvalidSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature func(body []byte) string
	}{
		{"missing signature", func([]byte) string { return "" }},
		{"wrong secret", func(body []byte) string { return signBody(body, "sk_other_secret") }},
		{"tampered signature", func(body []byte) string {
			sig := signBody(body, testWebhookSecret)
			return sig[:len(sig)-1] + "0"
		}},
		{"tampered body", func([]byte) string {
			return signBody([]byte(`{"event":"charge.success","data":{"amount":1}}`), testWebhookSecret)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := audit.NewInMemorySink()
			h := NewWebhookHandlers(testWebhookSecret, newTestPipeline(t, sink), nil)

			body := []byte(chargeSuccessBody)
			rec := httptest.NewRecorder()
			h.HandlePaystackWebhook(rec, webhookRequest(body, tt.signature(body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if errResp.Error.Code != ErrCodeInvalidSignature {
				t.Errorf("error code = %q, want %q", errResp.Error.Code, ErrCodeInvalidSignature)
			}
			if got := len(sink.Payments()) + len(sink.Predictions()); got != 0 {
				t.Errorf("rejected delivery wrote %d records, want 0", got)
			}
		})
	}
}

func TestHandlePaystackWebhook_ReserializedBodyRejected(t *testing.T) {
	// The signature covers exact raw bytes; a semantically equal body with
	// different whitespace must not verify.
	sink := audit.NewInMemorySink()
	h := NewWebhookHandlers(testWebhookSecret, newTestPipeline(t, sink), nil)

	original := []byte(chargeSuccessBody)
	reserialized := []byte(strings.ReplaceAll(string(original), "\n", ""))

	rec := httptest.NewRecorder()
	h.HandlePaystackWebhook(rec, webhookRequest(reserialized, signBody(original, testWebhookSecret)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for re-serialized body", rec.Code)
	}
}

func TestHandlePaystackWebhook_FilteredEventsAcknowledged(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"failed charge", `{"event":"charge.failed","data":{"status":"failed","amount":5000,"reference":"ref_1"}}`},
		{"pending status", `{"event":"charge.success","data":{"status":"pending","amount":5000,"reference":"ref_2"}}`},
		{"unrelated event", `{"event":"transfer.success","data":{"status":"success","amount":5000,"reference":"ref_3"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := audit.NewInMemorySink()
			h := NewWebhookHandlers(testWebhookSecret, newTestPipeline(t, sink), nil)

			body := []byte(tt.body)
			rec := httptest.NewRecorder()
			h.HandlePaystackWebhook(rec, webhookRequest(body, signBody(body, testWebhookSecret)))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 for verified but ignored event", rec.Code)
			}
			if got := len(sink.Payments()) + len(sink.Predictions()); got != 0 {
				t.Errorf("ignored event wrote %d records, want 0", got)
			}
		})
	}
}

func TestHandlePaystackWebhook_UnparseableVerifiedBodyAcknowledged(t *testing.T) {
	sink := audit.NewInMemorySink()
	h := NewWebhookHandlers(testWebhookSecret, newTestPipeline(t, sink), nil)

	body := []byte("not json at all")
	rec := httptest.NewRecorder()
	h.HandlePaystackWebhook(rec, webhookRequest(body, signBody(body, testWebhookSecret)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for authenticated but unparseable body", rec.Code)
	}
	if got := len(sink.Payments()) + len(sink.Predictions()); got != 0 {
		t.Errorf("unparseable body wrote %d records, want 0", got)
	}
}

func TestHandlePaystackWebhook_DuplicateDeliveryIgnored(t *testing.T) {
	sink := audit.NewInMemorySink()
	h := NewWebhookHandlers(testWebhookSecret, newTestPipeline(t, sink), paystack.NewInMemoryEventStore())

	body := []byte(chargeSuccessBody)
	sig := signBody(body, testWebhookSecret)

	first := httptest.NewRecorder()
	h.HandlePaystackWebhook(first, webhookRequest(body, sig))
	second := httptest.NewRecorder()
	h.HandlePaystackWebhook(second, webhookRequest(body, sig))

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want 200 for both deliveries", first.Code, second.Code)
	}
	if len(sink.Payments()) != 1 {
		t.Errorf("len(Payments()) = %d, want 1 despite duplicate delivery", len(sink.Payments()))
	}
	if len(sink.Predictions()) != 1 {
		t.Errorf("len(Predictions()) = %d, want 1 despite duplicate delivery", len(sink.Predictions()))
	}
}

// downSink rejects every append to exercise the best-effort contract.
type downSink struct{}

var errSinkDown = errors.New("sink unavailable")

func (downSink) AppendPrediction(context.Context, audit.PredictionRecord) error { return errSinkDown }
func (downSink) AppendPayment(context.Context, audit.PaymentRecord) error       { return errSinkDown }
func (downSink) AppendTracking(context.Context, audit.TrackingRecord) error     { return errSinkDown }

// The webhook must still acknowledge when the audit sink is down.
func TestHandlePaystackWebhook_SinkFailureStillAcknowledged(t *testing.T) {
	h := NewWebhookHandlers(testWebhookSecret, newTestPipeline(t, downSink{}), nil)

	body := []byte(chargeSuccessBody)
	rec := httptest.NewRecorder()
	h.HandlePaystackWebhook(rec, webhookRequest(body, signBody(body, testWebhookSecret)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite sink failure", rec.Code)
	}
}
