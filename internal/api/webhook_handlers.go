package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/topmanlogistics/etaserve/internal/middleware"
	"github.com/topmanlogistics/etaserve/internal/paystack"
	"github.com/topmanlogistics/etaserve/internal/pipeline"
)

// WebhookHandlers holds dependencies for gateway webhook processing.
type WebhookHandlers struct {
	secret     string
	pipeline   *pipeline.Pipeline
	eventStore paystack.EventStore
}

// NewWebhookHandlers creates a new WebhookHandlers instance.
func NewWebhookHandlers(secret string, p *pipeline.Pipeline, eventStore paystack.EventStore) *WebhookHandlers {
	return &WebhookHandlers{
		secret:     secret,
		pipeline:   p,
		eventStore: eventStore,
	}
}

// webhookAck is the body the gateway receives for every verified delivery.
var webhookAck = map[string]string{"status": "webhook received"}

// HandlePaystackWebhook processes gateway webhook events with signature
// verification. Once the signature verifies, the response is always 200 so
// the gateway never retry-storms over application-level failures.
// POST /paystack/webhook
func (h *WebhookHandlers) HandlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The signature covers the exact raw bytes; read before any parsing.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get(paystack.SignatureHeader)
	if !paystack.VerifySignature(body, signature, h.secret) {
		slog.WarnContext(ctx, "webhook signature verification failed")
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidSignature)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidSignature, "invalid signature")
		return
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		// Authenticated but unparseable: acknowledge so the gateway does not
		// retry a payload we will never be able to process.
		slog.ErrorContext(ctx, "failed to parse verified webhook event", "error", err)
		WriteJSON(w, ctx, http.StatusOK, webhookAck)
		return
	}

	slog.InfoContext(ctx, "webhook event received",
		"event_type", event.Event, "reference", event.Data.Reference)

	if key := event.DedupeKey(); key != "" && h.eventStore != nil {
		if err := h.eventStore.Record(ctx, key); err != nil {
			if errors.Is(err, paystack.ErrEventAlreadyProcessed) {
				slog.InfoContext(ctx, "webhook event already processed, ignoring", "key", key)
				WriteJSON(w, ctx, http.StatusOK, webhookAck)
				return
			}
			// Dedupe store trouble must not drop a paid event; proceed and
			// rely on the audit trail to surface duplicates.
			slog.ErrorContext(ctx, "failed to record webhook event", "key", key, "error", err)
		}
	}

	h.pipeline.ProcessEvent(ctx, event)

	WriteJSON(w, ctx, http.StatusOK, webhookAck)
}
