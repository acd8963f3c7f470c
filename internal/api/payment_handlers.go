// Package api provides HTTP handlers for the ETA prediction service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/topmanlogistics/etaserve/internal/idempotency"
	"github.com/topmanlogistics/etaserve/internal/middleware"
	"github.com/topmanlogistics/etaserve/internal/paystack"
	"github.com/topmanlogistics/etaserve/internal/validate"
)

// costField is the request field carrying the checkout amount in major
// currency units. The whole request body doubles as checkout metadata so the
// prediction attributes round-trip through the gateway.
const costField = "Cost_of_the_Product"

// IdempotencyKeyHeader lets clients retry checkout initialization safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentHandlers holds dependencies for payment-related HTTP handlers.
type PaymentHandlers struct {
	gateway paystack.Client
	keys    idempotency.Repository
}

// NewPaymentHandlers creates a new PaymentHandlers instance. A nil key
// repository disables idempotent replay.
func NewPaymentHandlers(gateway paystack.Client, keys idempotency.Repository) *PaymentHandlers {
	return &PaymentHandlers{gateway: gateway, keys: keys}
}

// InitializePaymentResponse represents a successful checkout initialization.
type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// InitializePayment creates a hosted checkout session for an order. The body
// must carry the buyer email and the product cost; every other field is
// attached as opaque checkout metadata and comes back through the webhook.
// POST /initialize-payment
func (h *PaymentHandlers) InitializePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idemKey := r.Header.Get(IdempotencyKeyHeader)
	if idemKey != "" && h.keys != nil {
		if err := idempotency.ValidateKey(idemKey); err != nil {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "invalid idempotency key")
			return
		}
		if cached, err := h.keys.Get(idemKey); err == nil {
			slog.InfoContext(ctx, "replaying cached checkout response", "key", idemKey)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("X-Idempotency-Replay", "true")
			w.WriteHeader(cached.ResponseStatusCode)
			if _, err := w.Write([]byte(cached.ResponseBody)); err != nil {
				slog.ErrorContext(ctx, "failed to write cached response", "error", err)
			}
			return
		}
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	email, _ := body["email"].(string)
	amount, hasAmount := numericField(body, costField)

	if email == "" || !hasAmount {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing email or amount")
		return
	}

	normalized, err := validate.Email(email)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "invalid email address")
		return
	}
	if amount <= 0 {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "amount must be positive")
		return
	}

	url, err := h.gateway.Initialize(ctx, normalized, amount, body)
	if err != nil {
		slog.ErrorContext(ctx, "payment initialization failed", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeUpstream)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeUpstream, err.Error())
		return
	}

	resp := InitializePaymentResponse{AuthorizationURL: url}
	if idemKey != "" && h.keys != nil {
		if data, err := json.Marshal(resp); err == nil {
			storeErr := h.keys.Store(&idempotency.Record{
				Key:                idemKey,
				Email:              normalized,
				ResponseBody:       string(data),
				ResponseStatusCode: http.StatusOK,
			})
			if storeErr != nil && !errors.Is(storeErr, idempotency.ErrKeyExists) {
				slog.WarnContext(ctx, "failed to store idempotency key", "key", idemKey, "error", storeErr)
			}
		}
	}

	WriteJSON(w, ctx, http.StatusOK, resp)
}

// numericField extracts a numeric value from a decoded JSON body. Amounts
// occasionally arrive as strings from form frontends, so those parse too.
func numericField(body map[string]any, key string) (float64, bool) {
	switch v := body[key].(type) {
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
