package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/topmanlogistics/etaserve/internal/audit"
	"github.com/topmanlogistics/etaserve/internal/middleware"
	"github.com/topmanlogistics/etaserve/internal/tracking"
	"github.com/topmanlogistics/etaserve/internal/validate"
)

// TrackingHandlers holds dependencies for carrier-tracking passthrough endpoints.
type TrackingHandlers struct {
	client *tracking.Client
	sink   audit.Sink
}

// NewTrackingHandlers creates a new TrackingHandlers instance.
func NewTrackingHandlers(client *tracking.Client, sink audit.Sink) *TrackingHandlers {
	return &TrackingHandlers{client: client, sink: sink}
}

// CreateTrackingRequest represents the request body for registering a shipment.
type CreateTrackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	CarrierCode    string `json:"carrier_code"`
	Title          string `json:"title"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
}

// CreateTracking registers a shipment with the tracking provider and passes
// the provider's response through.
// POST /track
func (h *TrackingHandlers) CreateTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	trackingNumber, err := validate.TrackingNumber(req.TrackingNumber)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "tracking_number is required")
		return
	}

	body, err := h.client.Create(ctx, tracking.CreateParams{
		TrackingNumber: trackingNumber,
		CarrierCode:    req.CarrierCode,
		Title:          req.Title,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
	})
	if err != nil {
		slog.ErrorContext(ctx, "tracking creation failed", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeUpstream)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeUpstream, "Tracking creation failed: "+err.Error())
		return
	}

	writeRawJSON(w, ctx, body)
}

// GetTrackingStatus looks up a shipment's delivery status, records the result
// best-effort, and passes the provider's response through.
// GET /track/status?tracking_number=...&carrier_code=...
func (h *TrackingHandlers) GetTrackingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	trackingNumber, err := validate.TrackingNumber(r.URL.Query().Get("tracking_number"))
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "tracking_number is required")
		return
	}
	carrierCode := r.URL.Query().Get("carrier_code")

	result, err := h.client.GetStatus(ctx, trackingNumber, carrierCode)
	if err != nil {
		if errors.Is(err, tracking.ErrPlanRequired) {
			ctx = middleware.SetErrorCode(ctx, ErrCodePlanRequired)
			WriteError(w, ctx, http.StatusForbidden, ErrCodePlanRequired,
				"This feature requires a paid tracking API plan. Please upgrade your account.")
			return
		}
		slog.ErrorContext(ctx, "tracking status lookup failed", "tracking_number", trackingNumber, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeUpstream)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeUpstream, "Tracking status check failed: "+err.Error())
		return
	}

	// Status logging is best-effort; the passthrough response already left
	// the provider, so a sink failure never surfaces to the caller.
	if result.Shipment != nil {
		record := audit.TrackingRecord{
			TrackingNumber: trackingNumber,
			CarrierCode:    carrierCode,
			DeliveryStatus: result.Shipment.DeliveryStatus,
			LatestEvent:    result.Shipment.LatestEvent,
			Checkpoints:    result.Shipment.Checkpoints,
			Raw:            result.Shipment.Raw,
		}
		if record.CarrierCode == "" {
			record.CarrierCode = tracking.DefaultCarrierCode
		}
		if err := h.sink.AppendTracking(ctx, record); err != nil {
			slog.ErrorContext(ctx, "tracking record write failed", "tracking_number", trackingNumber, "error", err)
		}
	}

	writeRawJSON(w, ctx, result.Body)
}

// writeRawJSON passes a pre-encoded JSON body through verbatim.
func writeRawJSON(w http.ResponseWriter, ctx context.Context, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(ctx, "failed to write passthrough response", "error", err)
	}
}
