package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/topmanlogistics/etaserve/internal/encoding"
	"github.com/topmanlogistics/etaserve/internal/middleware"
	"github.com/topmanlogistics/etaserve/internal/pipeline"
)

// PredictHandlers holds dependencies for the direct prediction endpoint.
type PredictHandlers struct {
	pipeline *pipeline.Pipeline
}

// NewPredictHandlers creates a new PredictHandlers instance.
func NewPredictHandlers(p *pipeline.Pipeline) *PredictHandlers {
	return &PredictHandlers{pipeline: p}
}

// PredictResponse represents a successful prediction.
type PredictResponse struct {
	Prediction string `json:"prediction"`
}

// Predict classifies an order's attributes directly, skipping payment and
// metadata recovery. This is an unauthenticated convenience endpoint.
// POST /predict
func (h *PredictHandlers) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input encoding.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	label, err := h.pipeline.Predict(ctx, input)
	if err != nil {
		slog.ErrorContext(ctx, "prediction failed", "attributes", encoding.SortedKeys(input), "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodePredictionFailed)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodePredictionFailed, "Prediction failed: "+err.Error())
		return
	}

	WriteJSON(w, ctx, http.StatusOK, PredictResponse{Prediction: string(label)})
}
