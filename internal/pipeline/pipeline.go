// Package pipeline sequences the payment-to-prediction flow: event filtering,
// payment logging, metadata recovery, feature encoding, classification, and
// audit logging, with defined behavior at each failure point.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/topmanlogistics/etaserve/internal/audit"
	"github.com/topmanlogistics/etaserve/internal/encoding"
	"github.com/topmanlogistics/etaserve/internal/model"
	"github.com/topmanlogistics/etaserve/internal/paystack"
)

// Pipeline runs predictions and writes their audit trail. The classifier and
// encoder are immutable after startup, so a single Pipeline is shared across
// requests.
type Pipeline struct {
	encoder    *encoding.Encoder
	classifier *model.Classifier
	sink       audit.Sink
	metrics    *Metrics
}

// New creates a Pipeline. Metrics may be nil to disable instrumentation.
func New(encoder *encoding.Encoder, classifier *model.Classifier, sink audit.Sink, metrics *Metrics) *Pipeline {
	return &Pipeline{
		encoder:    encoder,
		classifier: classifier,
		sink:       sink,
		metrics:    metrics,
	}
}

// Outcome is the result of processing one webhook event. Exactly one of the
// terminal states applies: filtered (Processed false), prediction failure
// (Err non-nil, failure record written), or success (Label set, completed
// record written).
type Outcome struct {
	Processed bool
	Label     model.Label
	Err       error
}

// ProcessEvent runs the pipeline for a verified webhook event. Events other
// than a confirmed charge terminate with no records written. A confirmed
// charge writes exactly one payment record and exactly one prediction record
// (completed or failed). Audit failures never propagate: the decision already
// communicated to the gateway stands.
func (p *Pipeline) ProcessEvent(ctx context.Context, event *paystack.Event) Outcome {
	if !event.IsSuccessfulCharge() {
		slog.InfoContext(ctx, "ignoring webhook event",
			"event_type", event.Event, "status", event.Data.Status)
		p.countEvent("filtered")
		return Outcome{Processed: false}
	}

	input, err := event.RecoverInput()
	if err != nil {
		// Degrade to an all-zero-vector prediction rather than aborting.
		slog.WarnContext(ctx, "metadata recovery failed, proceeding with empty input",
			"reference", event.Data.Reference, "error", err)
	}
	email := recoveredEmail(input)

	p.appendAudit(ctx, "payment", func() error {
		return p.sink.AppendPayment(ctx, audit.PaymentRecord{
			Status:    audit.StatusSuccess,
			Amount:    event.AmountMajor(),
			Email:     email,
			Reference: event.Data.Reference,
			Channel:   event.Data.Channel,
			Raw:       event.RawData,
		})
	})

	label, err := p.classify(encoding.CoerceNumeric(input))
	if err != nil {
		slog.ErrorContext(ctx, "prediction after payment failed",
			"reference", event.Data.Reference, "error", err)
		p.appendAudit(ctx, "prediction", func() error {
			return p.sink.AppendPrediction(ctx, audit.PredictionRecord{
				Status:           audit.StatusFailed,
				Error:            err.Error(),
				Email:            email,
				PaymentReference: event.Data.Reference,
			})
		})
		p.countPrediction("", audit.StatusFailed)
		p.countEvent("prediction_failed")
		return Outcome{Processed: true, Err: err}
	}

	slog.InfoContext(ctx, "prediction completed",
		"reference", event.Data.Reference, "prediction", string(label))
	p.appendAudit(ctx, "prediction", func() error {
		return p.sink.AppendPrediction(ctx, audit.PredictionRecord{
			Input:            input,
			Prediction:       string(label),
			Status:           audit.StatusCompleted,
			Email:            email,
			PaymentReference: event.Data.Reference,
		})
	})
	p.countPrediction(label, audit.StatusCompleted)
	p.countEvent("processed")
	return Outcome{Processed: true, Label: label}
}

// Predict runs the direct prediction path, skipping payment and metadata
// recovery. Both outcomes still write an audit record.
func (p *Pipeline) Predict(ctx context.Context, input encoding.Input) (model.Label, error) {
	label, err := p.classify(input)
	if err != nil {
		p.appendAudit(ctx, "prediction", func() error {
			return p.sink.AppendPrediction(ctx, audit.PredictionRecord{
				Status: audit.StatusFailed,
				Error:  err.Error(),
			})
		})
		p.countPrediction("", audit.StatusFailed)
		return "", err
	}

	p.appendAudit(ctx, "prediction", func() error {
		return p.sink.AppendPrediction(ctx, audit.PredictionRecord{
			Input:      input,
			Prediction: string(label),
			Status:     audit.StatusCompleted,
		})
	})
	p.countPrediction(label, audit.StatusCompleted)
	return label, nil
}

// classify encodes the input and scores it.
func (p *Pipeline) classify(input encoding.Input) (model.Label, error) {
	vector, err := p.encoder.Encode(input)
	if err != nil {
		return "", err
	}
	return p.classifier.Classify(vector)
}

// appendAudit writes an audit record best-effort. A sink failure is logged
// and swallowed; it never aborts or rolls back the pipeline decision.
func (p *Pipeline) appendAudit(ctx context.Context, kind string, append func() error) {
	if err := append(); err != nil {
		slog.ErrorContext(ctx, "audit record write failed", "kind", kind, "error", err)
		p.countAuditFailure(kind)
	}
}

// recoveredEmail pulls the buyer email out of the recovered metadata, matching
// what was attached at checkout initialization.
func recoveredEmail(input encoding.Input) string {
	if email, ok := input["email"].(string); ok && email != "" {
		return email
	}
	return "unknown"
}

func (p *Pipeline) countEvent(outcome string) {
	if p.metrics != nil {
		p.metrics.webhookEvents.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) countPrediction(label model.Label, status string) {
	if p.metrics != nil {
		p.metrics.predictions.WithLabelValues(string(label), status).Inc()
	}
}

func (p *Pipeline) countAuditFailure(kind string) {
	if p.metrics != nil {
		p.metrics.auditFailures.WithLabelValues(kind).Inc()
	}
}
