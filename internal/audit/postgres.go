package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/topmanlogistics/etaserve/internal/tracing"
)

// PostgresSink implements Sink using PostgreSQL. Records map to the
// predictions, payments, and tracking_status_logs tables (see migrations/).
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a new Postgres-backed audit sink.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// AppendPrediction records a prediction outcome.
func (s *PostgresSink) AppendPrediction(ctx context.Context, record PredictionRecord) error {
	stamp(&record.ID, &record.Timestamp)

	var input []byte
	if record.Input != nil {
		var err error
		input, err = json.Marshal(record.Input)
		if err != nil {
			return fmt.Errorf("failed to marshal prediction input: %w", err)
		}
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "predictions", tracing.DBOperationInsert)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, created_at, input, prediction, status, error, email, payment_reference)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))`,
		record.ID, record.Timestamp, nullJSON(input), record.Prediction,
		record.Status, record.Error, record.Email, record.PaymentReference,
	)
	endSpan(err)
	if err != nil {
		return fmt.Errorf("failed to insert prediction record: %w", err)
	}
	return nil
}

// AppendPayment records a confirmed gateway payment.
func (s *PostgresSink) AppendPayment(ctx context.Context, record PaymentRecord) error {
	stamp(&record.ID, &record.Timestamp)

	ctx, endSpan := tracing.StartDBSpan(ctx, "payments", tracing.DBOperationInsert)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, created_at, status, amount, email, reference, channel, raw_response)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
		record.ID, record.Timestamp, record.Status, record.Amount,
		record.Email, record.Reference, record.Channel, nullJSON(record.Raw),
	)
	endSpan(err)
	if err != nil {
		return fmt.Errorf("failed to insert payment record: %w", err)
	}
	return nil
}

// AppendTracking records a carrier status lookup.
func (s *PostgresSink) AppendTracking(ctx context.Context, record TrackingRecord) error {
	stamp(&record.ID, &record.Timestamp)

	ctx, endSpan := tracing.StartDBSpan(ctx, "tracking_status_logs", tracing.DBOperationInsert)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracking_status_logs (id, created_at, tracking_number, carrier_code, delivery_status, latest_event, checkpoints, raw_data)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		record.ID, record.Timestamp, record.TrackingNumber, record.CarrierCode,
		record.DeliveryStatus, record.LatestEvent, nullJSON(record.Checkpoints), nullJSON(record.Raw),
	)
	endSpan(err)
	if err != nil {
		return fmt.Errorf("failed to insert tracking record: %w", err)
	}
	return nil
}

// Diagnostic writes a throwaway connectivity probe row at startup. Failure is
// reported to the caller but is not fatal to the process.
func (s *PostgresSink) Diagnostic(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnostic_probes (id, created_at, note)
		VALUES ($1, $2, $3)`,
		uuid.New().String(), time.Now().UTC(), "connected",
	)
	if err != nil {
		return fmt.Errorf("audit store diagnostic probe failed: %w", err)
	}
	return nil
}

// nullJSON maps empty JSON payloads to SQL NULL so jsonb columns stay clean.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
