package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink is the append-only store for pipeline outcomes. The pipeline holds the
// only write path; nothing reads records back at request time. Implementations
// must be safe for concurrent append.
type Sink interface {
	// AppendPrediction records a prediction outcome. The sink assigns the
	// record ID and timestamp.
	AppendPrediction(ctx context.Context, record PredictionRecord) error

	// AppendPayment records a confirmed gateway payment.
	AppendPayment(ctx context.Context, record PaymentRecord) error

	// AppendTracking records a carrier status lookup.
	AppendTracking(ctx context.Context, record TrackingRecord) error
}

// InMemorySink is an in-memory Sink implementation used for testing and
// development. Thread-safe via mutex.
type InMemorySink struct {
	mu          sync.RWMutex
	predictions []PredictionRecord
	payments    []PaymentRecord
	trackings   []TrackingRecord
}

// NewInMemorySink creates a new in-memory audit sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// AppendPrediction records a prediction outcome.
func (s *InMemorySink) AppendPrediction(_ context.Context, record PredictionRecord) error {
	stamp(&record.ID, &record.Timestamp)

	s.mu.Lock()
	s.predictions = append(s.predictions, record)
	s.mu.Unlock()
	return nil
}

// AppendPayment records a confirmed gateway payment.
func (s *InMemorySink) AppendPayment(_ context.Context, record PaymentRecord) error {
	stamp(&record.ID, &record.Timestamp)

	s.mu.Lock()
	s.payments = append(s.payments, record)
	s.mu.Unlock()
	return nil
}

// AppendTracking records a carrier status lookup.
func (s *InMemorySink) AppendTracking(_ context.Context, record TrackingRecord) error {
	stamp(&record.ID, &record.Timestamp)

	s.mu.Lock()
	s.trackings = append(s.trackings, record)
	s.mu.Unlock()
	return nil
}

// Predictions returns a copy of all appended prediction records, in order.
func (s *InMemorySink) Predictions() []PredictionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PredictionRecord, len(s.predictions))
	copy(out, s.predictions)
	return out
}

// Payments returns a copy of all appended payment records, in order.
func (s *InMemorySink) Payments() []PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PaymentRecord, len(s.payments))
	copy(out, s.payments)
	return out
}

// Trackings returns a copy of all appended tracking records, in order.
func (s *InMemorySink) Trackings() []TrackingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TrackingRecord, len(s.trackings))
	copy(out, s.trackings)
	return out
}

// stamp assigns the record identity and write-time timestamp.
func stamp(id *string, ts *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if ts.IsZero() {
		*ts = time.Now().UTC()
	}
}
