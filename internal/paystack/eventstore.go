package paystack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEventAlreadyProcessed is returned when recording a webhook event that was
// already recorded. Duplicates are acknowledged with 200 and produce no
// further records.
var ErrEventAlreadyProcessed = errors.New("webhook event already processed")

// EventStore tracks processed webhook events for idempotency.
type EventStore interface {
	// Record marks the event key as processed.
	// Returns ErrEventAlreadyProcessed if the key was already recorded.
	Record(ctx context.Context, key string) error
}

// InMemoryEventStore implements EventStore with in-memory storage.
// Used for testing and single-process deployments.
type InMemoryEventStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewInMemoryEventStore creates a new in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{seen: make(map[string]time.Time)}
}

// Record marks the event key as processed.
func (s *InMemoryEventStore) Record(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return ErrEventAlreadyProcessed
	}
	s.seen[key] = time.Now().UTC()
	return nil
}

// RedisEventStore implements EventStore on Redis so deduplication holds across
// process restarts and replicas. Keys expire after the retention window; the
// gateway stops retrying long before then.
type RedisEventStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisEventStore creates a Redis-backed event store. A non-positive
// retention defaults to 24 hours.
func NewRedisEventStore(client *redis.Client, retention time.Duration) *RedisEventStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisEventStore{client: client, retention: retention}
}

// Record marks the event key as processed using SETNX semantics.
func (s *RedisEventStore) Record(ctx context.Context, key string) error {
	set, err := s.client.SetNX(ctx, "paystack:event:"+key, 1, s.retention).Result()
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	if !set {
		return ErrEventAlreadyProcessed
	}
	return nil
}
