// Package idempotency provides replay protection for checkout initialization.
// A client retrying with the same Idempotency-Key header gets the cached
// response instead of a second hosted checkout session.
package idempotency

import (
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned when an idempotency key is not found.
	ErrKeyNotFound = errors.New("idempotency key not found")

	// ErrKeyExists is returned when attempting to store a duplicate key.
	ErrKeyExists = errors.New("idempotency key already exists")

	// ErrInvalidKey is returned when the key is empty.
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrKeyTooLong is returned when the key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// MaxKeyLength is the maximum allowed length for an idempotency key.
const MaxKeyLength = 64

// Record is a stored idempotency key with its cached response.
type Record struct {
	Key                string    `json:"key"`
	Email              string    `json:"email,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	ResponseBody       string    `json:"response_body"`
	ResponseStatusCode int       `json:"response_status_code"`
}

// ValidateKey checks if an idempotency key is usable.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// Repository defines methods for idempotency key persistence.
type Repository interface {
	// Get retrieves a record by key. Returns ErrKeyNotFound if absent.
	Get(key string) (*Record, error)

	// Store saves a new record. Returns ErrKeyExists on duplicates.
	Store(record *Record) error

	// DeleteOlderThan removes records older than the given duration and
	// returns how many were removed.
	DeleteOlderThan(duration time.Duration) (int64, error)
}
