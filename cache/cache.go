package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache: miss")
	// ErrUnavailable wraps backend failures and timeouts.
	ErrUnavailable = errors.New("cache: unavailable")
)

// Cache is the Token Cache contract.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for ttl. A non-positive ttl removes the key
	// instead, so nothing is ever cached without an expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetUnless is Set applied only when key does not currently hold guard.
	// It reports whether the write happened.
	SetUnless(ctx context.Context, key string, value []byte, ttl time.Duration, guard []byte) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}
