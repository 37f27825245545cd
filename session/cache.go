package session

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/cache"
)

const keyPrefix = "sess:"

// ErrRevoked is returned by Lookup when the session was evicted after a
// revocation and the marker has not yet expired.
var ErrRevoked = errors.New("session: revoked")

// revokedMarker never decodes as an entry: schema version 0 is unused.
var revokedMarker = []byte{0}

// Key returns the cache key for a session id.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}

// Cache stores [Entry] values in a [cache.Cache].
type Cache struct {
	backend cache.Cache
	ttl     time.Duration
}

// NewCache returns a facade that caches entries for at most ttl.
func NewCache(backend cache.Cache, ttl time.Duration) *Cache {
	return &Cache{backend: backend, ttl: ttl}
}

// TTL returns how long e may be cached at now: the configured TTL capped by
// the time left on the backing credential.
func (c *Cache) TTL(e Entry, now time.Time) time.Duration {
	remaining := time.Unix(e.ExpiresAt, 0).Sub(now)
	if remaining < c.ttl {
		return remaining
	}
	return c.ttl
}

// Prime writes e unless the session carries a revocation marker. Entries
// with no remaining lifetime are removed instead. The boolean reports
// whether e was cached.
func (c *Cache) Prime(ctx context.Context, e Entry, now time.Time) (bool, error) {
	data, err := Encode(e)
	if err != nil {
		return false, err
	}
	return c.backend.SetUnless(ctx, Key(e.SessionID), data, c.TTL(e, now), revokedMarker)
}

// Lookup returns the live entry for sessionID. Missing, expired and
// undecodable entries all report [cache.ErrMiss]; evicted sessions report
// [ErrRevoked].
func (c *Cache) Lookup(ctx context.Context, sessionID string, now time.Time) (Entry, error) {
	data, err := c.backend.Get(ctx, Key(sessionID))
	if err != nil {
		return Entry{}, err
	}
	if bytes.Equal(data, revokedMarker) {
		return Entry{}, ErrRevoked
	}

	e, err := Decode(data)
	if err != nil || e.SessionID != sessionID {
		_ = c.backend.Delete(ctx, Key(sessionID))
		return Entry{}, cache.ErrMiss
	}
	if !e.Live(now) {
		return Entry{}, cache.ErrMiss
	}
	return e, nil
}

// Evict replaces the entries for the given sessions with a revocation
// marker that lives for the cache TTL. Prime refuses to overwrite the
// marker, so a store read that raced the revocation cannot restore the entry.
func (c *Cache) Evict(ctx context.Context, sessionIDs ...string) error {
	var errs []error
	for _, id := range sessionIDs {
		if err := c.backend.Set(ctx, Key(id), revokedMarker, c.ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsRevoked reports whether err marks an evicted session.
func IsRevoked(err error) bool {
	return errors.Is(err, ErrRevoked)
}

// IsMiss reports whether err is a plain cache miss rather than an outage.
func IsMiss(err error) bool {
	return errors.Is(err, cache.ErrMiss)
}
