package credential

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("credential: not found")
	// ErrConflict is returned when a unique constraint (email, username,
	// provider subject, token hash) would be violated.
	ErrConflict = errors.New("credential: unique constraint violated")
	// ErrSuperseded is returned by Rotate when the presented hash belongs to
	// an already-rotated credential. The returned credential carries the
	// owning account so callers can apply a reuse policy.
	ErrSuperseded = errors.New("credential: superseded")
	// ErrInactive is returned by Rotate when the credential is revoked or
	// expired.
	ErrInactive = errors.New("credential: inactive")
	// ErrUnavailable wraps any backend failure.
	ErrUnavailable = errors.New("credential: store unavailable")
)
