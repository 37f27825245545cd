package rate

import "errors"

var (
	// ErrRedisUnavailable wraps backend failures. Callers fail closed on it.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrUnknownScope is returned for a scope with no configured policy.
	ErrUnknownScope = errors.New("rate: unknown scope")
)
