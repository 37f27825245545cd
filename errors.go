package authcore

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredential covers unknown accounts, wrong passwords and
	// unknown, expired, revoked or rotated refresh secrets. Callers cannot
	// tell these apart.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrTokenExpired is returned for a well-signed access token past its expiry.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenInvalid is returned for a malformed, tampered or revoked access token.
	ErrTokenInvalid = errors.New("access token invalid")
	// ErrRateLimited is the base of every [RateLimitError].
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderError is returned when an identity provider exchange fails.
	ErrProviderError = errors.New("identity provider error")
	// ErrUnknownProvider is returned for a provider name not registered on the engine.
	ErrUnknownProvider = errors.New("unknown identity provider")
	// ErrCodeExpired is returned when the pending verification code is past its expiry.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeMismatch is returned when the submitted code does not match.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrNoActiveCode is returned when no code is pending for the account.
	ErrNoActiveCode = errors.New("no active verification code")
	// ErrStoreUnavailable wraps durable store failures and timeouts.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrCacheUnavailable wraps Redis failures on paths that cannot fall back
	// to the store (rate limiting, verification codes).
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrVerificationRequired is returned by [Engine.CurrentVerifiedAccount]
	// for a logged-in account that has not verified its email.
	ErrVerificationRequired = errors.New("verification required")
	// ErrRefreshReuse is joined with [ErrInvalidCredential] when a rotated
	// refresh secret is presented again.
	ErrRefreshReuse = errors.New("refresh secret reuse detected")
	// ErrAccountExists is returned when the email or username is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidRequest is returned for input that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a denied attempt and how long until the window
// resets. It matches [ErrRateLimited] with errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter extracts the retry hint from a [RateLimitError] anywhere in
// err's chain.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
