package authcore

import (
	"errors"
	"fmt"
	"time"
)

// Config is the full engine configuration. Start from [DefaultConfig] and
// override what you need; [Builder.Build] validates it.
type Config struct {
	JWT          JWTConfig
	Session      SessionConfig
	Store        StoreConfig
	Cache        CacheConfig
	RateLimit    RateLimitConfig
	Verification VerificationConfig
	Password     PasswordConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token signing and validation.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
SESSION CONFIG
====================================
*/

// ReusePolicy decides what happens when a rotated refresh secret is
// presented again.
type ReusePolicy int

const (
	// ReuseRevokeAll rejects the secret and revokes every session of the
	// account. With ReuseGrace at zero this includes a benign double submit
	// of one secret (two tabs, a client retry): the pair returned to the
	// first caller is revoked along with everything else. Set ReuseGrace to
	// absorb such duplicates.
	ReuseRevokeAll ReusePolicy = iota
	// ReuseRejectOnly rejects the secret and leaves other sessions alone.
	ReuseRejectOnly
)

func (p ReusePolicy) String() string {
	switch p {
	case ReuseRevokeAll:
		return "revoke_all"
	case ReuseRejectOnly:
		return "reject_only"
	default:
		return "unknown"
	}
}

// SessionConfig controls refresh-credential lifetimes.
type SessionConfig struct {
	RefreshTTL time.Duration
	// AbsoluteLifetime caps a session regardless of refreshes. Zero disables.
	AbsoluteLifetime time.Duration
	ReusePolicy      ReusePolicy
	// ReuseGrace treats a secret re-presented within this long of its
	// rotation as a duplicate submit rather than theft: it is rejected but
	// does not trigger ReuseRevokeAll. Zero disables.
	ReuseGrace time.Duration
	// RetainInactive is how long superseded, revoked and expired credentials
	// are kept for reuse detection before SweepExpired deletes them.
	RetainInactive time.Duration
}

/*
====================================
STORE / CACHE CONFIG
====================================
*/

// StoreConfig bounds durable-store calls.
type StoreConfig struct {
	OpTimeout time.Duration
}

// CacheConfig controls the Redis session cache and the per-call timeout of
// every Redis-backed component.
type CacheConfig struct {
	Prefix     string
	SessionTTL time.Duration
	OpTimeout  time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitPolicy allows Limit attempts per Window. A zero Limit disables it.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig holds the ceiling for each sensitive operation.
type RateLimitConfig struct {
	Login      RateLimitPolicy
	Register   RateLimitPolicy
	Refresh    RateLimitPolicy
	OTP        RateLimitPolicy
	OTPRequest RateLimitPolicy
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig controls the email verification code flow.
type VerificationConfig struct {
	CodeDigits     int
	CodeTTL        time.Duration
	MaxAttempts    int
	SendOnRegister bool
	Subject        string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and plaintext bounds.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

// MetricsConfig toggles in-process counters and the Authenticate latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. Signing keys must still be set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "authcore",
		},
		Session: SessionConfig{
			RefreshTTL:       30 * 24 * time.Hour,
			AbsoluteLifetime: 90 * 24 * time.Hour,
			ReusePolicy:      ReuseRevokeAll,
			RetainInactive:   7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			OpTimeout: 2 * time.Second,
		},
		Cache: CacheConfig{
			Prefix:     "authcore",
			SessionTTL: 5 * time.Minute,
			OpTimeout:  250 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Login:      RateLimitPolicy{Limit: 10, Window: 15 * time.Minute},
			Register:   RateLimitPolicy{Limit: 5, Window: time.Hour},
			Refresh:    RateLimitPolicy{Limit: 60, Window: time.Minute},
			OTP:        RateLimitPolicy{Limit: 10, Window: 15 * time.Minute},
			OTPRequest: RateLimitPolicy{Limit: 3, Window: 15 * time.Minute},
		},
		Verification: VerificationConfig{
			CodeDigits:     6,
			CodeTTL:        15 * time.Minute,
			MaxAttempts:    5,
			SendOnRegister: true,
			Subject:        "Your verification code",
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MinPasswordBytes: 10,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return fmt.Errorf("%s requires PrivateKey", c.JWT.SigningMethod)
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}

	// Session
	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session RefreshTTL must be > 0")
	}
	if c.Session.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("Session RefreshTTL must exceed JWT AccessTTL")
	}
	if c.Session.AbsoluteLifetime < 0 {
		return errors.New("Session AbsoluteLifetime must be >= 0")
	}
	if c.Session.AbsoluteLifetime > 0 && c.Session.AbsoluteLifetime < c.Session.RefreshTTL {
		return errors.New("Session AbsoluteLifetime must be 0 or >= RefreshTTL")
	}
	if c.Session.ReusePolicy != ReuseRevokeAll && c.Session.ReusePolicy != ReuseRejectOnly {
		return errors.New("unsupported Session ReusePolicy")
	}
	if c.Session.ReuseGrace < 0 || c.Session.ReuseGrace > time.Minute {
		return errors.New("Session ReuseGrace must be within [0, 1m]")
	}
	if c.Session.RetainInactive < 0 {
		return errors.New("Session RetainInactive must be >= 0")
	}

	// Store / cache
	if c.Store.OpTimeout <= 0 {
		return errors.New("Store OpTimeout must be > 0")
	}
	if c.Cache.OpTimeout <= 0 {
		return errors.New("Cache OpTimeout must be > 0")
	}
	if c.Cache.SessionTTL <= 0 {
		return errors.New("Cache SessionTTL must be > 0")
	}
	if c.Cache.SessionTTL > c.JWT.AccessTTL {
		return errors.New("Cache SessionTTL must not exceed JWT AccessTTL")
	}

	// Rate limits
	for name, p := range map[string]RateLimitPolicy{
		"Login":      c.RateLimit.Login,
		"Register":   c.RateLimit.Register,
		"Refresh":    c.RateLimit.Refresh,
		"OTP":        c.RateLimit.OTP,
		"OTPRequest": c.RateLimit.OTPRequest,
	} {
		if p.Limit < 0 {
			return fmt.Errorf("RateLimit %s Limit must be >= 0", name)
		}
		if p.Limit > 0 && p.Window <= 0 {
			return fmt.Errorf("RateLimit %s Window must be > 0 when Limit is set", name)
		}
	}

	// Verification
	if c.Verification.CodeDigits < 4 || c.Verification.CodeDigits > 10 {
		return errors.New("Verification CodeDigits must be within [4, 10]")
	}
	if c.Verification.CodeTTL <= 0 {
		return errors.New("Verification CodeTTL must be > 0")
	}
	if c.Verification.MaxAttempts <= 0 || c.Verification.MaxAttempts > 1000 {
		return errors.New("Verification MaxAttempts must be within [1, 1000]")
	}

	// Password
	if c.Password.MinPasswordBytes < 0 || c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password length bounds must be >= 0")
	}
	if c.Password.MaxPasswordBytes > 0 && c.Password.MinPasswordBytes > c.Password.MaxPasswordBytes {
		return errors.New("Password MinPasswordBytes must not exceed MaxPasswordBytes")
	}

	return nil
}
