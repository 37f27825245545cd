package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scope names a limited operation.
type Scope string

const (
	ScopeLogin      Scope = "login"
	ScopeRegister   Scope = "register"
	ScopeRefresh    Scope = "refresh"
	ScopeOTP        Scope = "otp"
	ScopeOTPRequest Scope = "otp_request"
)

// Policy is the ceiling for one scope. Limit calls succeed per Window; the
// next one is denied until the window expires. A zero Limit disables the scope.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Config holds the per-scope policies, the key namespace and the per-call
// timeout.
type Config struct {
	Policies map[Scope]Policy
	// Prefix namespaces counter keys ("rl" when empty).
	Prefix    string
	OpTimeout time.Duration
}

// Limiter enforces fixed-window ceilings using Redis counters.
type Limiter struct {
	redis   redis.UniversalClient
	config  Config
	prefix  string
	timeout time.Duration
}

// KEYS[1] counter, ARGV[1] window in ms. Returns {count, pttl}.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{
		redis:   redisClient,
		config:  cfg,
		prefix:  prefix,
		timeout: timeout,
	}
}

// Hit counts one attempt against (scope, key). It reports false once the
// count exceeds the scope's limit within the current window, along with how
// long until the window resets.
func (l *Limiter) Hit(ctx context.Context, scope Scope, key string) (time.Duration, bool, error) {
	policy, found := l.config.Policies[scope]
	if !found {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}
	if policy.Limit <= 0 || policy.Window <= 0 {
		return 0, true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	res, err := incrScript.Run(ctx, l.redis, []string{l.counterKey(scope, key)}, policy.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}

	retryAfter := time.Duration(res[1]) * time.Millisecond
	if res[0] > int64(policy.Limit) {
		return retryAfter, false, nil
	}
	return retryAfter, true, nil
}

func (l *Limiter) counterKey(scope Scope, key string) string {
	return l.prefix + ":" + string(scope) + ":" + key
}
