package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/credential"
)

func TestAuthenticateServesFromCache(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	account, tokens := env.register(t, "kim@example.com", "")

	for i := 0; i < 3; i++ {
		uid, err := env.engine.Authenticate(ctx, tokens.AccessToken)
		if err != nil || uid != account.ID {
			t.Fatalf("authenticate: uid=%q err=%v", uid, err)
		}
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricCacheHit] != 3 || snap.Counters[MetricCacheMiss] != 0 {
		t.Fatalf("unexpected cache counters: hit=%d miss=%d",
			snap.Counters[MetricCacheHit], snap.Counters[MetricCacheMiss])
	}
}

func TestAuthenticateMissRepopulatesCache(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	account, tokens := env.register(t, "lee@example.com", "")

	env.redis.FlushAll()
	uid, err := env.engine.Authenticate(ctx, tokens.AccessToken)
	if err != nil || uid != account.ID {
		t.Fatalf("authenticate after flush: uid=%q err=%v", uid, err)
	}
	if !env.redis.Exists("authcore:sess:" + tokens.SessionID) {
		t.Fatal("expected store fallback to re-prime the cache")
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricCacheMiss]; got != 1 {
		t.Fatalf("cache miss metric = %d", got)
	}
}

// A revocation that commits between the store read and the cache write of a
// miss must not be undone by that write.
func TestRevokeDuringStoreFallbackStaysRevoked(t *testing.T) {
	env, hooked := newHookedEnv(t, nil)
	ctx := context.Background()
	account, tokens := env.register(t, "quinn@example.com", "")
	env.redis.FlushAll()

	hooked.afterActiveSession = func() {
		if err := env.engine.Revoke(ctx, tokens.RefreshToken); err != nil {
			t.Errorf("revoke: %v", err)
		}
	}
	uid, err := env.engine.Authenticate(ctx, tokens.AccessToken)
	if err != nil || uid != account.ID {
		t.Fatalf("in-flight authenticate: uid=%q err=%v", uid, err)
	}

	if _, err := env.store.ActiveSession(ctx, tokens.SessionID, env.clock.Now()); !errors.Is(err, credential.ErrNotFound) {
		t.Fatalf("expected store to report the session revoked, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected revoked session rejected, got %v", err)
	}
}

func TestAuthenticateFallsBackToStoreWhenCacheDown(t *testing.T) {
	env := newTestEnv(t, nil)
	account, tokens := env.register(t, "mia@example.com", "")

	env.redis.Close()
	uid, err := env.engine.Authenticate(context.Background(), tokens.AccessToken)
	if err != nil || uid != account.ID {
		t.Fatalf("expected store fallback during cache outage: uid=%q err=%v", uid, err)
	}
	if env.engine.MetricsSnapshot().Counters[MetricCacheError] == 0 {
		t.Fatal("expected cache error to be counted")
	}
}

func TestAuthenticateRejectsWhenStoreDown(t *testing.T) {
	env := newTestEnv(t, nil)
	_, tokens := env.register(t, "nia@example.com", "")

	env.redis.FlushAll()
	if err := env.store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	_, err := env.engine.Authenticate(context.Background(), tokens.AccessToken)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCachedSessionNeverOutlivesCredential(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Session.RefreshTTL = time.Hour
		c.Session.AbsoluteLifetime = time.Hour
	})
	_, tokens := env.register(t, "omar@example.com", "")

	key := "authcore:sess:" + tokens.SessionID
	if got := env.redis.TTL(key); got != 5*time.Minute {
		t.Fatalf("fresh session cached for %v, want 5m", got)
	}

	env.clock.Advance(58 * time.Minute)
	next, err := env.engine.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := env.redis.TTL(key); got != 2*time.Minute {
		t.Fatalf("session cached for %v, want remaining credential lifetime 2m", got)
	}
	if !next.AccessExpiresAt.Equal(next.RefreshExpiresAt) {
		t.Fatalf("access token outlives its session: %v > %v", next.AccessExpiresAt, next.RefreshExpiresAt)
	}
}

func TestCurrentVerifiedAccount(t *testing.T) {
	env := newTestEnv(t, nil, func(b *Builder) {
		b.WithCodeSource(func(int) (string, error) { return "123456", nil })
	})
	ctx := context.Background()
	account, _ := env.register(t, "pat@example.com", "")

	if _, err := env.engine.CurrentVerifiedAccount(ctx, account.ID); !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}

	if err := env.engine.RequestCode(ctx, account.ID); err != nil {
		t.Fatalf("request code: %v", err)
	}
	if err := env.engine.SubmitCode(ctx, account.ID, "123456"); err != nil {
		t.Fatalf("submit code: %v", err)
	}

	got, err := env.engine.CurrentVerifiedAccount(ctx, account.ID)
	if err != nil || !got.Verified {
		t.Fatalf("expected verified account: %+v err=%v", got, err)
	}
	if _, err := env.engine.Account(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected unknown account to be ErrInvalidCredential, got %v", err)
	}
}
