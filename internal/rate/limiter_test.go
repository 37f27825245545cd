package rate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, policies map[Scope]Policy) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return New(rdb, Config{Policies: policies, OpTimeout: time.Second}), mr
}

func TestHitExactCeilingThenDenyThenReset(t *testing.T) {
	l, mr := newTestLimiter(t, map[Scope]Policy{
		ScopeLogin: {Limit: 5, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, ok, err := l.Hit(ctx, ScopeLogin, "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}

	_, ok, err := l.Hit(ctx, ScopeLogin, "1.2.3.4")
	if err != nil || ok {
		t.Fatalf("attempt 6 should be denied, ok=%v err=%v", ok, err)
	}

	mr.FastForward(time.Minute + time.Second)

	_, ok, err = l.Hit(ctx, ScopeLogin, "1.2.3.4")
	if err != nil || !ok {
		t.Fatalf("window should have reset, ok=%v err=%v", ok, err)
	}
	if got, _ := mr.Get("rl:login:1.2.3.4"); got != "1" {
		t.Fatalf("expected counter 1 after reset, got %q", got)
	}
}

func TestHitSetsWindowOnFirstHit(t *testing.T) {
	l, mr := newTestLimiter(t, map[Scope]Policy{
		ScopeRegister: {Limit: 3, Window: 30 * time.Second},
	})

	if _, _, err := l.Hit(context.Background(), ScopeRegister, "ip"); err != nil {
		t.Fatalf("hit failed: %v", err)
	}
	if ttl := mr.TTL("rl:register:ip"); ttl != 30*time.Second {
		t.Fatalf("expected 30s window, got %v", ttl)
	}

	mr.FastForward(10 * time.Second)
	if _, _, err := l.Hit(context.Background(), ScopeRegister, "ip"); err != nil {
		t.Fatalf("hit failed: %v", err)
	}
	if ttl := mr.TTL("rl:register:ip"); ttl != 20*time.Second {
		t.Fatalf("later hits must not extend the window, got %v", ttl)
	}
}

func TestHitKeysAndScopesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, map[Scope]Policy{
		ScopeLogin: {Limit: 1, Window: time.Minute},
		ScopeOTP:   {Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()

	if _, ok, _ := l.Hit(ctx, ScopeLogin, "a"); !ok {
		t.Fatal("first login for a denied")
	}
	if _, ok, _ := l.Hit(ctx, ScopeLogin, "b"); !ok {
		t.Fatal("first login for b denied")
	}
	if _, ok, _ := l.Hit(ctx, ScopeOTP, "a"); !ok {
		t.Fatal("first otp for a denied")
	}
	if _, ok, _ := l.Hit(ctx, ScopeLogin, "a"); ok {
		t.Fatal("second login for a allowed")
	}
}

func TestHitConcurrentNeverUndercounts(t *testing.T) {
	const ceiling = 10
	l, _ := newTestLimiter(t, map[Scope]Policy{
		ScopeRefresh: {Limit: ceiling, Window: time.Minute},
	})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := l.Hit(context.Background(), ScopeRefresh, "k")
			if err == nil && ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != ceiling {
		t.Fatalf("expected exactly %d allowed, got %d", ceiling, got)
	}
}

func TestHitReportsRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(t, map[Scope]Policy{
		ScopeOTPRequest: {Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()

	if _, ok, err := l.Hit(ctx, ScopeOTPRequest, "acct"); err != nil || !ok {
		t.Fatalf("first hit denied: ok=%v err=%v", ok, err)
	}
	retry, ok, err := l.Hit(ctx, ScopeOTPRequest, "acct")
	if err != nil || ok {
		t.Fatalf("expected denial, ok=%v err=%v", ok, err)
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry-after %v", retry)
	}
}

func TestCounterKeysUsePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	policies := map[Scope]Policy{ScopeLogin: {Limit: 1, Window: time.Minute}}
	a := New(rdb, Config{Policies: policies, Prefix: "tenant-a:rl"})
	b := New(rdb, Config{Policies: policies, Prefix: "tenant-b:rl"})
	ctx := context.Background()

	if _, ok, err := a.Hit(ctx, ScopeLogin, "k"); err != nil || !ok {
		t.Fatalf("tenant a first hit: ok=%v err=%v", ok, err)
	}
	if _, ok, err := b.Hit(ctx, ScopeLogin, "k"); err != nil || !ok {
		t.Fatalf("tenant b shares tenant a's window: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("tenant-a:rl:login:k") || !mr.Exists("tenant-b:rl:login:k") {
		t.Fatalf("expected prefixed counters, have %v", mr.Keys())
	}
}

func TestDisabledScopeAlwaysAllows(t *testing.T) {
	l, mr := newTestLimiter(t, map[Scope]Policy{ScopeLogin: {}})

	for i := 0; i < 3; i++ {
		if _, ok, err := l.Hit(context.Background(), ScopeLogin, "k"); err != nil || !ok {
			t.Fatalf("disabled scope denied: ok=%v err=%v", ok, err)
		}
	}
	if mr.Exists("rl:login:k") {
		t.Fatal("disabled scope must not touch redis")
	}
}

func TestUnknownScope(t *testing.T) {
	l, _ := newTestLimiter(t, nil)
	if _, _, err := l.Hit(context.Background(), "nope", "k"); !errors.Is(err, ErrUnknownScope) {
		t.Fatalf("expected ErrUnknownScope, got %v", err)
	}
}

func TestRedisOutageFailsClosed(t *testing.T) {
	l, mr := newTestLimiter(t, map[Scope]Policy{
		ScopeLogin: {Limit: 5, Window: time.Minute},
	})
	mr.Close()

	_, ok, err := l.Hit(context.Background(), ScopeLogin, "k")
	if ok || !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected fail-closed, ok=%v err=%v", ok, err)
	}
}
