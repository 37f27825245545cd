package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	boltstore "github.com/MrEthical07/authcore/store/bolt"
)

type sessionState struct {
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 1000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (authenticate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		dbPath      = flag.String("db", "", "bolt database path; if empty a temporary file is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	if err := run(*sessions, *concurrency, *ops, *redisAddr, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(sessions, concurrency, ops int, redisAddr, dbPath string) error {
	ctx := context.Background()

	addr := redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var client redis.UniversalClient
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("starting miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	if dbPath == "" {
		dir, err := os.MkdirTemp("", "authload-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		dbPath = filepath.Join(dir, "auth.db")
	}
	store, err := boltstore.Open(dbPath, boltstore.Options{})
	if err != nil {
		return err
	}
	defer store.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := authcore.New().
		WithConfig(cfg).
		WithStore(store).
		WithRedis(client).
		Build()
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", sessions)
	startSeed := time.Now()
	states, err := seed(ctx, engine, sessions)
	if err != nil {
		return err
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runAuthenticatePhase(ctx, engine, states, ops, concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, ops, concurrency)

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("refresh", refreshStats)
	return nil
}

// loadConfig trades password hashing cost and rate limits for seeding
// speed; it measures the session path, not login.
func loadConfig() (authcore.Config, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return authcore.Config{}, err
	}

	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Verification.SendOnRegister = false
	cfg.Metrics.Enabled = false
	cfg.RateLimit = authcore.RateLimitConfig{}
	return cfg, nil
}

func seed(ctx context.Context, engine *authcore.Engine, n int) ([]sessionState, error) {
	states := make([]sessionState, n)
	for i := 0; i < n; i++ {
		_, tokens, err := engine.Register(ctx, authcore.RegisterInput{
			Email:    fmt.Sprintf("load-%d@example.com", i),
			Password: "load-test-password",
		})
		if err != nil {
			return nil, fmt.Errorf("register %d: %w", i, err)
		}
		states[i].access = tokens.AccessToken
		states[i].refresh = tokens.RefreshToken
	}
	return states, nil
}

func runAuthenticatePhase(ctx context.Context, engine *authcore.Engine, states []sessionState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				state.mu.Lock()
				access := state.access
				state.mu.Unlock()

				t0 := time.Now()
				_, err := engine.Authenticate(ctx, access)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *authcore.Engine, states []sessionState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				// Holding the lock across the call keeps each chain linear;
				// a concurrent duplicate would count as reuse.
				state.mu.Lock()
				t0 := time.Now()
				tokens, err := engine.Refresh(ctx, state.refresh)
				d := time.Since(t0)
				if err == nil {
					state.access = tokens.AccessToken
					state.refresh = tokens.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
