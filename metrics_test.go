package authcore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot should be empty, got %d counters", len(snap.Counters))
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Add(MetricCredentialsSwept, 40)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := m.Value(MetricCredentialsSwept); got != 40 {
		t.Fatalf("expected 40, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	for _, d := range []time.Duration{
		500 * time.Microsecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		time.Second,
	} {
		m.Observe(MetricAuthenticateLatency, d)
	}
	// Counters have no histogram.
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("latency histogram must not appear among counters")
	}
	if len(snap.Histograms) != 1 {
		t.Fatalf("expected a single histogram, got %d", len(snap.Histograms))
	}
}

func TestMetricsHistogramDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricAuthenticateLatency, time.Millisecond)

	if _, ok := m.Snapshot().Histograms[MetricAuthenticateLatency]; ok {
		t.Fatal("histogram reported while disabled")
	}
}

func TestEngineRecordsAuthenticateLatency(t *testing.T) {
	env := newTestEnv(t, nil, func(b *Builder) { b.WithLatencyHistograms(true) })
	_, tokens := env.register(t, "kate@example.com", "")

	if _, err := env.engine.Authenticate(context.Background(), tokens.AccessToken); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	var total uint64
	for _, v := range env.engine.MetricsSnapshot().Histograms[MetricAuthenticateLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}
