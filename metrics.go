package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricOAuthLoginSuccess
	MetricOAuthLoginFailure
	MetricSessionCreated
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricLogout
	MetricLogoutAll
	MetricRateLimited
	MetricVerificationRequested
	MetricVerificationSuccess
	MetricVerificationFailure
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	MetricCacheHit
	MetricCacheMiss
	MetricCacheError
	MetricStoreError
	MetricCredentialsSwept
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and an optional latency histogram for
// Authenticate. A nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d. Only MetricAuthenticateLatency has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthenticateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthenticateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}

	return s
}

// Bucket upper bounds: 1ms, 2ms, 5ms, 10ms, 25ms, 50ms, 100ms, +Inf.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 1000:
		return 0
	case us <= 2000:
		return 1
	case us <= 5000:
		return 2
	case us <= 10000:
		return 3
	case us <= 25000:
		return 4
	case us <= 50000:
		return 5
	case us <= 100000:
		return 6
	default:
		return 7
	}
}
