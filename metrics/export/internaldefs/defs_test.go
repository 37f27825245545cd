package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
)

func TestCounterDefsUniqueAndPrefixed(t *testing.T) {
	seenID := map[authcore.MetricID]bool{}
	seenName := map[string]bool{}
	for _, def := range CounterDefs {
		if def.ID == authcore.MetricAuthenticateLatency {
			t.Fatalf("histogram id %d listed as counter", def.ID)
		}
		if seenID[def.ID] || seenName[def.Name] {
			t.Fatalf("duplicate counter def %+v", def)
		}
		seenID[def.ID] = true
		seenName[def.Name] = true
		if !strings.HasPrefix(def.Name, "authcore_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q must be authcore_*_total", def.Name)
		}
	}

	// Every counter the engine snapshots must be exported.
	snap := authcore.NewMetrics(authcore.MetricsConfig{Enabled: true}).Snapshot()
	if len(snap.Counters) != len(CounterDefs) {
		t.Fatalf("expected %d counter defs, got %d", len(snap.Counters), len(CounterDefs))
	}
}

func TestBoundsMatchBucketCount(t *testing.T) {
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatalf("expected 8 bounds, got %d/%d", len(HistogramBounds), len(HistogramBoundSuffix))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	long := NormalizeBuckets([]uint64{1, 1, 1, 1, 1, 1, 1, 1, 9})
	if long[7] != 1 {
		t.Fatalf("expected extra buckets ignored, got %v", long)
	}
}
