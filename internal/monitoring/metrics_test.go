package monitoring

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordHashed(100, 2*time.Millisecond)
	m.RecordTokensHashed(5, 500*time.Microsecond)
	m.RecordComparison()
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.RecordIndexWrite()
	m.RecordIndexQuery()
	m.RecordError("input")
	m.RecordError("index")
	m.RecordError("other")

	s := m.Snapshot()
	expect := map[string]uint64{
		"documents_hashed": 2,
		"bytes_hashed":     100,
		"tokens_hashed":    5,
		"comparisons":      1,
		"cache_hits":       1,
		"cache_misses":     2,
		"index_writes":     1,
		"index_queries":    1,
		"errors_total":     3,
		"errors_input":     1,
		"errors_index":     1,
	}
	for k, want := range expect {
		if got, ok := s[k].(uint64); !ok || got != want {
			t.Errorf("%s: expected %d, got %v", k, want, s[k])
		}
	}

	buckets := s["hash_duration_buckets"].(map[string]uint64)
	if buckets["1-10ms"] != 1 || buckets["0-1ms"] != 1 {
		t.Errorf("unexpected buckets %v", buckets)
	}
}

func TestDurationHistogram(t *testing.T) {
	h := NewDurationHistogram()
	if h.Average() != 0 {
		t.Error("expected zero average for an empty histogram")
	}
	h.Observe(10 * time.Millisecond)
	h.Observe(30 * time.Millisecond)
	if h.Count() != 2 || h.Average() != 20*time.Millisecond {
		t.Errorf("unexpected count %d average %v", h.Count(), h.Average())
	}
	if h.Snapshot()["10-100ms"] != 2 {
		t.Errorf("unexpected buckets %v", h.Snapshot())
	}
}
