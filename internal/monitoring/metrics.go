package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds process-wide hashing counters.
type Metrics struct {
	// Hashing
	DocumentsHashed atomic.Uint64
	BytesHashed     atomic.Uint64
	TokensHashed    atomic.Uint64
	Comparisons     atomic.Uint64

	// Cache
	CacheHits   atomic.Uint64
	CacheMisses atomic.Uint64

	// Index
	IndexWrites  atomic.Uint64
	IndexQueries atomic.Uint64

	HashDuration *DurationHistogram

	TotalErrors atomic.Uint64
	InputErrors atomic.Uint64
	IndexErrors atomic.Uint64
}

// DurationHistogram tracks duration distributions
type DurationHistogram struct {
	mu      sync.RWMutex
	buckets map[string]uint64
	sum     time.Duration
	count   uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		HashDuration: NewDurationHistogram(),
	}
}

func NewDurationHistogram() *DurationHistogram {
	return &DurationHistogram{
		buckets: make(map[string]uint64),
	}
}

// Observe records a duration observation
func (h *DurationHistogram) Observe(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += d
	h.count++
	h.buckets[bucketFor(d)]++
}

// Hashing a document is sub-second in the common case, so buckets are finer
// at the low end.
func bucketFor(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "0-1ms"
	case d < 10*time.Millisecond:
		return "1-10ms"
	case d < 100*time.Millisecond:
		return "10-100ms"
	case d < time.Second:
		return "100ms-1s"
	case d < 10*time.Second:
		return "1-10s"
	default:
		return "10s+"
	}
}

// Count returns the number of observations.
func (h *DurationHistogram) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Average returns the average duration
func (h *DurationHistogram) Average() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return 0
	}
	return h.sum / time.Duration(h.count)
}

// Snapshot returns a copy of the bucket counts.
func (h *DurationHistogram) Snapshot() map[string]uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make(map[string]uint64, len(h.buckets))
	for k, v := range h.buckets {
		snapshot[k] = v
	}
	return snapshot
}

// RecordHashed records one byte document of the given size.
func (m *Metrics) RecordHashed(bytes uint64, duration time.Duration) {
	m.DocumentsHashed.Add(1)
	m.BytesHashed.Add(bytes)
	m.HashDuration.Observe(duration)
}

// RecordTokensHashed records one token document of the given length.
func (m *Metrics) RecordTokensHashed(tokens uint64, duration time.Duration) {
	m.DocumentsHashed.Add(1)
	m.TokensHashed.Add(tokens)
	m.HashDuration.Observe(duration)
}

func (m *Metrics) RecordComparison() {
	m.Comparisons.Add(1)
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheHits.Add(1)
	} else {
		m.CacheMisses.Add(1)
	}
}

func (m *Metrics) RecordIndexWrite() {
	m.IndexWrites.Add(1)
}

func (m *Metrics) RecordIndexQuery() {
	m.IndexQueries.Add(1)
}

// RecordError increments error counters
func (m *Metrics) RecordError(errorType string) {
	m.TotalErrors.Add(1)
	switch errorType {
	case "input":
		m.InputErrors.Add(1)
	case "index":
		m.IndexErrors.Add(1)
	}
}

// Snapshot returns every counter keyed by a stable name, for --stats output.
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"documents_hashed":      m.DocumentsHashed.Load(),
		"bytes_hashed":          m.BytesHashed.Load(),
		"tokens_hashed":         m.TokensHashed.Load(),
		"comparisons":           m.Comparisons.Load(),
		"cache_hits":            m.CacheHits.Load(),
		"cache_misses":          m.CacheMisses.Load(),
		"index_writes":          m.IndexWrites.Load(),
		"index_queries":         m.IndexQueries.Load(),
		"errors_total":          m.TotalErrors.Load(),
		"errors_input":          m.InputErrors.Load(),
		"errors_index":          m.IndexErrors.Load(),
		"hash_duration_avg_ms":  float64(m.HashDuration.Average().Microseconds()) / 1000,
		"hash_duration_buckets": m.HashDuration.Snapshot(),
	}
}

var globalMetrics = NewMetrics()

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}
