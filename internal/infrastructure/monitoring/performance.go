package monitoring

import (
	"math"
	"sort"
	"sync"
	"time"
)

// maxLatencySamples bounds the in-memory latency window. Oldest samples are
// evicted first.
const maxLatencySamples = 1000

// PerformanceStats is a point-in-time snapshot of serving performance.
// Latency fields are in milliseconds and cover successful requests only.
type PerformanceStats struct {
	TotalRequests int64   `json:"total_requests"`
	Errors        int64   `json:"errors"`
	SuccessRate   float64 `json:"success_rate"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	SampleCount   int     `json:"sample_count"`
	MeanLatency   float64 `json:"mean_latency_ms"`
	MedianLatency float64 `json:"median_latency_ms"`
	P95Latency    float64 `json:"p95_latency_ms"`
	P99Latency    float64 `json:"p99_latency_ms"`
	MinLatency    float64 `json:"min_latency_ms"`
	MaxLatency    float64 `json:"max_latency_ms"`
}

// PerformanceMonitor aggregates request latencies and cache outcomes. Safe
// for concurrent use.
type PerformanceMonitor struct {
	mu sync.Mutex

	samples       []float64 // milliseconds, successful requests only
	totalRequests int64
	errors        int64
	cacheHits     int64
	cacheMisses   int64

	metrics *Metrics
}

// NewPerformanceMonitor creates a monitor. metrics may be nil, in which case
// only in-process aggregation happens.
func NewPerformanceMonitor(metrics *Metrics) *PerformanceMonitor {
	return &PerformanceMonitor{metrics: metrics}
}

// Record registers one completed request. Failed requests count toward the
// error rate but contribute no latency sample; cached responses count toward
// the hit rate.
func (m *PerformanceMonitor) Record(kind string, d time.Duration, cached, failed bool) {
	m.mu.Lock()
	m.totalRequests++
	if failed {
		m.errors++
	} else {
		if cached {
			m.cacheHits++
		} else {
			m.cacheMisses++
		}
		if len(m.samples) >= maxLatencySamples {
			// Shift in place so the backing array stays at its bounded size.
			copy(m.samples, m.samples[1:])
			m.samples = m.samples[:maxLatencySamples-1]
		}
		m.samples = append(m.samples, float64(d.Microseconds())/1000.0)
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ObservePrediction(kind, d, cached, failed)
	}
}

// Snapshot computes the current statistics. With no successful samples all
// latency fields are 0.0.
func (m *PerformanceMonitor) Snapshot() PerformanceStats {
	m.mu.Lock()
	samples := make([]float64, len(m.samples))
	copy(samples, m.samples)
	stats := PerformanceStats{
		TotalRequests: m.totalRequests,
		Errors:        m.errors,
		CacheHits:     m.cacheHits,
		CacheMisses:   m.cacheMisses,
		SampleCount:   len(samples),
	}
	m.mu.Unlock()

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.TotalRequests-stats.Errors) / float64(stats.TotalRequests)
	}
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(lookups)
	}
	if len(samples) == 0 {
		return stats
	}

	sort.Float64s(samples)
	stats.MinLatency = samples[0]
	stats.MaxLatency = samples[len(samples)-1]
	stats.MedianLatency = percentile(samples, 50)
	stats.P95Latency = percentile(samples, 95)
	stats.P99Latency = percentile(samples, 99)

	var sum float64
	for _, s := range samples {
		sum += s
	}
	stats.MeanLatency = sum / float64(len(samples))

	return stats
}

// Reset clears all accumulated state in one step.
func (m *PerformanceMonitor) Reset() {
	m.mu.Lock()
	m.samples = nil
	m.totalRequests = 0
	m.errors = 0
	m.cacheHits = 0
	m.cacheMisses = 0
	m.mu.Unlock()
}

// percentile computes the nearest-rank percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p / 100.0 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
