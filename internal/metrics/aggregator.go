// Package metrics aggregates per-query latency metrics into rolling
// summaries.
package metrics

import (
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultRecentWindow bounds the recent-queries view when none is configured.
const DefaultRecentWindow = 10

// Aggregator records query metrics and serves rolling summaries. The
// aggregate counters grow without bound; only the recent window is capped.
// Safe for concurrent use.
type Aggregator struct {
	mu         sync.RWMutex
	total      int
	sumLatency float64
	minLatency float64
	maxLatency float64
	recent     []*models.QueryMetric
	window     int
}

// NewAggregator creates an aggregator keeping the last window queries in
// the recent view. window <= 0 falls back to DefaultRecentWindow.
func NewAggregator(window int) *Aggregator {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	return &Aggregator{window: window}
}

// Record appends a metric. The metric is owned by the aggregator after the
// call and must not be mutated by the caller.
func (a *Aggregator) Record(m *models.QueryMetric) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.total == 0 || m.TotalLatencyMs < a.minLatency {
		a.minLatency = m.TotalLatencyMs
	}
	if a.total == 0 || m.TotalLatencyMs > a.maxLatency {
		a.maxLatency = m.TotalLatencyMs
	}
	a.total++
	a.sumLatency += m.TotalLatencyMs
	a.recent = append(a.recent, m)
	if len(a.recent) > a.window {
		a.recent = a.recent[len(a.recent)-a.window:]
	}
}

// Summary returns the aggregate view over all recorded metrics. The recent
// slice is a copy and safe to hold.
func (a *Aggregator) Summary() *models.MetricsSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := &models.MetricsSummary{
		TotalQueries:  a.total,
		MinLatencyMs:  a.minLatency,
		MaxLatencyMs:  a.maxLatency,
		RecentQueries: make([]*models.QueryMetric, len(a.recent)),
	}
	copy(s.RecentQueries, a.recent)
	if a.total > 0 {
		s.AverageLatencyMs = a.sumLatency / float64(a.total)
	}
	return s
}
