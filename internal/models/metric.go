package models

import "time"

// QueryMetric is the latency breakdown of one answered query.
// Append-only; owned by the metrics aggregator once recorded.
type QueryMetric struct {
	Question            string    `json:"question"`
	TotalLatencyMs      float64   `json:"total_latency_ms"`
	RetrievalLatencyMs  float64   `json:"retrieval_latency_ms"`
	GenerationLatencyMs float64   `json:"generation_latency_ms"`
	ChunksRetrieved     int       `json:"chunks_retrieved"`
	Timestamp           time.Time `json:"timestamp"`
}

// MetricsSummary is the rolling aggregate over all recorded query metrics.
// RecentQueries is bounded; the counters are not.
type MetricsSummary struct {
	TotalQueries     int            `json:"total_queries"`
	AverageLatencyMs float64        `json:"average_latency_ms"`
	MinLatencyMs     float64        `json:"min_latency_ms"`
	MaxLatencyMs     float64        `json:"max_latency_ms"`
	RecentQueries    []*QueryMetric `json:"recent_queries"`
}
