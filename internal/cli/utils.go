// Package cli provides CLI output helpers for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteQueryResponse writes an answer with its evidence to w in the given
// format. Use OutputJSON for parseable output consumable by other apps.
func WriteQueryResponse(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeQueryResponseText(w, response)
		return nil
	}
}

func writeQueryResponseText(w io.Writer, response *models.QueryResponse) {
	fmt.Fprintf(w, "\n%s\n", response.Answer)
	if response.LowConfidence {
		fmt.Fprintln(w, "\n(low confidence: no retrieved chunk scored above the relevance threshold)")
	}
	if len(response.Evidence) > 0 {
		fmt.Fprintf(w, "\n--- Evidence (%d chunks) ---\n", len(response.Evidence))
		for _, ev := range response.Evidence {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Score: %.4f | %s (chunk %d)\n", ev.SimilarityScore, ev.Chunk.SourceDocument, ev.Chunk.ID)
			fmt.Fprintf(w, "\n%s\n", Truncate(ev.Chunk.Text, 200))
		}
	}
	if response.Metrics != nil {
		fmt.Fprintf(w, "\nanswered in %.0fms (retrieval %.0fms, generation %.0fms)\n",
			response.Metrics.TotalLatencyMs, response.Metrics.RetrievalLatencyMs, response.Metrics.GenerationLatencyMs)
	}
}

// WriteMetricsSummary writes the rolling query metrics to w.
func WriteMetricsSummary(w io.Writer, summary *models.MetricsSummary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	default:
		fmt.Fprintf(w, "total_queries:      %d\n", summary.TotalQueries)
		if summary.TotalQueries > 0 {
			fmt.Fprintf(w, "average_latency_ms: %.1f\n", summary.AverageLatencyMs)
			fmt.Fprintf(w, "min_latency_ms:     %.1f\n", summary.MinLatencyMs)
			fmt.Fprintf(w, "max_latency_ms:     %.1f\n", summary.MaxLatencyMs)
		}
		for _, q := range summary.RecentQueries {
			fmt.Fprintf(w, "  %.0fms  %s\n", q.TotalLatencyMs, Truncate(q.Question, 60))
		}
		return nil
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
