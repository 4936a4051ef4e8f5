package qscore

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownCategory marks a category selector outside the marketplace set.
var ErrUnknownCategory = errors.New("unknown model category")

// Category classifies a model on the marketplace. It is carried as metadata
// and does not alter scoring weights.
type Category string

const (
	CategoryLLM             Category = "llm"
	CategoryImageGeneration Category = "image_generation"
	CategoryEmbedding       Category = "embedding"
	CategoryAudio           Category = "audio"
	CategoryMultimodal      Category = "multimodal"
)

// ParseCategory maps a raw selector onto a known category. Empty input
// defaults to llm. Unknown selectors wrap ErrUnknownCategory so callers can
// branch with errors.Is.
func ParseCategory(raw string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return CategoryLLM, nil
	case CategoryLLM, CategoryImageGeneration, CategoryEmbedding, CategoryAudio, CategoryMultimodal:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
}

// Snapshot captures one observation window of model performance. The zero
// value means "no data yet" and scores as worst case rather than erroring.
// Percentile latencies, request rate, and cost ride along for reporting;
// only the four scored dimensions feed the calculator.
type Snapshot struct {
	AvgLatencyMS      float64   `json:"avg_latency_ms"`
	P95LatencyMS      float64   `json:"p95_latency_ms"`
	P99LatencyMS      float64   `json:"p99_latency_ms"`
	ThroughputTPS     float64   `json:"throughput_tokens_per_sec"`
	RequestsPerMinute float64   `json:"requests_per_minute"`
	Accuracy          float64   `json:"accuracy_score"`
	BenchmarkScore    float64   `json:"benchmark_score"`
	UptimePercent     float64   `json:"uptime_percentage"`
	ErrorRate         float64   `json:"error_rate"`
	CostPer1KTokens   float64   `json:"cost_per_1k_tokens"`
	SampleCount       int64     `json:"total_inferences"`
	Timestamp         time.Time `json:"last_updated"`
}

// IsZero reports whether the snapshot carries no observations at all.
func (s Snapshot) IsZero() bool {
	return s == Snapshot{}
}
