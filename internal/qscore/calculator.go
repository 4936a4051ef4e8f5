package qscore

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyModelID rejects scoring requests without a model identifier.
var ErrEmptyModelID = errors.New("model id is empty")

// Composite thresholds on the 0-100 scale. Fixed marketplace policy, not
// runtime configuration.
const (
	MinScoreForMint = 50.0
	GoodScore       = 60.0
	ExcellentScore  = 80.0
)

// Dimension weights. They must sum to exactly 1.0; the calculator tests
// assert this.
const (
	LatencyWeight     = 0.25
	ThroughputWeight  = 0.25
	QualityWeight     = 0.25
	ReliabilityWeight = 0.25
)

// Result is the full scoring outcome for one model. Component scores are on
// a 0-25 scale (dimension fraction times its weighted share of 100).
type Result struct {
	ModelID          string    `json:"model_id"`
	Category         Category  `json:"category"`
	QScore           float64   `json:"q_score"`
	LatencyScore     float64   `json:"latency_score"`
	ThroughputScore  float64   `json:"throughput_score"`
	QualityScore     float64   `json:"quality_score"`
	ReliabilityScore float64   `json:"reliability_score"`
	Recommendations  []string  `json:"recommendations"`
	MintEligible     bool      `json:"mint_eligible"`
	Snapshot         Snapshot  `json:"metrics"`
	ScoredAt         time.Time `json:"scored_at"`
}

// SnapshotGetter supplies the latest snapshot for a model when the caller
// does not pass one explicitly. oracle.Store satisfies this.
type SnapshotGetter interface {
	Get(ctx context.Context, modelID string) Snapshot
}

// Calculator turns performance snapshots into Q-Scores.
type Calculator struct {
	snapshots SnapshotGetter
	logger    zerolog.Logger
}

// NewCalculator builds a calculator. snapshots may be nil; scoring then
// requires an explicit snapshot or falls back to the zero value.
func NewCalculator(snapshots SnapshotGetter, logger zerolog.Logger) *Calculator {
	return &Calculator{
		snapshots: snapshots,
		logger:    logger.With().Str("component", "qscore").Logger(),
	}
}

// Score computes the composite Q-Score for one model. When snap is nil the
// calculator consults its SnapshotGetter; a miss scores the zero snapshot.
// Out-of-range metrics are clamped, never rejected.
func (c *Calculator) Score(ctx context.Context, modelID string, snap *Snapshot, category Category) (Result, error) {
	if modelID == "" {
		return Result{}, ErrEmptyModelID
	}
	if category == "" {
		category = CategoryLLM
	}

	var s Snapshot
	switch {
	case snap != nil:
		s = *snap
	case c.snapshots != nil:
		s = c.snapshots.Get(ctx, modelID)
	}

	lat := latencyFraction(s.AvgLatencyMS)
	tput := throughputFraction(s.ThroughputTPS)
	qual := qualityFraction(s.Accuracy, s.BenchmarkScore)
	rel := reliabilityFraction(s.UptimePercent, s.ErrorRate)

	qScore := (lat*LatencyWeight + tput*ThroughputWeight + qual*QualityWeight + rel*ReliabilityWeight) * 100

	res := Result{
		ModelID:          modelID,
		Category:         category,
		QScore:           qScore,
		LatencyScore:     lat * LatencyWeight * 100,
		ThroughputScore:  tput * ThroughputWeight * 100,
		QualityScore:     qual * QualityWeight * 100,
		ReliabilityScore: rel * ReliabilityWeight * 100,
		Recommendations:  recommendations(lat, tput, qual, rel, qScore),
		MintEligible:     CanMint(qScore),
		Snapshot:         s,
		ScoredAt:         time.Now().UTC(),
	}

	c.logger.Debug().
		Str("model", modelID).
		Str("category", string(category)).
		Float64("q_score", qScore).
		Bool("mint_eligible", res.MintEligible).
		Msg("model scored")

	return res, nil
}

// CanMint reports whether a composite score clears the minting threshold.
// The boundary is inclusive: exactly MinScoreForMint qualifies.
func CanMint(score float64) bool {
	return score >= MinScoreForMint
}

// latencyFraction maps mean latency in milliseconds onto [0,1]. Zero and
// negative latencies are treated as missing data.
func latencyFraction(ms float64) float64 {
	switch {
	case ms <= 0:
		return 0.0
	case ms < 50:
		return 1.0
	case ms < 100:
		return 0.8
	case ms < 200:
		return 0.6
	case ms < 500:
		return 0.4
	case ms < 1000:
		return 0.2
	default:
		return 0.0
	}
}

func throughputFraction(tps float64) float64 {
	switch {
	case tps >= 1000:
		return 1.0
	case tps >= 500:
		return 0.8
	case tps >= 200:
		return 0.6
	case tps >= 100:
		return 0.4
	case tps >= 50:
		return 0.2
	default:
		return 0.0
	}
}

// qualityFraction blends accuracy (60%) and a normalised benchmark score
// (40%), clamping both inputs into range first.
func qualityFraction(accuracy, benchmark float64) float64 {
	return clamp01(accuracy)*0.6 + clamp01(benchmark/100)*0.4
}

// reliabilityFraction averages the uptime and error-rate sub-scores.
func reliabilityFraction(uptimePct, errorRate float64) float64 {
	return uptimeSub(uptimePct)*0.5 + errorRateSub(errorRate)*0.5
}

func uptimeSub(pct float64) float64 {
	switch {
	case pct >= 99.9:
		return 1.0
	case pct >= 99:
		return 0.9
	case pct >= 95:
		return 0.5
	case pct >= 90:
		return 0.2
	default:
		return 0.0
	}
}

func errorRateSub(rate float64) float64 {
	switch {
	case rate <= 0:
		return 1.0
	case rate <= 0.01:
		return 0.9
	case rate <= 0.05:
		return 0.5
	case rate < 0.10:
		return 0.2
	default:
		return 0.0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
