package qscore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		AvgLatencyMS:   50.0,
		ThroughputTPS:  1000.0,
		Accuracy:       0.95,
		BenchmarkScore: 85.0,
		UptimePercent:  99.9,
		ErrorRate:      0.001,
		SampleCount:    15000,
		Timestamp:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func poorSnapshot() Snapshot {
	return Snapshot{
		AvgLatencyMS:   500.0,
		ThroughputTPS:  100.0,
		Accuracy:       0.60,
		BenchmarkScore: 40.0,
		UptimePercent:  90.0,
		ErrorRate:      0.10,
	}
}

func excellentSnapshot() Snapshot {
	return Snapshot{
		AvgLatencyMS:   25.0,
		ThroughputTPS:  1500.0,
		Accuracy:       0.99,
		BenchmarkScore: 95.0,
		UptimePercent:  99.99,
		ErrorRate:      0.001,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestLatencyFractionTable(t *testing.T) {
	cases := []struct {
		ms   float64
		want float64
	}{
		{-5, 0.0},
		{0, 0.0},
		{1, 1.0},
		{49.99, 1.0},
		{50, 0.8},
		{99.9, 0.8},
		{100, 0.6},
		{199.9, 0.6},
		{200, 0.4},
		{499.9, 0.4},
		{500, 0.2},
		{999.9, 0.2},
		{1000, 0.0},
		{5000, 0.0},
	}
	for _, tc := range cases {
		if got := latencyFraction(tc.ms); got != tc.want {
			t.Fatalf("latencyFraction(%v) = %v, want %v", tc.ms, got, tc.want)
		}
	}
}

func TestThroughputFractionTable(t *testing.T) {
	cases := []struct {
		tps  float64
		want float64
	}{
		{1500, 1.0},
		{1000, 1.0},
		{999.9, 0.8},
		{500, 0.8},
		{499.9, 0.6},
		{200, 0.6},
		{199.9, 0.4},
		{100, 0.4},
		{99.9, 0.2},
		{50, 0.2},
		{49.9, 0.0},
		{0, 0.0},
		{-10, 0.0},
	}
	for _, tc := range cases {
		if got := throughputFraction(tc.tps); got != tc.want {
			t.Fatalf("throughputFraction(%v) = %v, want %v", tc.tps, got, tc.want)
		}
	}
}

func TestQualityFractionClampsInputs(t *testing.T) {
	if got := qualityFraction(1.5, 150); got != 1.0 {
		t.Fatalf("over-range quality should clamp to 1.0, got %v", got)
	}
	if got := qualityFraction(-0.3, -20); got != 0.0 {
		t.Fatalf("negative quality inputs should clamp to 0.0, got %v", got)
	}
	if got := qualityFraction(0.95, 85); !almostEqual(got, 0.91) {
		t.Fatalf("qualityFraction(0.95, 85) = %v, want 0.91", got)
	}
}

func TestReliabilityFraction(t *testing.T) {
	if got := reliabilityFraction(99.9, 0.001); !almostEqual(got, 0.95) {
		t.Fatalf("healthy reliability = %v, want 0.95", got)
	}
	if got := reliabilityFraction(90.0, 0.10); got >= 0.5 {
		t.Fatalf("poor reliability should stay below 0.5, got %v", got)
	}
	if got := errorRateSub(0); got != 1.0 {
		t.Fatalf("zero error rate sub-score = %v, want 1.0", got)
	}
	if got := uptimeSub(89.9); got != 0.0 {
		t.Fatalf("uptime below 90%% sub-score = %v, want 0.0", got)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := LatencyWeight + ThroughputWeight + QualityWeight + ReliabilityWeight
	if sum != 1.0 {
		t.Fatalf("dimension weights sum to %v, want exactly 1.0", sum)
	}
}

func TestScoreCompositeEqualsComponentSum(t *testing.T) {
	calc := NewCalculator(nil, noopLogger())
	snap := sampleSnapshot()
	res, err := calc.Score(context.Background(), "gpt-4", &snap, CategoryLLM)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(res.QScore, 91.5) {
		t.Fatalf("sample fixture QScore = %v, want 91.5", res.QScore)
	}
	sum := res.LatencyScore + res.ThroughputScore + res.QualityScore + res.ReliabilityScore
	if !almostEqual(res.QScore, sum) {
		t.Fatalf("QScore %v != component sum %v", res.QScore, sum)
	}
	if !res.MintEligible {
		t.Fatal("sample fixture should be mint eligible")
	}
}

func TestScoreComponentScales(t *testing.T) {
	calc := NewCalculator(nil, noopLogger())
	snap := Snapshot{AvgLatencyMS: 50, ThroughputTPS: 100}
	res, err := calc.Score(context.Background(), "m", &snap, CategoryLLM)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(res.LatencyScore, 20.0) {
		t.Fatalf("latency 50ms component = %v, want 20.0", res.LatencyScore)
	}
	if !almostEqual(res.ThroughputScore, 10.0) {
		t.Fatalf("throughput 100tps component = %v, want 10.0", res.ThroughputScore)
	}
}

func TestCanMintBoundary(t *testing.T) {
	if !CanMint(50.0) {
		t.Fatal("exactly 50.0 must be mint eligible")
	}
	if CanMint(49.999) {
		t.Fatal("49.999 must not be mint eligible")
	}
	if MinScoreForMint != 50.0 {
		t.Fatalf("mint threshold = %v, want 50.0", MinScoreForMint)
	}
}

func TestScoreZeroSnapshot(t *testing.T) {
	calc := NewCalculator(nil, noopLogger())
	res, err := calc.Score(context.Background(), "ghost-model", nil, "")
	if err != nil {
		t.Fatalf("missing data must not error: %v", err)
	}
	if res.QScore != 0 {
		t.Fatalf("zero snapshot QScore = %v, want 0", res.QScore)
	}
	if res.MintEligible {
		t.Fatal("zero snapshot must not be mint eligible")
	}
	if res.Category != CategoryLLM {
		t.Fatalf("empty category should default to llm, got %q", res.Category)
	}
}

type staticGetter struct {
	snap Snapshot
}

func (g staticGetter) Get(ctx context.Context, modelID string) Snapshot {
	return g.snap
}

func TestScoreFallsBackToGetter(t *testing.T) {
	calc := NewCalculator(staticGetter{snap: sampleSnapshot()}, noopLogger())
	res, err := calc.Score(context.Background(), "gpt-4", nil, CategoryLLM)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !almostEqual(res.QScore, 91.5) {
		t.Fatalf("getter-backed QScore = %v, want 91.5", res.QScore)
	}
}

func TestScoreRejectsEmptyModelID(t *testing.T) {
	calc := NewCalculator(nil, noopLogger())
	if _, err := calc.Score(context.Background(), "", nil, CategoryLLM); !errors.Is(err, ErrEmptyModelID) {
		t.Fatalf("expected ErrEmptyModelID, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory("LLM"); err != nil || c != CategoryLLM {
		t.Fatalf("ParseCategory(LLM) = %q, %v", c, err)
	}
	if c, err := ParseCategory(" image_generation "); err != nil || c != CategoryImageGeneration {
		t.Fatalf("ParseCategory(image_generation) = %q, %v", c, err)
	}
	if c, err := ParseCategory(""); err != nil || c != CategoryLLM {
		t.Fatalf("empty category should default to llm, got %q, %v", c, err)
	}
	if _, err := ParseCategory("video"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}
