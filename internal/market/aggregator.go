package market

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"chatten/internal/qscore"
)

// Trend labels for the market summary.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

const (
	defaultConcurrency = 4
	maxTopModels       = 3
	trendEpsilon       = 1e-9
)

// ModelScore pairs a model with its composite score.
type ModelScore struct {
	ModelID string  `json:"model_id"`
	QScore  float64 `json:"q_score"`
}

// Summary aggregates over the models the aggregator has scored so far.
// With no models known all numerics are zero and the trend is stable.
type Summary struct {
	TotalModels   int          `json:"total_models"`
	AverageQScore float64      `json:"average_q_score"`
	TopModels     []ModelScore `json:"top_models"`
	Liquidity     float64      `json:"liquidity"`
	Trend         string       `json:"trend"`
}

// Options parameterise the aggregator.
type Options struct {
	Concurrency int
}

// Aggregator fans scoring out across models and keeps the latest result per
// model for market-level summaries.
type Aggregator struct {
	calc   *qscore.Calculator
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	results map[string]qscore.Result
	lastAvg float64
	hasLast bool
}

// NewAggregator constructs an aggregator around a calculator.
func NewAggregator(calc *qscore.Calculator, opts Options, logger zerolog.Logger) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Aggregator{
		calc:    calc,
		opts:    opts,
		logger:  logger.With().Str("component", "market").Logger(),
		results: make(map[string]qscore.Result),
	}
}

// Score runs one model through the calculator and remembers the result.
func (a *Aggregator) Score(ctx context.Context, modelID string, snap *qscore.Snapshot, category qscore.Category) (qscore.Result, error) {
	res, err := a.calc.Score(ctx, modelID, snap, category)
	if err != nil {
		return qscore.Result{}, err
	}
	a.remember(res)
	return res, nil
}

// Compare scores every listed model and returns the results ranked by
// composite score, highest first. Ties keep the caller's encounter order.
// Scoring fans out concurrently; output order never depends on timing.
func (a *Aggregator) Compare(ctx context.Context, modelIDs []string) ([]qscore.Result, error) {
	if len(modelIDs) == 0 {
		return []qscore.Result{}, nil
	}

	results := make([]qscore.Result, len(modelIDs))
	errs := make([]error, len(modelIDs))
	sem := make(chan struct{}, a.opts.Concurrency)
	var wg sync.WaitGroup

	for i, id := range modelIDs {
		wg.Add(1)
		go func(idx int, modelID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx], errs[idx] = a.calc.Score(ctx, modelID, nil, qscore.CategoryLLM)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].QScore > results[j].QScore
	})

	a.mu.Lock()
	for _, r := range results {
		a.results[r.ModelID] = r
	}
	a.mu.Unlock()

	a.logger.Debug().Int("models", len(results)).Msg("comparison complete")
	return results, nil
}

// Summary reports market-level statistics over every model scored so far.
// The trend compares the current average against the previous Summary call.
func (a *Aggregator) Summary(_ context.Context) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.results)
	if n == 0 {
		return Summary{TopModels: []ModelScore{}, Trend: TrendStable}
	}

	sum := decimal.Zero
	liquidity := decimal.Zero
	scores := make([]ModelScore, 0, n)
	for id, res := range a.results {
		sum = sum.Add(decimal.NewFromFloat(res.QScore))
		if res.MintEligible {
			liquidity = liquidity.Add(decimal.NewFromFloat(res.QScore / 100))
		}
		scores = append(scores, ModelScore{ModelID: id, QScore: res.QScore})
	}

	// Map iteration order is random; rank by score with the model id as a
	// deterministic tiebreak.
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].QScore == scores[j].QScore {
			return scores[i].ModelID < scores[j].ModelID
		}
		return scores[i].QScore > scores[j].QScore
	})

	avg, _ := sum.Div(decimal.NewFromInt(int64(n))).Float64()
	trend := a.classifyTrend(avg)
	a.lastAvg = avg
	a.hasLast = true

	top := scores
	if len(top) > maxTopModels {
		top = top[:maxTopModels]
	}

	liq, _ := liquidity.Float64()
	return Summary{
		TotalModels:   n,
		AverageQScore: avg,
		TopModels:     top,
		Liquidity:     liq,
		Trend:         trend,
	}
}

// classifyTrend labels the average movement since the previous summary.
// Caller holds a.mu.
func (a *Aggregator) classifyTrend(avg float64) string {
	if !a.hasLast {
		return TrendStable
	}
	switch {
	case avg > a.lastAvg+trendEpsilon:
		return TrendUp
	case avg < a.lastAvg-trendEpsilon:
		return TrendDown
	default:
		return TrendStable
	}
}

func (a *Aggregator) remember(res qscore.Result) {
	a.mu.Lock()
	a.results[res.ModelID] = res
	a.mu.Unlock()
}
