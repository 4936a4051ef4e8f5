package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatten/internal/alerting"
	"chatten/internal/config"
	"chatten/internal/market"
	"chatten/internal/qscore"
	"chatten/internal/storage"
	"chatten/internal/trader"
)

type mapGetter map[string]qscore.Snapshot

func (m mapGetter) Get(_ context.Context, modelID string) qscore.Snapshot {
	return m[modelID]
}

type fakeStore struct {
	samples []storage.ScoreSample
	orders  []storage.TradeOrder
}

func (f *fakeStore) UpsertScoreSample(_ context.Context, sample storage.ScoreSample) error {
	f.samples = append(f.samples, sample)
	return nil
}

func (f *fakeStore) ListScoresBetween(context.Context, string, time.Time, time.Time) ([]storage.ScoreSample, error) {
	return nil, nil
}

func (f *fakeStore) ListRecentScores(context.Context, int) ([]storage.ScoreSample, error) {
	return nil, nil
}

func (f *fakeStore) ListModelScores(context.Context, string, int) ([]storage.ScoreSample, error) {
	return nil, nil
}

func (f *fakeStore) CountScores(context.Context) (int64, error) { return 0, nil }

func (f *fakeStore) InsertTradeOrder(_ context.Context, order storage.TradeOrder) error {
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeStore) ListRecentTrades(context.Context, int) ([]storage.TradeOrder, error) {
	return nil, nil
}

type fakeNotifier struct {
	notes []alerting.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, note alerting.Notification) error {
	f.notes = append(f.notes, note)
	return nil
}

type fakePrices struct {
	price *big.Int
}

func (f *fakePrices) ReadPrice(context.Context, string) (*big.Int, error) {
	return new(big.Int).Set(f.price), nil
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestService(store *fakeStore, notifier *fakeNotifier) *Service {
	snapshots := mapGetter{
		"gpt-4": {
			AvgLatencyMS:   50,
			ThroughputTPS:  1000,
			Accuracy:       0.95,
			BenchmarkScore: 85,
			UptimePercent:  99.9,
			ErrorRate:      0.001,
		},
	}

	logger := noopLogger()
	calc := qscore.NewCalculator(snapshots, logger)
	agg := market.NewAggregator(calc, market.Options{}, logger)
	trd := trader.New(trader.Options{
		ModelID:          "gpt-4",
		MaxBuyPriceUnits: 1_000_000,
		BuyAmountGAS:     2,
		DryRun:           true,
	}, &fakePrices{price: big.NewInt(900_000)}, nil, logger)

	cfg := &config.Config{}
	cfg.Market.Models = []string{"gpt-4"}
	cfg.Trader.Enabled = true
	cfg.Alerting.Enabled = true

	return New(cfg, nil, agg, trd, store, store, notifier, logger)
}

func TestProcessBucketPersistsAndTrades(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	bucket := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	if err := svc.ProcessBucket(context.Background(), bucket); err != nil {
		t.Fatalf("ProcessBucket: %v", err)
	}

	if len(store.samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(store.samples))
	}
	sample := store.samples[0]
	if sample.ModelID != "gpt-4" {
		t.Fatalf("unexpected model: %s", sample.ModelID)
	}
	if sample.QScore != 91.5 {
		t.Fatalf("unexpected q-score: %v", sample.QScore)
	}
	if !sample.MintEligible {
		t.Fatal("sample should be mint eligible")
	}
	if sample.Status != storage.SampleStatusOK {
		t.Fatalf("unexpected status: %s", sample.Status)
	}
	if len(sample.Snapshot) == 0 {
		t.Fatal("snapshot payload should be stored")
	}

	if len(store.orders) != 1 {
		t.Fatalf("expected 1 trade order, got %d", len(store.orders))
	}
	order := store.orders[0]
	if order.Status != trader.StatusDryRun {
		t.Fatalf("unexpected order status: %s", order.Status)
	}
	if order.AmountGASUnits.String() != "200000000" {
		t.Fatalf("unexpected gas amount: %s", order.AmountGASUnits)
	}
	if order.TokensOutUnits.String() != "22155555555" {
		t.Fatalf("unexpected tokens out: %s", order.TokensOutUnits)
	}
}

func TestProcessBucketNotifiesMintOnce(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	bucket := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	if err := svc.ProcessBucket(context.Background(), bucket); err != nil {
		t.Fatalf("first bucket: %v", err)
	}
	if err := svc.ProcessBucket(context.Background(), bucket.Add(time.Minute)); err != nil {
		t.Fatalf("second bucket: %v", err)
	}

	mint := 0
	dryRun := 0
	for _, note := range notifier.notes {
		switch note.Kind {
		case alerting.KindMintEligible:
			mint++
		case alerting.KindTradeDryRun:
			dryRun++
		}
	}
	if mint != 1 {
		t.Fatalf("mint notification should fire once, got %d", mint)
	}
	if dryRun != 2 {
		t.Fatalf("expected a dry-run note per bucket, got %d", dryRun)
	}

	last := notifier.notes[len(notifier.notes)-1]
	if last.Kind != alerting.KindTradeDryRun {
		t.Fatalf("unexpected last note kind: %s", last.Kind)
	}
	if last.AmountGAS.String() != "2" {
		t.Fatalf("unexpected display GAS amount: %s", last.AmountGAS)
	}
	if last.TokensOut.String() != "221.55555555" {
		t.Fatalf("unexpected display tokens: %s", last.TokensOut)
	}
}

func TestProcessBucketAllModelsFailing(t *testing.T) {
	logger := noopLogger()
	calc := qscore.NewCalculator(mapGetter{}, logger)
	agg := market.NewAggregator(calc, market.Options{}, logger)

	cfg := &config.Config{}
	cfg.Market.Models = []string{""}

	svc := New(cfg, nil, agg, nil, nil, nil, nil, logger)
	if err := svc.ProcessBucket(context.Background(), time.Now()); err == nil {
		t.Fatal("bucket with no scorable models should error")
	}
}
