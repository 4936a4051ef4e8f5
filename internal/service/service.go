package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"chatten/internal/alerting"
	"chatten/internal/config"
	"chatten/internal/market"
	"chatten/internal/qscore"
	"chatten/internal/scheduler"
	"chatten/internal/storage"
	"chatten/internal/telemetry"
	"chatten/internal/trader"
)

// Service orchestrates scoring, persistence, trading, and notifications.
type Service struct {
	scheduler  *scheduler.Scheduler
	aggregator *market.Aggregator
	trader     *trader.Trader
	store      storage.ScoreSampleStore
	trades     storage.TradeOrderStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	models      []string
	traderOn    bool
	traderModel string
	alertsOn    bool
	locker      storage.AdvisoryLocker
	lockKey     int64

	eligible map[string]bool
}

// New constructs the marketplace service.
func New(cfg *config.Config, sched *scheduler.Scheduler, agg *market.Aggregator, trd *trader.Trader, store storage.ScoreSampleStore, trades storage.TradeOrderStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:   sched,
		aggregator:  agg,
		trader:      trd,
		store:       store,
		trades:      trades,
		notifier:    notifier,
		logger:      logger.With().Str("component", "service").Logger(),
		models:      cfg.Market.Models,
		traderOn:    cfg.Trader.Enabled,
		traderModel: cfg.TraderModel(),
		alertsOn:    cfg.Alerting.Enabled,
		locker:      locker,
		lockKey:     cfg.Scheduler.AdvisoryLockKey,
		eligible:    make(map[string]bool),
	}
}

// Run begins the aligned scoring loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket 执行单个时间桶的打分逻辑。
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeBucket(ctx, bucket)
}

func (s *Service) executeBucket(ctx context.Context, bucket time.Time) error {
	scored := 0
	var traderResult qscore.Result
	traderScored := false

	for _, modelID := range s.models {
		res, err := s.aggregator.Score(ctx, modelID, nil, qscore.CategoryLLM)
		if err != nil {
			telemetry.RecordScoreError()
			s.logger.Error().Err(err).Str("model", modelID).Time("bucket", bucket).Msg("failed to score model")
			continue
		}
		scored++
		telemetry.RecordScore(modelID, res.QScore)

		if modelID == s.traderModel {
			traderResult = res
			traderScored = true
		}

		s.persistSample(ctx, bucket, res)
		s.notifyMintTransition(ctx, res)
	}

	if scored == 0 && len(s.models) > 0 {
		return fmt.Errorf("no models scored for bucket %s", bucket.Format(time.RFC3339))
	}

	summary := s.aggregator.Summary(ctx)
	s.logger.Info().Time("bucket", bucket).
		Int("models", summary.TotalModels).
		Float64("average_q_score", summary.AverageQScore).
		Float64("liquidity", summary.Liquidity).
		Str("trend", summary.Trend).
		Msg("bucket scored")

	if s.traderOn && s.trader != nil {
		if !traderScored {
			res, err := s.aggregator.Score(ctx, s.traderModel, nil, qscore.CategoryLLM)
			if err != nil {
				s.logger.Error().Err(err).Str("model", s.traderModel).Msg("failed to score trader model")
				return nil
			}
			traderResult = res
		}
		s.runTrader(ctx, traderResult)
	}

	return nil
}

func (s *Service) persistSample(ctx context.Context, bucket time.Time, res qscore.Result) {
	if s.store == nil {
		return
	}

	if err := s.store.UpsertScoreSample(ctx, SampleFromResult(bucket, res)); err != nil {
		s.logger.Error().Err(err).Str("model", res.ModelID).Time("bucket", bucket).Msg("failed to upsert sample")
	}
}

// SampleFromResult flattens a scoring result into its storage row.
func SampleFromResult(bucket time.Time, res qscore.Result) storage.ScoreSample {
	status := storage.SampleStatusOK
	if res.Snapshot.IsZero() {
		status = storage.SampleStatusNoData
	}

	snapshot, err := json.Marshal(res.Snapshot)
	if err != nil {
		snapshot = nil
	}

	return storage.ScoreSample{
		Bucket:           bucket,
		ModelID:          res.ModelID,
		Category:         string(res.Category),
		QScore:           res.QScore,
		LatencyScore:     res.LatencyScore,
		ThroughputScore:  res.ThroughputScore,
		QualityScore:     res.QualityScore,
		ReliabilityScore: res.ReliabilityScore,
		MintEligible:     res.MintEligible,
		Status:           status,
		Snapshot:         snapshot,
		CreatedAt:        time.Now().UTC(),
	}
}

// notifyMintTransition alerts once when a model first clears the mint
// threshold, then stays quiet until it drops below and recovers again.
func (s *Service) notifyMintTransition(ctx context.Context, res qscore.Result) {
	was := s.eligible[res.ModelID]
	s.eligible[res.ModelID] = res.MintEligible

	if !s.alertsOn || s.notifier == nil {
		return
	}
	if !res.MintEligible || was {
		return
	}

	note := alerting.Notification{
		Kind:    alerting.KindMintEligible,
		ModelID: res.ModelID,
		QScore:  res.QScore,
		Reason:  "model crossed the mint threshold",
		At:      res.ScoredAt,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("model", res.ModelID).Msg("failed to dispatch mint notification")
	}
}

func (s *Service) runTrader(ctx context.Context, res qscore.Result) {
	decision, err := s.trader.Evaluate(ctx, res)
	if err != nil {
		s.logger.Error().Err(err).Str("model", res.ModelID).Msg("trade evaluation failed")
		return
	}

	if !decision.Buy {
		s.logger.Debug().Str("model", decision.ModelID).Str("reason", decision.Reason).Msg("holding")
		return
	}

	order, err := s.trader.Execute(ctx, decision)
	if order.ID != "" {
		s.persistOrder(ctx, order)
	}
	if err != nil {
		telemetry.RecordTrade(trader.StatusFailed)
		s.logger.Error().Err(err).Str("model", decision.ModelID).Msg("trade execution failed")
		return
	}

	telemetry.RecordTrade(order.Status)
	s.notifyTrade(ctx, res, order)
}

func (s *Service) persistOrder(ctx context.Context, order trader.Order) {
	if s.trades == nil {
		return
	}

	record := storage.TradeOrder{
		ID:             order.ID,
		ModelID:        order.ModelID,
		Side:           order.Side,
		PriceUnits:     bigToDecimal(order.PriceUnits, 0),
		AmountGASUnits: bigToDecimal(order.AmountGASUnits, 0),
		TokensOutUnits: bigToDecimal(order.TokensOutUnits, 0),
		Status:         order.Status,
		TxHash:         order.TxHash,
		Reason:         order.Reason,
		CreatedAt:      order.CreatedAt,
	}
	if err := s.trades.InsertTradeOrder(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to persist trade order")
	}
}

func (s *Service) notifyTrade(ctx context.Context, res qscore.Result, order trader.Order) {
	if !s.alertsOn || s.notifier == nil {
		return
	}

	kind := alerting.KindTradeExecuted
	if order.Status == trader.StatusDryRun {
		kind = alerting.KindTradeDryRun
	}

	note := alerting.Notification{
		Kind:       kind,
		ModelID:    order.ModelID,
		QScore:     res.QScore,
		PriceUnits: bigToDecimal(order.PriceUnits, 0),
		AmountGAS:  bigToDecimal(order.AmountGASUnits, -8),
		TokensOut:  bigToDecimal(order.TokensOutUnits, -8),
		Status:     order.Status,
		Reason:     order.Reason,
		At:         order.CreatedAt,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to dispatch trade notification")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func bigToDecimal(v *big.Int, exp int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, exp)
}
