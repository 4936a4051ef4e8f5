package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertScoreSampleSQL = `INSERT INTO score_samples (
        bucket_ts,
        model_id,
        category,
        q_score,
        latency_score,
        throughput_score,
        quality_score,
        reliability_score,
        mint_eligible,
        status,
        snapshot
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (bucket_ts, model_id) DO UPDATE
    SET
        category          = EXCLUDED.category,
        q_score           = EXCLUDED.q_score,
        latency_score     = EXCLUDED.latency_score,
        throughput_score  = EXCLUDED.throughput_score,
        quality_score     = EXCLUDED.quality_score,
        reliability_score = EXCLUDED.reliability_score,
        mint_eligible     = EXCLUDED.mint_eligible,
        status            = EXCLUDED.status,
        snapshot          = EXCLUDED.snapshot;`

	listScoresBetweenSQL = `SELECT
        bucket_ts,
        model_id,
        category,
        q_score,
        latency_score,
        throughput_score,
        quality_score,
        reliability_score,
        mint_eligible,
        status,
        snapshot,
        created_at
    FROM score_samples
    WHERE model_id = $1
      AND bucket_ts >= $2
      AND bucket_ts < $3
    ORDER BY bucket_ts;`

	listRecentScoresSQL = `SELECT
        bucket_ts,
        model_id,
        category,
        q_score,
        latency_score,
        throughput_score,
        quality_score,
        reliability_score,
        mint_eligible,
        status,
        snapshot,
        created_at
    FROM score_samples
    ORDER BY bucket_ts DESC
    LIMIT $1;`

	listModelScoresSQL = `SELECT
        bucket_ts,
        model_id,
        category,
        q_score,
        latency_score,
        throughput_score,
        quality_score,
        reliability_score,
        mint_eligible,
        status,
        snapshot,
        created_at
    FROM score_samples
    WHERE model_id = $1
    ORDER BY bucket_ts DESC
    LIMIT $2;`

	countScoresSQL = `SELECT COUNT(*) FROM score_samples;`

	insertTradeOrderSQL = `INSERT INTO trade_orders (
        id,
        model_id,
        side,
        price_units,
        amount_gas_units,
        tokens_out_units,
        status,
        tx_hash,
        reason,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    );`

	listRecentTradesSQL = `SELECT
        id,
        model_id,
        side,
        price_units,
        amount_gas_units,
        tokens_out_units,
        status,
        tx_hash,
        reason,
        created_at
    FROM trade_orders
    ORDER BY created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ScoreSampleStore defines operations for score sample persistence.
type ScoreSampleStore interface {
	UpsertScoreSample(ctx context.Context, sample ScoreSample) error
	ListScoresBetween(ctx context.Context, modelID string, from, to time.Time) ([]ScoreSample, error)
	ListRecentScores(ctx context.Context, limit int) ([]ScoreSample, error)
	ListModelScores(ctx context.Context, modelID string, limit int) ([]ScoreSample, error)
	CountScores(ctx context.Context) (int64, error)
}

// TradeOrderStore defines operations for trade order auditing.
type TradeOrderStore interface {
	InsertTradeOrder(ctx context.Context, order TradeOrder) error
	ListRecentTrades(ctx context.Context, limit int) ([]TradeOrder, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to score samples and trade orders.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertScoreSample persists or updates the score row for one model and bucket.
func (s *Store) UpsertScoreSample(ctx context.Context, sample ScoreSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var snapshot interface{}
	if len(sample.Snapshot) > 0 {
		snapshot = []byte(sample.Snapshot)
	}

	_, execErr := pool.Exec(ctx, upsertScoreSampleSQL,
		sample.Bucket,
		sample.ModelID,
		sample.Category,
		sample.QScore,
		sample.LatencyScore,
		sample.ThroughputScore,
		sample.QualityScore,
		sample.ReliabilityScore,
		sample.MintEligible,
		sample.Status,
		snapshot,
	)
	if execErr != nil {
		return fmt.Errorf("upsert score sample: %w", execErr)
	}
	return nil
}

// ListScoresBetween lists one model's samples within a time window.
func (s *Store) ListScoresBetween(ctx context.Context, modelID string, from, to time.Time) ([]ScoreSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listScoresBetweenSQL, modelID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list scores between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]ScoreSample, 0)
	for rows.Next() {
		sample, scanErr := scanScoreSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListRecentScores lists the most recent samples across all models.
func (s *Store) ListRecentScores(ctx context.Context, limit int) ([]ScoreSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentScoresSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent scores: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]ScoreSample, 0, limit)
	for rows.Next() {
		sample, scanErr := scanScoreSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListModelScores lists the most recent samples for one model.
func (s *Store) ListModelScores(ctx context.Context, modelID string, limit int) ([]ScoreSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listModelScoresSQL, modelID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list model scores: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]ScoreSample, 0, limit)
	for rows.Next() {
		sample, scanErr := scanScoreSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// CountScores counts stored samples.
func (s *Store) CountScores(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countScoresSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count scores: %w", scanErr)
	}
	return count, nil
}

// InsertTradeOrder persists a trade order decision.
func (s *Store) InsertTradeOrder(ctx context.Context, order TradeOrder) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	price := order.PriceUnits.String()
	amount := order.AmountGASUnits.String()
	tokens := order.TokensOutUnits.String()

	if _, execErr := pool.Exec(ctx, insertTradeOrderSQL,
		order.ID,
		order.ModelID,
		order.Side,
		price,
		amount,
		tokens,
		order.Status,
		order.TxHash,
		order.Reason,
		order.CreatedAt,
	); execErr != nil {
		return fmt.Errorf("insert trade order: %w", execErr)
	}
	return nil
}

// ListRecentTrades lists most recent trade orders.
func (s *Store) ListRecentTrades(ctx context.Context, limit int) ([]TradeOrder, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTradesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent trades: %w", queryErr)
	}
	defer rows.Close()

	orders := make([]TradeOrder, 0, limit)
	for rows.Next() {
		var (
			order     TradeOrder
			priceStr  string
			amountStr string
			tokensStr string
			txHash    sql.NullString
		)
		if err := rows.Scan(
			&order.ID,
			&order.ModelID,
			&order.Side,
			&priceStr,
			&amountStr,
			&tokensStr,
			&order.Status,
			&txHash,
			&order.Reason,
			&order.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		order.PriceUnits, convErr = decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse price units: %w", convErr)
		}
		order.AmountGASUnits, convErr = decimal.NewFromString(amountStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse amount units: %w", convErr)
		}
		order.TokensOutUnits, convErr = decimal.NewFromString(tokensStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse tokens out units: %w", convErr)
		}
		if txHash.Valid {
			order.TxHash = txHash.String
		}

		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return orders, nil
}

func scanScoreSample(rows pgx.Rows) (ScoreSample, error) {
	var (
		bucket      time.Time
		modelID     string
		category    string
		qScore      float64
		latency     float64
		throughput  float64
		quality     float64
		reliability float64
		eligible    bool
		status      string
		snapshot    json.RawMessage
		createdAt   time.Time
	)

	if err := rows.Scan(
		&bucket,
		&modelID,
		&category,
		&qScore,
		&latency,
		&throughput,
		&quality,
		&reliability,
		&eligible,
		&status,
		&snapshot,
		&createdAt,
	); err != nil {
		return ScoreSample{}, err
	}

	return ScoreSample{
		Bucket:           bucket,
		ModelID:          modelID,
		Category:         category,
		QScore:           qScore,
		LatencyScore:     latency,
		ThroughputScore:  throughput,
		QualityScore:     quality,
		ReliabilityScore: reliability,
		MintEligible:     eligible,
		Status:           status,
		Snapshot:         snapshot,
		CreatedAt:        createdAt,
	}, nil
}
