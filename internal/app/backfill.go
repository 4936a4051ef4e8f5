package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"chatten/internal/qscore"
	"chatten/internal/service"
	"chatten/internal/storage"
)

type backfillEntry struct {
	ModelID  string          `json:"model_id"`
	Category string          `json:"category"`
	At       time.Time       `json:"at"`
	Snapshot qscore.Snapshot `json:"metrics"`
}

// Backfill replays historical metric snapshots from a JSON file into storage。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	interval := a.Config.Scheduler.Interval
	if interval <= 0 {
		return errors.New("scheduler interval 配置不合法")
	}

	entries, err := readBackfillFile(opts.SnapshotsPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("回填文件为空")
	}

	var store *storage.Store
	var closeStore func()
	var sampleStore storage.ScoreSampleStore

	if opts.DryRun {
		a.Logger.Warn().Msg("回填 dry-run：不会写入数据库")
	} else {
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn 未配置，无法回填")
		}
		if closeStore != nil {
			defer closeStore()
		}
		sampleStore = store
	}

	calc := qscore.NewCalculator(nil, a.Logger)

	processed := 0
	failed := 0
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		category, err := qscore.ParseCategory(entry.Category)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("model", entry.ModelID).Msg("回填条目类别不合法")
			continue
		}

		snap := entry.Snapshot
		res, err := calc.Score(ctx, entry.ModelID, &snap, category)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("model", entry.ModelID).Msg("回填打分失败")
			continue
		}

		bucket := entry.At.UTC().Truncate(interval)
		if sampleStore != nil {
			if err := sampleStore.UpsertScoreSample(ctx, service.SampleFromResult(bucket, res)); err != nil {
				failed++
				a.Logger.Error().Err(err).Str("model", entry.ModelID).Time("bucket", bucket).Msg("回填写入失败")
				continue
			}
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("回填完成")
	if failed > 0 {
		return errors.New("部分条目回填失败，请检查日志")
	}
	return nil
}

func readBackfillFile(path string) ([]backfillEntry, error) {
	if path == "" {
		return nil, errors.New("--snapshots 必须指定回填文件")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backfill file: %w", err)
	}

	var entries []backfillEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse backfill file: %w", err)
	}
	return entries, nil
}
