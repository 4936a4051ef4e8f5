package oracle

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"chatten/internal/qscore"
	"chatten/internal/telemetry"
)

// Store is the in-memory metrics cache backing the score calculator. Reads
// fall through to the configured Source on a miss and degrade to the zero
// snapshot when the oracle has nothing, so scoring never fails on absent
// data. Safe for concurrent use; writes are last-write-wins.
type Store struct {
	source Source
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]qscore.Snapshot
}

// NewStore builds a store. source may be nil when no oracle is deployed.
func NewStore(source Source, logger zerolog.Logger) *Store {
	return &Store{
		source: source,
		logger: logger.With().Str("component", "oracle_store").Logger(),
		cache:  make(map[string]qscore.Snapshot),
	}
}

// Get returns the freshest snapshot known for a model. Cache first, then the
// oracle source, then the zero value. Never returns an error.
func (s *Store) Get(ctx context.Context, modelID string) qscore.Snapshot {
	s.mu.RLock()
	snap, ok := s.cache[modelID]
	s.mu.RUnlock()
	if ok {
		telemetry.RecordOracleFetch("cache")
		return snap
	}

	if s.source == nil {
		telemetry.RecordOracleFetch("default")
		return qscore.Snapshot{}
	}

	fetched, err := s.source.Fetch(ctx, modelID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug().Str("model", modelID).Msg("oracle has no metrics, serving zero snapshot")
			telemetry.RecordOracleFetch("default")
		} else {
			s.logger.Warn().Err(err).Str("model", modelID).Msg("oracle fetch failed, serving zero snapshot")
			telemetry.RecordOracleFetch("error")
		}
		return qscore.Snapshot{}
	}

	s.Put(ctx, modelID, fetched)
	telemetry.RecordOracleFetch("fetched")
	return fetched
}

// Put records a snapshot for a model, replacing any prior value.
func (s *Store) Put(_ context.Context, modelID string, snap qscore.Snapshot) {
	s.mu.Lock()
	s.cache[modelID] = snap
	s.mu.Unlock()
}

var _ qscore.SnapshotGetter = (*Store)(nil)
