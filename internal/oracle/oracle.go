package oracle

import (
	"context"
	"errors"

	"chatten/internal/qscore"
)

// ErrNotFound signals that the oracle has no metrics for a model. The store
// treats it as defined absence and serves the zero snapshot.
var ErrNotFound = errors.New("model metrics not found")

// Source retrieves performance snapshots from an external metrics oracle.
type Source interface {
	Fetch(ctx context.Context, modelID string) (qscore.Snapshot, error)
}
