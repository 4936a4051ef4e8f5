package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatten/internal/qscore"
)

// Actions accepted at the agent-facing boundary.
const (
	ActionCalculate = "calculate"
	ActionCompare   = "compare"
	ActionMarket    = "market"
)

// ErrUnknownAction marks an action selector outside the supported set.
// Callers branch with errors.Is instead of parsing message text.
var ErrUnknownAction = errors.New("unknown action")

// Request is one call at the agent boundary.
type Request struct {
	Action   string           `json:"action"`
	ModelID  string           `json:"model_id,omitempty"`
	ModelIDs []string         `json:"model_ids,omitempty"`
	Category string           `json:"category,omitempty"`
	Snapshot *qscore.Snapshot `json:"metrics,omitempty"`
}

// Response carries whichever payload the action produced.
type Response struct {
	Result  *qscore.Result  `json:"result,omitempty"`
	Ranking []qscore.Result `json:"ranking,omitempty"`
	Summary *Summary        `json:"summary,omitempty"`
}

// Execute routes an agent request onto the aggregator.
func (a *Aggregator) Execute(ctx context.Context, req Request) (Response, error) {
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionCalculate:
		category, err := qscore.ParseCategory(req.Category)
		if err != nil {
			return Response{}, err
		}
		res, err := a.Score(ctx, req.ModelID, req.Snapshot, category)
		if err != nil {
			return Response{}, err
		}
		return Response{Result: &res}, nil

	case ActionCompare:
		ranking, err := a.Compare(ctx, req.ModelIDs)
		if err != nil {
			return Response{}, err
		}
		return Response{Ranking: ranking}, nil

	case ActionMarket:
		summary := a.Summary(ctx)
		return Response{Summary: &summary}, nil

	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}
