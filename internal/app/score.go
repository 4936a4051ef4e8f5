package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"chatten/internal/market"
	"chatten/internal/qscore"
)

// Score runs a single model through the calculator and prints the result.
// The snapshot comes from --snapshot when given, otherwise from the oracle.
func (a *App) Score(ctx context.Context, opts ScoreOptions) error {
	snap, err := readSnapshotFile(opts.SnapshotPath)
	if err != nil {
		return err
	}

	agg := a.newAggregator(a.newOracleStore())
	resp, err := agg.Execute(ctx, market.Request{
		Action:   market.ActionCalculate,
		ModelID:  opts.ModelID,
		Category: opts.Category,
		Snapshot: snap,
	})
	if err != nil {
		return err
	}

	return printJSON(os.Stdout, resp.Result)
}

// Compare ranks the given models by composite score and prints a table.
func (a *App) Compare(ctx context.Context, modelIDs []string) error {
	if len(modelIDs) == 0 {
		modelIDs = a.Config.Market.Models
	}

	agg := a.newAggregator(a.newOracleStore())
	resp, err := agg.Execute(ctx, market.Request{
		Action:   market.ActionCompare,
		ModelIDs: modelIDs,
	})
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tModel\tQ-Score\tLatency\tThroughput\tQuality\tReliability\tMint")
	for i, res := range resp.Ranking {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%t\n",
			i+1,
			res.ModelID,
			res.QScore,
			res.LatencyScore,
			res.ThroughputScore,
			res.QualityScore,
			res.ReliabilityScore,
			res.MintEligible,
		)
	}
	return writer.Flush()
}

// MarketSummary scores every tracked model and prints market statistics.
func (a *App) MarketSummary(ctx context.Context) error {
	agg := a.newAggregator(a.newOracleStore())

	if _, err := agg.Execute(ctx, market.Request{
		Action:   market.ActionCompare,
		ModelIDs: a.Config.Market.Models,
	}); err != nil {
		return err
	}

	resp, err := agg.Execute(ctx, market.Request{Action: market.ActionMarket})
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, resp.Summary)
}

func readSnapshotFile(path string) (*qscore.Snapshot, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var snap qscore.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot file: %w", err)
	}
	return &snap, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
