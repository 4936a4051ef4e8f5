package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"chatten/internal/storage"
)

// Show prints recent score samples or trade orders.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Trades {
		return showTrades(ctx, store, opts.Limit)
	}
	return showScores(ctx, store, opts)
}

func showScores(ctx context.Context, store *storage.Store, opts ShowOptions) error {
	var samples []storage.ScoreSample
	var err error
	if opts.ModelID != "" {
		samples, err = store.ListModelScores(ctx, opts.ModelID, opts.Limit)
	} else {
		samples, err = store.ListRecentScores(ctx, opts.Limit)
	}
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no score samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tModel\tCategory\tQ-Score\tLatency\tThroughput\tQuality\tReliability\tMint\tStatus")

	for _, sample := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%t\t%s\n",
			sample.Bucket.UTC().Format(time.RFC3339),
			sample.ModelID,
			sample.Category,
			sample.QScore,
			sample.LatencyScore,
			sample.ThroughputScore,
			sample.QualityScore,
			sample.ReliabilityScore,
			sample.MintEligible,
			sample.Status,
		)
	}

	writer.Flush()
	return nil
}

func showTrades(ctx context.Context, store *storage.Store, limit int) error {
	orders, err := store.ListRecentTrades(ctx, limit)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(os.Stdout, "no trade orders found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tModel\tSide\tPrice\tGAS\tTokens\tStatus\tTx\tReason")

	for _, order := range orders {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			order.CreatedAt.UTC().Format(time.RFC3339),
			order.ModelID,
			order.Side,
			order.PriceUnits.String(),
			formatDecimal(order.AmountGASUnits.Shift(-8), 8),
			formatDecimal(order.TokensOutUnits.Shift(-8), 8),
			order.Status,
			order.TxHash,
			sanitizeInline(order.Reason),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
