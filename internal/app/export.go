package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"chatten/internal/storage"
)

// Export renders one model's score history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	modelID := opts.ModelID
	if modelID == "" {
		modelID = a.Config.TraderModel()
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	samples, err := store.ListScoresBetween(ctx, modelID, from, to)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		a.Logger.Info().Str("model", modelID).Msg("no samples found for export window")
		return nil
	}

	downsampled := downsampleSamples(samples, opts.MaxPoints)
	a.Logger.Info().Str("model", modelID).Int("total", len(samples)).Int("exported", len(downsampled)).Msg("exporting samples")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSamplesPNG(opts.PNGPath, modelID, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSamples(samples []storage.ScoreSample, max int) []storage.ScoreSample {
	if max <= 0 || len(samples) <= max {
		return samples
	}

	result := make([]storage.ScoreSample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func writeSamplesCSV(path string, samples []storage.ScoreSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"bucket_ts", "model_id", "category", "q_score", "latency_score", "throughput_score", "quality_score", "reliability_score", "mint_eligible", "status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		record := []string{
			sample.Bucket.Format(time.RFC3339),
			sample.ModelID,
			sample.Category,
			formatScore(sample.QScore),
			formatScore(sample.LatencyScore),
			formatScore(sample.ThroughputScore),
			formatScore(sample.QualityScore),
			formatScore(sample.ReliabilityScore),
			strconv.FormatBool(sample.MintEligible),
			sample.Status,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSamplesPNG(path, modelID string, samples []storage.ScoreSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(samples))
	composite := make([]float64, len(samples))
	latency := make([]float64, len(samples))
	throughput := make([]float64, len(samples))
	quality := make([]float64, len(samples))
	reliability := make([]float64, len(samples))

	for i, sample := range samples {
		x[i] = sample.Bucket
		composite[i] = sample.QScore
		latency[i] = sample.LatencyScore
		throughput[i] = sample.ThroughputScore
		quality[i] = sample.QualityScore
		reliability[i] = sample.ReliabilityScore
	}

	scoreFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("Q-Score history: %s", modelID),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Q-Score (0-100)",
			ValueFormatter: scoreFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Component (0-25)",
			ValueFormatter: scoreFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Q-Score",
				XValues: x,
				YValues: composite,
			},
			chart.TimeSeries{
				Name:    "Latency",
				XValues: x,
				YValues: latency,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Throughput",
				XValues: x,
				YValues: throughput,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Quality",
				XValues: x,
				YValues: quality,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Reliability",
				XValues: x,
				YValues: reliability,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
