package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "chatten"

var (
	registry = prometheus.NewRegistry()

	scoresComputed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scores_computed_total",
		Help:      "Number of Q-Score computations performed.",
	})

	scoreErrors = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_errors_total",
		Help:      "Number of scoring attempts that failed.",
	})

	oracleFetches = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_fetch_total",
		Help:      "Metrics store lookups by outcome (cache, fetched, default, error).",
	}, []string{"outcome"})

	trades = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_total",
		Help:      "Trade orders produced by the trader, by status.",
	}, []string{"status"})

	modelQScore = promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_q_score",
		Help:      "Latest composite Q-Score per tracked model.",
	}, []string{"model"})
)

// RecordScore notes one successful scoring pass for a model.
func RecordScore(modelID string, qScore float64) {
	scoresComputed.Inc()
	modelQScore.WithLabelValues(modelID).Set(qScore)
}

// RecordScoreError notes one failed scoring pass.
func RecordScoreError() {
	scoreErrors.Inc()
}

// RecordOracleFetch notes one metrics store lookup outcome.
func RecordOracleFetch(outcome string) {
	oracleFetches.WithLabelValues(outcome).Inc()
}

// RecordTrade notes one trade order by status.
func RecordTrade(status string) {
	trades.WithLabelValues(status).Inc()
}

// Handler exposes the package registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Serve runs the /metrics listener until the context is cancelled.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().Str("addr", addr).Msg("telemetry listener started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
