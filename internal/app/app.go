package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chatten/internal/alerting"
	"chatten/internal/chain"
	"chatten/internal/config"
	"chatten/internal/market"
	"chatten/internal/oracle"
	"chatten/internal/pricing"
	"chatten/internal/qscore"
	"chatten/internal/scheduler"
	"chatten/internal/service"
	"chatten/internal/storage"
	"chatten/internal/telemetry"
	"chatten/internal/trader"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newOracleStore wires the metrics oracle behind the snapshot cache. Without
// a base URL the store serves cached or zero snapshots only.
func (a *App) newOracleStore() *oracle.Store {
	var source oracle.Source
	if a.Config.Oracle.BaseURL != "" {
		source = oracle.NewHTTPSource(oracle.HTTPOptions{
			BaseURL:   a.Config.Oracle.BaseURL,
			Timeout:   a.Config.Oracle.RequestTimeout,
			UserAgent: a.Config.Oracle.UserAgent,
		}, a.Logger)
	}
	return oracle.NewStore(source, a.Logger)
}

func (a *App) newAggregator(snapshots qscore.SnapshotGetter) *market.Aggregator {
	calc := qscore.NewCalculator(snapshots, a.Logger)
	return market.NewAggregator(calc, market.Options{
		Concurrency: a.Config.Market.CompareConcurrency,
	}, a.Logger)
}

func (a *App) newBridge() *chain.Bridge {
	return chain.NewBridge(chain.BridgeOptions{
		RPCURL:       a.Config.Chain.RPCURL,
		ContractHash: a.Config.Chain.ContractHash,
		NetworkMagic: a.Config.Chain.NetworkMagic,
		Timeout:      a.Config.Chain.RequestTimeout,
	}, a.Logger)
}

func (a *App) newTrader(prices chain.PriceReader, invoker chain.Invoker) *trader.Trader {
	return trader.New(trader.Options{
		ModelID:          a.Config.TraderModel(),
		MaxBuyPriceUnits: a.Config.Trader.MaxBuyPriceUnits,
		BuyAmountGAS:     a.Config.Trader.BuyAmountGAS,
		GasTokenHash:     a.Config.Chain.GasTokenHash,
		ContractHash:     a.Config.Chain.ContractHash,
		WalletAddress:    a.Config.Chain.WalletAddress,
		DryRun:           a.Config.Trader.DryRun,
	}, prices, invoker, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running marketplace service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := pricing.ValidateStorageLayout(); err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	agg := a.newAggregator(a.newOracleStore())
	notifier := a.newNotifier()

	var trd *trader.Trader
	if a.Config.Trader.Enabled {
		bridge := a.newBridge()
		if err := bridge.VerifyNetwork(ctx); err != nil {
			return err
		}
		trd = a.newTrader(bridge, bridge)
	}

	if a.Config.Telemetry.Enabled {
		go func() {
			if err := telemetry.Serve(ctx, a.Config.Telemetry.ListenAddr, a.Logger); err != nil {
				a.Logger.Error().Err(err).Msg("telemetry listener failed")
			}
		}()
	}

	var sampleStore storage.ScoreSampleStore
	var tradeStore storage.TradeOrderStore
	if store != nil {
		sampleStore = store
		tradeStore = store
	}

	svc := service.New(a.Config, sched, agg, trd, sampleStore, tradeStore, notifier, a.Logger)

	a.Logger.Info().Msg("starting marketplace service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("marketplace service stopped")
	return nil
}

// ScoreOptions configure a one-shot scoring pass.
type ScoreOptions struct {
	ModelID      string
	Category     string
	SnapshotPath string
}

// QuoteOptions configure the quote command.
type QuoteOptions struct {
	ModelID    string
	Side       string
	Amount     string
	PriceUnits int64
}

// ExportOptions hold parameters for exporting historical scores.
type ExportOptions struct {
	ModelID   string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit   int
	ModelID string
	Trades  bool
}

// BackfillOptions configure the snapshot replay job.
type BackfillOptions struct {
	SnapshotsPath string
	DryRun        bool
}

// SimulateOptions configure the trade simulation.
type SimulateOptions struct {
	ModelID      string
	PriceUnits   int64
	SnapshotPath string
}
