package trader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"chatten/internal/chain"
	"chatten/internal/pricing"
	"chatten/internal/qscore"
)

// Order lifecycle labels.
const (
	SideBuy = "buy"

	StatusDryRun    = "dry-run"
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// ErrNotABuy rejects execution of a hold decision.
var ErrNotABuy = errors.New("decision is not a buy")

// Options parameterise the buy rule.
type Options struct {
	ModelID          string
	MaxBuyPriceUnits int64
	BuyAmountGAS     float64
	GasTokenHash     string
	ContractHash     string
	WalletAddress    string
	DryRun           bool
}

// Decision is the outcome of one evaluation pass.
type Decision struct {
	ModelID    string
	PriceUnits *big.Int
	QScore     float64
	Buy        bool
	Reason     string
	At         time.Time
}

// Order records one executed or simulated buy.
type Order struct {
	ID             string
	ModelID        string
	Side           string
	PriceUnits     *big.Int
	AmountGASUnits *big.Int
	TokensOutUnits *big.Int
	Status         string
	TxHash         string
	Reason         string
	CreatedAt      time.Time
}

// Trader applies the buy rule: purchase a fixed GAS amount of COMPUTE when
// the model is mint eligible and the on-chain price sits below the ceiling.
type Trader struct {
	opts    Options
	prices  chain.PriceReader
	invoker chain.Invoker
	logger  zerolog.Logger
}

// New builds a trader. invoker may be nil when DryRun is set.
func New(opts Options, prices chain.PriceReader, invoker chain.Invoker, logger zerolog.Logger) *Trader {
	return &Trader{
		opts:    opts,
		prices:  prices,
		invoker: invoker,
		logger:  logger.With().Str("component", "trader").Logger(),
	}
}

// Evaluate reads the live price for the scored model and decides whether to
// buy. A hold is a decision, not an error.
func (t *Trader) Evaluate(ctx context.Context, score qscore.Result) (Decision, error) {
	if t.prices == nil {
		return Decision{}, errors.New("price reader not configured")
	}

	price, err := t.prices.ReadPrice(ctx, score.ModelID)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		ModelID:    score.ModelID,
		PriceUnits: price,
		QScore:     score.QScore,
		At:         time.Now().UTC(),
	}

	ceiling := big.NewInt(t.opts.MaxBuyPriceUnits)
	switch {
	case price.Sign() <= 0:
		d.Reason = "no price set on chain"
	case !score.MintEligible:
		d.Reason = fmt.Sprintf("q-score %.2f below mint threshold", score.QScore)
	case price.Cmp(ceiling) >= 0:
		d.Reason = fmt.Sprintf("price %s at or above ceiling %s", price, ceiling)
	default:
		d.Buy = true
		d.Reason = fmt.Sprintf("mint eligible and price %s below ceiling %s", price, ceiling)
	}

	t.logger.Debug().
		Str("model", d.ModelID).
		Str("price", price.String()).
		Bool("buy", d.Buy).
		Str("reason", d.Reason).
		Msg("trade evaluated")

	return d, nil
}

// Execute turns a buy decision into an order. The buy is a GAS transfer to
// the COMPUTE contract carrying the model id as payment data. In dry-run
// mode the order is fabricated without touching the chain.
func (t *Trader) Execute(ctx context.Context, d Decision) (Order, error) {
	if !d.Buy {
		return Order{}, ErrNotABuy
	}

	amount, err := gasUnits(t.opts.BuyAmountGAS)
	if err != nil {
		return Order{}, err
	}

	quote, err := pricing.QuoteBuy(amount, d.PriceUnits)
	if err != nil {
		return Order{}, fmt.Errorf("quote buy: %w", err)
	}

	order := Order{
		ID:             uuid.NewString(),
		ModelID:        d.ModelID,
		Side:           SideBuy,
		PriceUnits:     d.PriceUnits,
		AmountGASUnits: amount,
		TokensOutUnits: quote.AmountOut,
		Reason:         d.Reason,
		CreatedAt:      time.Now().UTC(),
	}

	if t.opts.DryRun {
		order.Status = StatusDryRun
		t.logger.Info().
			Str("model", d.ModelID).
			Str("gas_in", pricing.FormatUnits(amount)).
			Str("tokens_out", pricing.FormatUnits(quote.AmountOut)).
			Msg("dry-run buy order")
		return order, nil
	}

	if t.invoker == nil {
		return Order{}, errors.New("invoker not configured")
	}
	if t.opts.GasTokenHash == "" || t.opts.ContractHash == "" || t.opts.WalletAddress == "" {
		return Order{}, errors.New("gas token, contract hash and wallet address are required for live orders")
	}

	res, err := t.invoker.Invoke(ctx, chain.InvokeRequest{
		Contract: t.opts.GasTokenHash,
		Method:   "transfer",
		Params: []chain.Param{
			chain.Hash160Param(t.opts.WalletAddress),
			chain.Hash160Param(t.opts.ContractHash),
			chain.IntegerParam(amount),
			chain.ByteArrayParam([]byte(d.ModelID)),
		},
		Signer: t.opts.WalletAddress,
	})
	if err != nil {
		order.Status = StatusFailed
		return order, fmt.Errorf("submit buy order: %w", err)
	}

	order.TxHash = res.TxHash
	if !res.Halted() {
		order.Status = StatusFailed
		return order, fmt.Errorf("buy order faulted: state=%s exception=%s", res.State, res.Exception)
	}

	order.Status = StatusSubmitted
	t.logger.Info().
		Str("model", d.ModelID).
		Str("order_id", order.ID).
		Str("gas_in", pricing.FormatUnits(amount)).
		Str("tokens_out", pricing.FormatUnits(quote.AmountOut)).
		Msg("buy order submitted")

	return order, nil
}

// gasUnits converts a human GAS amount into smallest units.
func gasUnits(amount float64) (*big.Int, error) {
	d := decimal.NewFromFloat(amount)
	if d.Sign() <= 0 {
		return nil, errors.New("buy amount must be positive")
	}
	units := d.Shift(pricing.TokenDecimals)
	if !units.IsInteger() {
		return nil, fmt.Errorf("buy amount %s exceeds %d decimal places", d, pricing.TokenDecimals)
	}
	return units.BigInt(), nil
}
