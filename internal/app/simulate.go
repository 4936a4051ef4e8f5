package app

import (
	"context"
	"errors"
	"math/big"
	"os"

	"github.com/shopspring/decimal"

	"chatten/internal/alerting"
	"chatten/internal/chain"
	"chatten/internal/pricing"
	"chatten/internal/qscore"
	"chatten/internal/trader"
)

type simulateOrder struct {
	ID        string `json:"id"`
	GasIn     string `json:"gas_in"`
	Fee       string `json:"fee"`
	TokensOut string `json:"tokens_out"`
	Status    string `json:"status"`
}

type simulateOutput struct {
	ModelID    string         `json:"model_id"`
	QScore     float64        `json:"q_score"`
	PriceUnits string         `json:"price_units"`
	Buy        bool           `json:"buy"`
	Reason     string         `json:"reason"`
	Order      *simulateOrder `json:"order,omitempty"`
}

// SimulateTrade 使用给定价格模拟一次交易决策，不触链。
func (a *App) SimulateTrade(ctx context.Context, opts SimulateOptions) error {
	if opts.PriceUnits <= 0 {
		return errors.New("--price 必须为正整数")
	}

	modelID := opts.ModelID
	if modelID == "" {
		modelID = a.Config.TraderModel()
	}

	snap, err := readSnapshotFile(opts.SnapshotPath)
	if err != nil {
		return err
	}

	calc := qscore.NewCalculator(a.newOracleStore(), a.Logger)
	res, err := calc.Score(ctx, modelID, snap, qscore.CategoryLLM)
	if err != nil {
		return err
	}

	prices := &staticPriceReader{price: big.NewInt(opts.PriceUnits)}
	trd := trader.New(trader.Options{
		ModelID:          modelID,
		MaxBuyPriceUnits: a.Config.Trader.MaxBuyPriceUnits,
		BuyAmountGAS:     a.Config.Trader.BuyAmountGAS,
		DryRun:           true,
	}, prices, nil, a.Logger)

	decision, err := trd.Evaluate(ctx, res)
	if err != nil {
		return err
	}

	out := simulateOutput{
		ModelID:    decision.ModelID,
		QScore:     decision.QScore,
		PriceUnits: decision.PriceUnits.String(),
		Buy:        decision.Buy,
		Reason:     decision.Reason,
	}

	if decision.Buy {
		order, err := trd.Execute(ctx, decision)
		if err != nil {
			return err
		}
		fee := pricing.Fee(order.AmountGASUnits)
		out.Order = &simulateOrder{
			ID:        order.ID,
			GasIn:     pricing.FormatUnits(order.AmountGASUnits),
			Fee:       pricing.FormatUnits(fee),
			TokensOut: pricing.FormatUnits(order.TokensOutUnits),
			Status:    order.Status,
		}

		if notifier := a.newNotifier(); notifier != nil {
			note := alerting.Notification{
				Kind:       alerting.KindTradeDryRun,
				ModelID:    order.ModelID,
				QScore:     res.QScore,
				PriceUnits: bigToDisplay(order.PriceUnits, 0),
				AmountGAS:  bigToDisplay(order.AmountGASUnits, -8),
				TokensOut:  bigToDisplay(order.TokensOutUnits, -8),
				Status:     order.Status,
				Reason:     order.Reason,
				At:         order.CreatedAt,
			}
			if err := notifier.Notify(ctx, note); err != nil {
				a.Logger.Error().Err(err).Msg("failed to dispatch simulated trade notification")
			}
		}
	}

	return printJSON(os.Stdout, out)
}

func bigToDisplay(v *big.Int, exp int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, exp)
}

type staticPriceReader struct {
	price *big.Int
}

func (s *staticPriceReader) ReadPrice(ctx context.Context, modelID string) (*big.Int, error) {
	return new(big.Int).Set(s.price), nil
}

var _ chain.PriceReader = (*staticPriceReader)(nil)
