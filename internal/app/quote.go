package app

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"

	"chatten/internal/pricing"
)

// Quote prices a buy or sell against the bonding curve. The price comes from
// --price when given, otherwise from the contract on chain.
func (a *App) Quote(ctx context.Context, opts QuoteOptions) error {
	amount, err := pricing.ParseUnits(opts.Amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	modelID := opts.ModelID
	if modelID == "" {
		modelID = a.Config.TraderModel()
	}

	price := big.NewInt(opts.PriceUnits)
	if opts.PriceUnits <= 0 {
		bridge := a.newBridge()
		price, err = bridge.ReadPrice(ctx, modelID)
		if err != nil {
			return err
		}
	}

	var (
		quote           pricing.Quote
		inUnit, outUnit string
	)
	switch strings.ToLower(strings.TrimSpace(opts.Side)) {
	case "buy":
		inUnit, outUnit = "GAS", "COMPUTE"
		quote, err = pricing.QuoteBuy(amount, price)
	case "sell":
		inUnit, outUnit = "COMPUTE", "GAS"
		quote, err = pricing.QuoteSell(amount, price)
	default:
		return fmt.Errorf("side must be buy or sell, got %q", opts.Side)
	}
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Model\t%s\n", modelID)
	fmt.Fprintf(writer, "Price\t%s units/COMPUTE\n", quote.Price)
	fmt.Fprintf(writer, "Amount in\t%s %s\n", pricing.FormatUnits(quote.AmountIn), inUnit)
	fmt.Fprintf(writer, "Fee (0.3%%)\t%s %s\n", pricing.FormatUnits(quote.Fee), inUnit)
	fmt.Fprintf(writer, "Net\t%s %s\n", pricing.FormatUnits(quote.Net), inUnit)
	fmt.Fprintf(writer, "Amount out\t%s %s\n", pricing.FormatUnits(quote.AmountOut), outUnit)
	return writer.Flush()
}
