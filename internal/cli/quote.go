package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatten/internal/app"
)

var (
	quoteModel  string
	quoteSide   string
	quoteAmount string
	quotePrice  int64
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote a buy or sell against the bonding curve",
	RunE: func(cmd *cobra.Command, args []string) error {
		if quoteAmount == "" {
			return fmt.Errorf("--amount must be provided")
		}

		opts := app.QuoteOptions{
			ModelID:    quoteModel,
			Side:       quoteSide,
			Amount:     quoteAmount,
			PriceUnits: quotePrice,
		}

		return getApp().Quote(cmd.Context(), opts)
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteModel, "model", "", "Model market to quote (defaults to the trader model)")
	quoteCmd.Flags().StringVar(&quoteSide, "side", "buy", "Quote side: buy (GAS in) or sell (COMPUTE in)")
	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "", "Amount in display units, e.g. 2 or 199.4")
	quoteCmd.Flags().Int64Var(&quotePrice, "price", 0, "Price in smallest units per COMPUTE (defaults to the on-chain price)")
}
