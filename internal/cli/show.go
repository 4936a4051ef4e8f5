package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatten/internal/app"
)

var (
	showLimit  int
	showModel  string
	showTrades bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent score samples or trade orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:   showLimit,
			ModelID: showModel,
			Trades:  showTrades,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().StringVar(&showModel, "model", "", "Filter score samples by model")
	showCmd.Flags().BoolVar(&showTrades, "trades", false, "Display trade orders instead of score samples")
}
