package cli

import (
	"github.com/spf13/cobra"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Print market-level statistics over tracked models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().MarketSummary(cmd.Context())
	},
}
