package cli

import (
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare [model...]",
	Short: "Rank models by Q-Score",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Compare(cmd.Context(), args)
	},
}
