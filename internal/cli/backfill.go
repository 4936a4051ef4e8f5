package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatten/internal/app"
)

var (
	backfillSnapshots string
	backfillDryRun    bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay historical metric snapshots into storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillSnapshots == "" {
			return fmt.Errorf("--snapshots must be provided")
		}

		opts := app.BackfillOptions{
			SnapshotsPath: backfillSnapshots,
			DryRun:        backfillDryRun,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillSnapshots, "snapshots", "", "Path to a JSON file of historical metric snapshots")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Run without writing to storage")
}
