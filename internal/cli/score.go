package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatten/internal/app"
)

var (
	scoreModel    string
	scoreCategory string
	scoreSnapshot string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the Q-Score for one model",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scoreModel == "" {
			return fmt.Errorf("--model must be provided")
		}

		opts := app.ScoreOptions{
			ModelID:      scoreModel,
			Category:     scoreCategory,
			SnapshotPath: scoreSnapshot,
		}

		return getApp().Score(cmd.Context(), opts)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreModel, "model", "", "Model identifier to score")
	scoreCmd.Flags().StringVar(&scoreCategory, "category", "", "Model category (llm, image_generation, embedding, audio, multimodal)")
	scoreCmd.Flags().StringVar(&scoreSnapshot, "snapshot", "", "Path to a JSON metrics snapshot (defaults to the oracle)")
}
