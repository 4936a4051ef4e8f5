package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"chatten/internal/app"
)

var (
	simulateModel    string
	simulatePrice    int64
	simulateSnapshot string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-trade",
	Short: "模拟一次交易决策（不触链）",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 {
			return errors.New("--price 必须大于 0")
		}

		opts := app.SimulateOptions{
			ModelID:      simulateModel,
			PriceUnits:   simulatePrice,
			SnapshotPath: simulateSnapshot,
		}

		return getApp().SimulateTrade(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateModel, "model", "", "模型 ID（默认取 trader 配置）")
	simulateCmd.Flags().Int64Var(&simulatePrice, "price", 0, "模拟链上价格（最小单位）")
	simulateCmd.Flags().StringVar(&simulateSnapshot, "snapshot", "", "指标快照 JSON 文件（默认取 oracle）")
}
