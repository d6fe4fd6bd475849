package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	Run: func(cmd *cobra.Command, _ []string) {
		config, logger := setup()

		st := openStore(config, logger)
		defer st.Close()
		_, cat := readSide(config, st, logger)

		if err := printJSON(cmd.OutOrStdout(), cat.Stats(context.Background())); err != nil {
			logger.Fatal("printing stats", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
