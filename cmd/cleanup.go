package cmd

import (
	"context"
	"fmt"

	"github.com/spigell/intern-radar/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired postings from the store",
	Run: func(cmd *cobra.Command, _ []string) {
		runCleanup(cmd)
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().Bool("dry-run", false, "only report what would be removed")
	cleanupCmd.Flags().Int("days-ahead", 0, "also remove postings whose deadline is within this many days")
	cleanupCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func runCleanup(cmd *cobra.Command) {
	ctx := context.Background()
	config, logger := setup()

	st := openStore(config, logger)
	defer st.Close()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	daysAhead, _ := cmd.Flags().GetInt("days-ahead")
	yes, _ := cmd.Flags().GetBool("yes")

	opts := store.CleanupOptions{DaysAhead: daysAhead, DryRun: true}
	preview, err := st.Cleanup(ctx, opts)
	if err != nil {
		logger.Fatal("previewing cleanup", zap.Error(err))
	}

	if dryRun || preview.Removed == 0 {
		if err := printJSON(cmd.OutOrStdout(), preview); err != nil {
			logger.Warn("printing report", zap.Error(err))
		}
		return
	}

	if !yes {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Remove %d postings (%d expired, %d expiring soon)?", preview.Removed, preview.Expired, preview.ExpiringSoon),
			Items: []string{PromptYes, PromptNo},
		}
		_, answer, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	opts.DryRun = false
	report, err := st.Cleanup(ctx, opts)
	if err != nil {
		logger.Fatal("cleanup failed", zap.Error(err))
	}
	if err := printJSON(cmd.OutOrStdout(), report); err != nil {
		logger.Warn("printing report", zap.Error(err))
	}
}
