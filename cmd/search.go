package cmd

import (
	"context"
	"strings"

	"github.com/spigell/intern-radar/internal/catalog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search stored postings by free text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("limit", 10, "maximum number of results")
	searchCmd.Flags().String("domain", "", "only postings whose domain contains this text")
	searchCmd.Flags().String("sort", "", "relevance, deadline, recent, title or company")
}

func runSearch(cmd *cobra.Command, text string) {
	ctx := context.Background()
	config, logger := setup()

	st := openStore(config, logger)
	defer st.Close()
	_, cat := readSide(config, st, logger)

	limit, _ := cmd.Flags().GetInt("limit")
	domain, _ := cmd.Flags().GetString("domain")
	sortKey, _ := cmd.Flags().GetString("sort")

	items, err := cat.List(ctx, catalog.ListParams{Search: text, Domain: domain, Sort: sortKey, Limit: limit})
	if err != nil {
		logger.Fatal("searching postings", zap.Error(err))
	}

	logger.Info("search finished", zap.String("text", text), zap.Int("results", len(items)))
	if err := printJSON(cmd.OutOrStdout(), items); err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}
}
