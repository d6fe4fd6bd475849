package cmd

import (
	"context"

	"github.com/spigell/intern-radar/internal/filtering"
	"github.com/spigell/intern-radar/internal/posting"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var excludeCmd = &cobra.Command{
	Use:   "exclude <posting-id>...",
	Short: "Add stored postings to the exclude file so scrapes drop them",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		runExclude(args)
	},
}

func init() {
	rootCmd.AddCommand(excludeCmd)
}

func runExclude(ids []string) {
	config, logger := setup()

	path := config.Exclude.ExcludeFile
	if path == "" {
		logger.Fatal("exclude file is not configured", zap.String("hint", "set exclude.file"))
	}

	st := openStore(config, logger)
	defer st.Close()

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var found []*posting.Posting
	for _, p := range st.Load(context.Background()).Internships {
		if _, ok := wanted[p.ID]; ok {
			found = append(found, p)
			delete(wanted, p.ID)
		}
	}
	for id := range wanted {
		logger.Warn("posting not found", zap.String("id", id))
	}
	if len(found) == 0 {
		logger.Info("nothing to exclude")
		return
	}

	excluded, err := filtering.LoadExcluded(path)
	if err != nil {
		logger.Fatal("loading exclude file", zap.String("file", path), zap.Error(err))
	}
	excluded.Append(found...)

	if err := excluded.ToFile(path); err != nil {
		logger.Fatal("writing exclude file", zap.String("file", path), zap.Error(err))
	}

	logger.Info("postings excluded", zap.Int("count", len(found)), zap.String("file", path))
}
