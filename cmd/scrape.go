package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/intern-radar/internal/scrape"
	"github.com/spigell/intern-radar/internal/tasks"
	"github.com/spigell/intern-radar/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const taskPollInterval = 2 * time.Second

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape listing sites and merge new postings into the store",
	Run: func(cmd *cobra.Command, _ []string) {
		config, logger := setup()
		logger.Info("starting the intern-radar scrape", zap.String("version", version))

		// runScrape returns instead of exiting so the page driver is closed first.
		if err := runScrape(cmd, config, logger); err != nil {
			logger.Fatal("scrape failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringSliceP("sources", "s", nil, "comma separated sources to scrape (default all)")
	scrapeCmd.Flags().StringP("keyword", "k", "", "search keyword")
	scrapeCmd.Flags().StringP("location", "l", "", "search location")
	scrapeCmd.Flags().IntP("pages", "p", 0, "pages per source, at most 5")
	scrapeCmd.Flags().Bool("cleanup", false, "sweep expired postings before scraping")
	scrapeCmd.Flags().Bool("background", false, "run through the task queue and poll its status")

	viper.BindPFlag("scrape.sources", scrapeCmd.Flags().Lookup("sources"))
	viper.BindPFlag("scrape.keyword", scrapeCmd.Flags().Lookup("keyword"))
	viper.BindPFlag("scrape.location", scrapeCmd.Flags().Lookup("location"))
	viper.BindPFlag("scrape.pages", scrapeCmd.Flags().Lookup("pages"))
}

func runScrape(cmd *cobra.Command, config *Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(config, logger)
	defer st.Close()

	orchestrator, closeDriver, err := newOrchestrator(config, st, nil, logger)
	if err != nil {
		return fmt.Errorf("preparing the scrape: %w", err)
	}
	defer closeDriver()

	cleanup, _ := cmd.Flags().GetBool("cleanup")
	background, _ := cmd.Flags().GetBool("background")

	req := config.Scrape.Request()
	req.Cleanup = cleanup

	var summary *scrape.Summary
	if background {
		summary, err = scrapeInBackground(ctx, config, orchestrator, req, logger)
	} else {
		summary, err = orchestrator.Run(ctx, req)
	}

	if summary != nil {
		if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
			logger.Warn("printing summary", zap.Error(perr))
		}
	}
	if err != nil {
		return err
	}

	if summary != nil {
		logger.Info("scrape finished", zap.Int("scraped", summary.Scraped), zap.Int("saved", summary.Saved))
	}
	return nil
}

func scrapeInBackground(ctx context.Context, config *Config, runner tasks.Runner, req scrape.Request, logger *zap.Logger) (*scrape.Summary, error) {
	taskStore, closeStore, err := newTaskStore(ctx, config)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	manager := tasks.NewManager(runner, taskStore, config.Tasks.Options, logger)
	manager.Start(ctx)
	defer manager.Stop()

	task, err := manager.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	for {
		current, err := manager.Get(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		logger.Info("task status", zap.String("task_id", current.ID), zap.String("status", current.Status))

		if current.Finished() {
			if current.Status == tasks.StatusFailed {
				return current.Summary, errors.New(current.Error)
			}
			return current.Summary, nil
		}

		if err := utils.WaitFor(ctx, taskPollInterval); err != nil {
			return nil, err
		}
	}
}
