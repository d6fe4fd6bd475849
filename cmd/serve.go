package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/intern-radar/internal/api"
	"github.com/spigell/intern-radar/internal/scheduler"
	"github.com/spigell/intern-radar/internal/tasks"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled scrapes",
	Run: func(cmd *cobra.Command, _ []string) {
		config, logger := setup()
		logger.Info("starting the intern-radar server", zap.String("version", version))

		if err := runServe(cmd, config, logger); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Bool("no-schedule", false, "disable periodic scrape and cleanup")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

// runServe returns instead of exiting so every deferred close runs.
func runServe(cmd *cobra.Command, config *Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(config, logger)
	defer st.Close()
	engine, cat := readSide(config, st, logger)

	orchestrator, closeDriver, err := newOrchestrator(config, st, engine, logger)
	if err != nil {
		return fmt.Errorf("preparing the scraper: %w", err)
	}
	defer closeDriver()

	taskStore, closeTasks, err := newTaskStore(ctx, config)
	if err != nil {
		return fmt.Errorf("preparing the task store: %w", err)
	}
	defer closeTasks()

	manager := tasks.NewManager(orchestrator, taskStore, config.Tasks.Options, logger)
	manager.Start(ctx)
	defer manager.Stop()

	extractor, err := newSkillExtractor(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("resume skill extraction disabled", zap.Error(err))
	}

	if noSchedule, _ := cmd.Flags().GetBool("no-schedule"); !noSchedule {
		opts := config.Schedule
		opts.Request = scheduledRequest(opts.Request, config.Scrape)

		sched := scheduler.New(manager, cat, opts, logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting the scheduler: %w", err)
		}
		defer sched.Stop()
	}

	// build the index before accepting requests.
	engine.Refresh(ctx)

	server := api.New(api.Deps{
		Scraper:     orchestrator,
		Tasks:       manager,
		Catalog:     cat,
		Recommender: engine,
		Extractor:   extractor,
	}, config.Server, logger)

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("api server stopped: %w", err)
	}
	return nil
}
