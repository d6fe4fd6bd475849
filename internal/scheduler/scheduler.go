// Package scheduler periodically queues scrapes and sweeps expired postings.
package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/intern-radar/internal/catalog"
	"github.com/spigell/intern-radar/internal/scrape"
	"github.com/spigell/intern-radar/internal/tasks"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Submitter interface {
	Submit(ctx context.Context, req scrape.Request) (*tasks.Task, error)
}

type Cleaner interface {
	CleanExpired(ctx context.Context) (catalog.CleanResult, error)
}

// Options hold cron specs; an empty spec disables that job.
type Options struct {
	ScrapeSpec  string         `mapstructure:"scrape"`
	CleanupSpec string         `mapstructure:"cleanup"`
	RunOnStart  bool           `mapstructure:"run-on-start"`
	Request     scrape.Request `mapstructure:"request"`
}

func DefaultOptions() Options {
	return Options{
		ScrapeSpec:  "@every 6h",
		CleanupSpec: "@daily",
		RunOnStart:  true,
	}
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	submitter Submitter
	cleaner   Cleaner
	opts      Options
	logger    *zap.Logger
}

func New(submitter Submitter, cleaner Cleaner, opts Options, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	cronLog := cronLogger{log: log.Sugar()}
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
		submitter: submitter,
		cleaner:   cleaner,
		opts:      opts,
		logger:    log,
	}
}

// Start registers the jobs and starts cron. With RunOnStart a scrape is queued immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if spec := strings.TrimSpace(s.opts.ScrapeSpec); spec != "" && s.submitter != nil {
		if _, err := s.cron.AddFunc(spec, func() { s.queueScrape(ctx) }); err != nil {
			return fmt.Errorf("scheduling scrape %q: %w", spec, err)
		}
	}
	if spec := strings.TrimSpace(s.opts.CleanupSpec); spec != "" && s.cleaner != nil {
		if _, err := s.cron.AddFunc(spec, func() { s.cleanup(ctx) }); err != nil {
			return fmt.Errorf("scheduling cleanup %q: %w", spec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("scrape", s.opts.ScrapeSpec),
		zap.String("cleanup", s.opts.CleanupSpec),
		zap.Int("jobs", len(s.cron.Entries())),
	)

	if s.opts.RunOnStart && s.submitter != nil {
		go s.queueScrape(ctx)
	}
	return nil
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) queueScrape(ctx context.Context) {
	task, err := s.submitter.Submit(ctx, s.opts.Request)
	if err != nil {
		s.logger.Warn("scheduled scrape not queued", zap.Error(err))
		return
	}
	s.logger.Info("scheduled scrape queued", zap.String("task_id", task.ID))
}

func (s *Scheduler) cleanup(ctx context.Context) {
	if _, err := s.cleaner.CleanExpired(ctx); err != nil {
		s.logger.Warn("scheduled cleanup failed", zap.Error(err))
	}
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
