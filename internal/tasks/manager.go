package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spigell/intern-radar/internal/logger"
	"github.com/spigell/intern-radar/internal/scrape"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes one scrape request.
type Runner interface {
	Run(ctx context.Context, req scrape.Request) (*scrape.Summary, error)
}

type Options struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue-size"`
	RetainFor time.Duration `mapstructure:"retain-for"`
}

func DefaultOptions() Options {
	return Options{
		Workers:   2,
		QueueSize: 100,
		RetainFor: 30 * time.Minute,
	}
}

// Manager owns the worker pool and the bounded queue feeding it.
type Manager struct {
	runner Runner
	store  Store
	opts   Options
	logger *zap.Logger

	queue      chan string
	workers    sync.WaitGroup
	background sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func NewManager(runner Runner, store Store, opts Options, log *zap.Logger) *Manager {
	defaults := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.RetainFor <= 0 {
		opts.RetainFor = defaults.RetainFor
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Manager{
		runner: runner,
		store:  store,
		opts:   opts,
		logger: log,
		queue:  make(chan string, opts.QueueSize),
	}
}

// Start launches the workers and the pruning loop. They live until Stop or ctx is done.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	for i := range m.opts.Workers {
		m.workers.Add(1)
		go func() {
			defer m.workers.Done()
			m.worker(ctx, i)
		}()
	}

	m.background.Add(1)
	go func() {
		defer m.background.Done()
		m.pruneLoop(ctx)
	}()

	m.logger.Info("task workers started", zap.Int("workers", m.opts.Workers), zap.Int("queue_size", m.opts.QueueSize))
}

// Stop stops accepting tasks, lets queued ones drain and waits for the workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.queue)
	cancel := m.cancel
	m.mu.Unlock()

	m.workers.Wait()
	if cancel != nil {
		cancel()
	}
	m.background.Wait()
}

// Submit queues a scrape request and returns the pending task immediately.
func (m *Manager) Submit(ctx context.Context, req scrape.Request) (*Task, error) {
	task := &Task{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Request:   req,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, ErrStopped
	}

	if err := m.store.Put(ctx, task); err != nil {
		return nil, fmt.Errorf("storing task: %w", err)
	}

	select {
	case m.queue <- task.ID:
	default:
		m.finish(ctx, task, nil, ErrQueueFull)
		return nil, ErrQueueFull
	}

	logger.WithTask(m.logger, task.ID).Info("task queued", zap.Int("queued", len(m.queue)))
	return task.clone(), nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) worker(ctx context.Context, n int) {
	for id := range m.queue {
		log := logger.WithTask(m.logger, id).With(zap.Int("worker", n))

		task, err := m.store.Get(ctx, id)
		if err != nil {
			log.Warn("queued task vanished", zap.Error(err))
			continue
		}

		started := time.Now()
		task.Status = StatusRunning
		task.StartedAt = &started
		if err := m.store.Put(ctx, task); err != nil {
			log.Warn("storing running state failed", zap.Error(err))
		}

		log.Info("task started")
		summary, runErr := m.runner.Run(ctx, task.Request)
		m.finish(ctx, task, summary, runErr)
	}
}

func (m *Manager) finish(ctx context.Context, task *Task, summary *scrape.Summary, runErr error) {
	log := logger.WithTask(m.logger, task.ID)

	completed := time.Now()
	task.CompletedAt = &completed
	task.Summary = summary
	task.Status = StatusCompleted
	if runErr != nil {
		task.Status = StatusFailed
		task.Error = runErr.Error()
	}

	// the task outcome must be recorded even when the run was cancelled.
	if err := m.store.Put(context.WithoutCancel(ctx), task); err != nil {
		log.Error("storing task result failed", zap.Error(err))
	}

	if runErr != nil {
		log.Warn("task failed", zap.Error(runErr))
		return
	}
	if summary != nil {
		log = log.With(zap.Int("saved", summary.Saved))
	}
	log.Info("task completed")
}

func (m *Manager) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(max(m.opts.RetainFor/6, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.store.CleanupOld(ctx, m.opts.RetainFor)
			if err != nil {
				m.logger.Warn("pruning tasks failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				m.logger.Debug("pruned finished tasks", zap.Int("removed", removed))
			}
		}
	}
}
