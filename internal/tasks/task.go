// Package tasks runs scrape requests in the background on a fixed worker pool.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/intern-radar/internal/scrape"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrNotFound  = errors.New("task not found")
	ErrQueueFull = errors.New("task queue is full")
	ErrStopped   = errors.New("task manager is stopped")
)

type Task struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Request     scrape.Request  `json:"request"`
	Summary     *scrape.Summary `json:"summary,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

func (t *Task) Finished() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

func (t *Task) clone() *Task {
	c := *t
	c.Request.Sources = append([]string(nil), t.Request.Sources...)
	return &c
}

// Store keeps task state where status polls can reach it.
type Store interface {
	Put(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// CleanupOld forgets finished tasks completed more than maxAge ago.
	CleanupOld(ctx context.Context, maxAge time.Duration) (int, error)
}
