package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spigell/intern-radar/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLocked is returned when another writer holds the lock file past all retries.
var ErrLocked = errors.New("collection is locked by another writer")

func (s *Store) lockPath() string {
	return s.opts.Path + ".lock"
}

// lock takes the cross-process lock file. A lock older than LockTTL is considered abandoned.
func (s *Store) lock(ctx context.Context) (func(), error) {
	path := s.lockPath()

	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			owner := uuid.NewString()
			_, _ = fmt.Fprintf(f, `{"pid":%d,"time":%d,"owner":%q}`+"\n", os.Getpid(), time.Now().Unix(), owner)
			_ = f.Close()
			return func() { s.unlock(path, owner) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) >= s.opts.LockTTL {
			s.logger.Warn("removing stale lock file",
				zap.String("lock", path),
				zap.Duration("age", time.Since(info.ModTime())),
			)
			_ = os.Remove(path)
		}

		if attempt >= s.opts.LockRetries {
			return nil, ErrLocked
		}

		if err := utils.WaitFor(ctx, s.opts.LockRetryDelay); err != nil {
			return nil, err
		}
	}
}

// unlock removes the lock file only while it still carries owner.
// A lock taken over as stale belongs to another writer and is left alone.
func (s *Store) unlock(path, owner string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if !bytes.Contains(data, []byte(owner)) {
		s.logger.Warn("lock file was taken over, leaving it to the new holder", zap.String("lock", path))
		return
	}
	_ = os.Remove(path)
}
