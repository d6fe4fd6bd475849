package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/intern-radar/internal/utils"

	"go.uber.org/zap"
)

// ErrLoadFailed is matched by every *LoadFailedError.
var ErrLoadFailed = errors.New("page load failed")

// LoadFailedError is returned once all attempts to load a URL are exhausted.
type LoadFailedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *LoadFailedError) Error() string {
	return fmt.Sprintf("loading %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *LoadFailedError) Unwrap() error { return e.Err }

func (e *LoadFailedError) Is(target error) bool { return target == ErrLoadFailed }

// LoadPolicy bounds a single navigation with retries, linear backoff and a per-attempt timeout.
type LoadPolicy struct {
	Attempts   int           `mapstructure:"attempts"`
	RetryDelay time.Duration `mapstructure:"retry-delay"`
	Timeout    time.Duration `mapstructure:"timeout"`

	Logger *zap.Logger `mapstructure:"-"`
}

func DefaultLoadPolicy() LoadPolicy {
	return LoadPolicy{
		Attempts:   3,
		RetryDelay: 2 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// Load navigates page to url. After failed attempt n it waits RetryDelay*n.
func (p LoadPolicy) Load(ctx context.Context, page Page, url string) error {
	attempts := max(p.Attempts, 1)
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = page.Goto(ctx, url, p.Timeout)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("page load attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("attempts", attempts),
			zap.Error(lastErr),
		)

		if attempt == attempts {
			break
		}

		if err := utils.WaitFor(ctx, p.RetryDelay*time.Duration(attempt)); err != nil {
			return err
		}
	}

	return &LoadFailedError{URL: url, Attempts: attempts, Err: lastErr}
}
