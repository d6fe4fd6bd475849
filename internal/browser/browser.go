// Package browser loads listing pages through a headless browser or plain HTTP.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DriverPlaywright = "playwright"
	DriverStatic     = "static"
)

// Page is a single tab able to navigate and expose the rendered markup.
type Page interface {
	Goto(ctx context.Context, url string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Content(ctx context.Context) (string, error)
	Close() error
}

// Browser hands out isolated pages, each with its own user agent.
type Browser interface {
	NewPage(ctx context.Context, userAgent string) (Page, error)
	Close() error
}

type Options struct {
	Driver         string        `mapstructure:"driver"`
	Headless       bool          `mapstructure:"headless"`
	ExecutablePath string        `mapstructure:"executable-path"`
	InstallBrowser bool          `mapstructure:"install-browser"`
	RespectRobots  bool          `mapstructure:"respect-robots"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

// New starts the configured driver.
func New(opts Options, logger *zap.Logger) (Browser, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverPlaywright
	}

	logger.Debug("starting page driver", zap.String("driver", driver), zap.Bool("headless", opts.Headless))

	switch driver {
	case DriverPlaywright:
		return NewPlaywright(opts)
	case DriverStatic:
		return NewStatic(opts), nil
	default:
		return nil, fmt.Errorf("unknown page driver %q", opts.Driver)
	}
}
