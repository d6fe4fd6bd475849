// Package api exposes scraping, task status, the catalog and matching over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spigell/intern-radar/internal/ai"
	"github.com/spigell/intern-radar/internal/catalog"
	"github.com/spigell/intern-radar/internal/posting"
	"github.com/spigell/intern-radar/internal/scrape"
	"github.com/spigell/intern-radar/internal/tasks"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Scraper interface {
	Run(ctx context.Context, req scrape.Request) (*scrape.Summary, error)
}

type TaskQueue interface {
	Submit(ctx context.Context, req scrape.Request) (*tasks.Task, error)
	Get(ctx context.Context, id string) (*tasks.Task, error)
}

type Catalog interface {
	List(ctx context.Context, params catalog.ListParams) ([]catalog.Item, error)
	Stats(ctx context.Context) catalog.Stats
	CleanExpired(ctx context.Context) (catalog.CleanResult, error)
}

type Recommender interface {
	Recommend(ctx context.Context, query posting.CandidateQuery, topK int) []posting.MatchResult
}

// Deps are the services behind the handlers. Extractor is optional.
type Deps struct {
	Scraper     Scraper
	Tasks       TaskQueue
	Catalog     Catalog
	Recommender Recommender
	Extractor   ai.SkillExtractor
}

type Options struct {
	Addr        string        `mapstructure:"addr"`
	DefaultTopK int           `mapstructure:"default-top-k"`
	MaxTopK     int           `mapstructure:"max-top-k"`
	MaxBodySize int64         `mapstructure:"max-body-size"`
	ReadTimeout time.Duration `mapstructure:"read-timeout"`
}

func DefaultOptions() Options {
	return Options{
		Addr:        ":8080",
		DefaultTopK: 10,
		MaxTopK:     50,
		MaxBodySize: 1 << 20,
		ReadTimeout: 10 * time.Second,
	}
}

type Server struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

func New(deps Deps, opts Options, log *zap.Logger) *Server {
	defaults := DefaultOptions()
	if opts.Addr == "" {
		opts.Addr = defaults.Addr
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = defaults.DefaultTopK
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = defaults.MaxTopK
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaults.MaxBodySize
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaults.ReadTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{deps: deps, opts: opts, logger: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/scrape", s.handleScrape)
	r.Get("/tasks/{id}", s.handleTask)
	r.Get("/postings", s.handleList)
	r.Get("/stats", s.handleStats)
	r.Post("/cleanup", s.handleCleanup)
	r.Post("/match", s.handleMatch)

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", zap.String("addr", s.opts.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
