// Package scrape runs source adapters concurrently and stores what they find.
package scrape

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spigell/intern-radar/internal/filtering"
	"github.com/spigell/intern-radar/internal/logger"
	"github.com/spigell/intern-radar/internal/normalize"
	"github.com/spigell/intern-radar/internal/posting"
	"github.com/spigell/intern-radar/internal/sources"
	"github.com/spigell/intern-radar/internal/store"

	"go.uber.org/zap"
)

const (
	// MaxPages caps the pages requested from a single source.
	MaxPages = 5
	// DefaultKeyword is searched when a request names none.
	DefaultKeyword = "software"

	errUnknownSource = "unknown source"
)

type Request struct {
	Sources  []string `json:"sources"`
	Keyword  string   `json:"keyword"`
	Location string   `json:"location"`
	Pages    int      `json:"pages"`
	// Cleanup sweeps expired postings before scraping.
	Cleanup bool `json:"cleanup"`
}

type SourceSummary struct {
	Scraped int    `json:"scraped"`
	Error   string `json:"error,omitempty"`
}

type Summary struct {
	Scraped    int                      `json:"scraped"`
	Saved      int                      `json:"saved"`
	Sources    []string                 `json:"sources"`
	PerSource  map[string]SourceSummary `json:"perSource"`
	Filters    []filtering.Report       `json:"filters,omitempty"`
	Store      *store.SaveResult        `json:"store,omitempty"`
	Cleanup    *store.CleanupReport     `json:"cleanup,omitempty"`
	StartedAt  time.Time                `json:"startedAt"`
	FinishedAt time.Time                `json:"finishedAt"`
	SaveError  string                   `json:"saveError,omitempty"`
}

// Saver is the part of the store the orchestrator mutates.
type Saver interface {
	Save(ctx context.Context, postings []*posting.Posting) (store.SaveResult, error)
	Cleanup(ctx context.Context, opts store.CleanupOptions) (store.CleanupReport, error)
}

type Orchestrator struct {
	adapters  sources.Registry
	store     Saver
	filterCfg *filtering.Config
	logger    *zap.Logger

	// mu serializes runs so two read-modify-write cycles never interleave.
	mu  sync.Mutex
	now func() time.Time

	// Filters builds a fresh pipeline per run.
	Filters func() []filtering.Filter
	// OnSaved is called after a save changed the collection.
	OnSaved func(ctx context.Context, result store.SaveResult)
}

func New(adapters sources.Registry, st Saver, filterCfg *filtering.Config, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if filterCfg == nil {
		filterCfg = &filtering.Config{}
	}

	return &Orchestrator{
		adapters:  adapters,
		store:     st,
		filterCfg: filterCfg,
		logger:    log,
		now:       time.Now,
		Filters:   filtering.Default,
	}
}

// Normalize clamps pages to [1, MaxPages], defaults a blank keyword and resolves the source list.
func (o *Orchestrator) Normalize(req Request) Request {
	req.Pages = min(max(req.Pages, 1), MaxPages)
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		req.Keyword = DefaultKeyword
	}
	req.Location = strings.TrimSpace(req.Location)

	if len(req.Sources) == 0 {
		req.Sources = o.adapters.Names()
		return req
	}

	seen := make(map[string]struct{}, len(req.Sources))
	names := make([]string, 0, len(req.Sources))
	for _, name := range req.Sources {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	req.Sources = names
	return req
}

type sourceResult struct {
	name    string
	records []*posting.RawRecord
	err     error
}

// Run scrapes the requested sources and saves the result once.
// Source failures are recorded in the summary; only filter and save failures are returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Summary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req = o.Normalize(req)
	summary := &Summary{
		Sources:   req.Sources,
		PerSource: make(map[string]SourceSummary, len(req.Sources)),
		StartedAt: o.now(),
	}
	defer func() { summary.FinishedAt = o.now() }()

	o.logger.Info("starting scrape",
		zap.Strings("sources", req.Sources),
		zap.String("keyword", req.Keyword),
		zap.String("location", req.Location),
		zap.Int("pages", req.Pages),
	)

	if req.Cleanup {
		report, err := o.store.Cleanup(ctx, store.CleanupOptions{})
		if err != nil {
			o.logger.Warn("pre-scrape cleanup failed", zap.Error(err))
		} else {
			summary.Cleanup = &report
		}
	}

	results := o.fetchAll(ctx, req)

	batch := &posting.Records{}
	for _, result := range results {
		entry := SourceSummary{Scraped: len(result.records)}
		if result.err != nil {
			entry.Error = result.err.Error()
		}
		summary.PerSource[result.name] = entry
		summary.Scraped += len(result.records)
		batch.Items = append(batch.Items, result.records...)
	}

	filtered, reports, err := filtering.Run(ctx, o.filterCfg, filtering.Deps{Logger: o.logger}, o.Filters(), batch)
	if err != nil {
		return summary, fmt.Errorf("filtering records: %w", err)
	}
	summary.Filters = reports

	now := o.now()
	postings := make([]*posting.Posting, 0, filtered.Len())
	for _, raw := range filtered.Items {
		postings = append(postings, normalize.ToPosting(raw, now))
	}

	saved, err := o.store.Save(ctx, postings)
	summary.Store = &saved
	if err != nil {
		summary.SaveError = err.Error()
		o.logger.Error("saving postings failed", zap.Error(err))
		return summary, fmt.Errorf("saving postings: %w", err)
	}
	summary.Saved = saved.Added

	if o.OnSaved != nil && (saved.Added > 0 || saved.Expired > 0) {
		o.OnSaved(ctx, saved)
	}

	o.logger.Info("scrape finished",
		zap.Int("scraped", summary.Scraped),
		zap.Int("saved", summary.Saved),
		zap.Int("total", saved.Total),
	)

	return summary, nil
}

// fetchAll runs every requested adapter in its own goroutine. Results are ordered by source name.
func (o *Orchestrator) fetchAll(ctx context.Context, req Request) []sourceResult {
	results := make([]sourceResult, len(req.Sources))

	var wg sync.WaitGroup
	for i, name := range req.Sources {
		adapter, ok := o.adapters.Get(name)
		if !ok {
			results[i] = sourceResult{name: name, err: fmt.Errorf("%s: %s", errUnknownSource, name)}
			o.logger.Warn(errUnknownSource, zap.String(logger.FieldSource, name))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.fetchOne(ctx, name, adapter, req)
		}()
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) fetchOne(ctx context.Context, name string, adapter sources.Adapter, req Request) (result sourceResult) {
	log := logger.WithSource(o.logger, name)
	result.name = name

	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("adapter panicked: %v", r)
			log.Error("adapter panicked", zap.Any("panic", r))
		}
	}()

	started := time.Now()
	records, err := adapter.Fetch(ctx, req.Keyword, req.Location, req.Pages)
	result.records = records
	result.err = err

	if err != nil {
		log.Warn("source failed", zap.Int("records", len(records)), zap.Error(err))
		return result
	}

	log.Info("source scraped", zap.Int("records", len(records)), zap.Duration("took", time.Since(started)))
	return result
}
