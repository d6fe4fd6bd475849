// Package catalog serves read-side views of the stored collection.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spigell/intern-radar/internal/posting"
	"github.com/spigell/intern-radar/internal/store"

	"go.uber.org/zap"
)

const (
	SortDeadline  = "deadline"
	SortRecent    = "recent"
	SortTitle     = "title"
	SortCompany   = "company"
	SortRelevance = "relevance"

	DefaultLimit = 50
)

// Store is the part of the posting store the catalog reads and sweeps.
type Store interface {
	Load(ctx context.Context) *posting.Collection
	Cleanup(ctx context.Context, opts store.CleanupOptions) (store.CleanupReport, error)
}

// Searcher ranks postings against free text.
type Searcher interface {
	Search(ctx context.Context, text string, limit int) []posting.MatchResult
}

type ListParams struct {
	Domain     string `json:"domain"`
	Experience string `json:"experience"`
	Search     string `json:"search"`
	Sort       string `json:"sort"`
	Limit      int    `json:"limit"`
}

type Item struct {
	posting.Posting
	Score     float64 `json:"score,omitempty"`
	Freshness string  `json:"freshness"`
}

type Stats struct {
	Total       int        `json:"total"`
	Domains     int        `json:"domains"`
	Companies   int        `json:"companies"`
	Locations   int        `json:"locations"`
	LastRefresh *time.Time `json:"lastRefresh,omitempty"`
}

type CleanResult struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

type Catalog struct {
	store    Store
	searcher Searcher
	logger   *zap.Logger
	now      func() time.Time

	// OnCleaned is called after a cleanup removed postings.
	OnCleaned func(ctx context.Context, result CleanResult)
}

func New(st Store, searcher Searcher, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{store: st, searcher: searcher, logger: log, now: time.Now}
}

// List filters and sorts the collection. A search term ranks by relevance unless another sort is given.
func (c *Catalog) List(ctx context.Context, params ListParams) ([]Item, error) {
	sortKey := strings.ToLower(strings.TrimSpace(params.Sort))
	switch sortKey {
	case "", SortDeadline, SortRecent, SortTitle, SortCompany, SortRelevance:
	default:
		return nil, fmt.Errorf("unknown sort key %q", params.Sort)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var items []Item
	if search := strings.TrimSpace(params.Search); search != "" && c.searcher != nil {
		// filtering happens afterwards, so ask for every hit.
		for _, r := range c.searcher.Search(ctx, search, 0) {
			items = append(items, Item{Posting: r.Posting, Score: r.Score})
		}
		if sortKey == "" {
			sortKey = SortRelevance
		}
	} else {
		for _, p := range c.store.Load(ctx).Internships {
			items = append(items, Item{Posting: *p})
		}
		if sortKey == "" || sortKey == SortRelevance {
			sortKey = SortDeadline
		}
	}

	filtered := items[:0]
	for _, item := range items {
		if !containsFold(item.Domain, params.Domain) || !containsFold(item.ExperienceLevel, params.Experience) {
			continue
		}
		filtered = append(filtered, item)
	}

	sortItems(filtered, sortKey)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	now := c.now()
	for i := range filtered {
		filtered[i].Freshness = posting.Freshness(&filtered[i].Posting, now)
	}
	if filtered == nil {
		filtered = []Item{}
	}
	return filtered, nil
}

func containsFold(value, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}

func sortItems(items []Item, key string) {
	var less func(a, b *Item) bool
	switch key {
	case SortRelevance:
		less = func(a, b *Item) bool { return a.Score > b.Score }
	case SortRecent:
		less = func(a, b *Item) bool { return a.ScrapedAt > b.ScrapedAt }
	case SortTitle:
		less = func(a, b *Item) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortCompany:
		less = func(a, b *Item) bool { return strings.ToLower(a.Company) < strings.ToLower(b.Company) }
	default:
		// undated postings go last.
		less = func(a, b *Item) bool {
			da, okA := a.Deadline()
			db, okB := b.Deadline()
			if okA != okB {
				return okA
			}
			return da.Before(db)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return less(&items[i], &items[j]) })
}

func (c *Catalog) Stats(ctx context.Context) Stats {
	collection := c.store.Load(ctx)

	domains := map[string]struct{}{}
	companies := map[string]struct{}{}
	locations := map[string]struct{}{}
	for _, p := range collection.Internships {
		domains[strings.ToLower(p.Domain)] = struct{}{}
		companies[strings.ToLower(p.Company)] = struct{}{}
		locations[strings.ToLower(p.Location)] = struct{}{}
	}

	stats := Stats{
		Total:     collection.Len(),
		Domains:   len(domains),
		Companies: len(companies),
		Locations: len(locations),
	}
	if last, ok := store.LastRefresh(collection); ok {
		stats.LastRefresh = &last
	}
	return stats
}

// CleanExpired removes postings whose deadline has passed.
func (c *Catalog) CleanExpired(ctx context.Context) (CleanResult, error) {
	report, err := c.store.Cleanup(ctx, store.CleanupOptions{})
	if err != nil {
		return CleanResult{}, fmt.Errorf("cleaning expired postings: %w", err)
	}
	c.logger.Info("expired postings cleaned", zap.Int("removed", report.Removed), zap.Int("remaining", report.Remaining))

	result := CleanResult{Removed: report.Removed, Remaining: report.Remaining}
	if result.Removed > 0 && c.OnCleaned != nil {
		c.OnCleaned(ctx, result)
	}
	return result, nil
}
