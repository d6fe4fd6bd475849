// Package sources extracts raw internship records from listing sites.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spigell/intern-radar/internal/browser"
	"github.com/spigell/intern-radar/internal/logger"
	"github.com/spigell/intern-radar/internal/posting"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// MaxCardsPerPage caps how many cards are read from one results page.
const MaxCardsPerPage = 12

// Adapter fetches raw records from one listing site.
// It fails soft: a broken page or card never aborts the remaining ones.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, keyword, location string, maxPages int) ([]*posting.RawRecord, error)
}

// Field maps a RawRecord role to the selectors that may hold it, tried in order.
// An empty selector addresses the card itself.
type Field struct {
	Role      string
	Selectors []string
	// Attr reads an attribute instead of the element text.
	Attr string
	// List collects the text of every matched element.
	List bool
}

// Layout describes the markup of one site.
type Layout struct {
	Name    string
	BaseURL string
	PageURL func(keyword, location string, page int) string
	// Marker is present once the results list has rendered.
	Marker   string
	Card     string
	Fields   []Field
	MaxCards int
}

// Scraper is an Adapter driven by a Layout.
type Scraper struct {
	layout  Layout
	browser browser.Browser
	policy  browser.LoadPolicy
	logger  *zap.Logger
}

func NewScraper(layout Layout, b browser.Browser, policy browser.LoadPolicy, log *zap.Logger) *Scraper {
	if layout.MaxCards <= 0 {
		layout.MaxCards = MaxCardsPerPage
	}
	log = logger.WithSource(log, layout.Name)
	policy.Logger = log

	return &Scraper{
		layout:  layout,
		browser: b,
		policy:  policy,
		logger:  log,
	}
}

func (s *Scraper) Name() string {
	return s.layout.Name
}

// Fetch walks result pages 1..maxPages sequentially.
// An error is returned only when no page could be read at all.
func (s *Scraper) Fetch(ctx context.Context, keyword, location string, maxPages int) ([]*posting.RawRecord, error) {
	maxPages = max(maxPages, 1)

	var (
		records []*posting.RawRecord
		errs    []error
	)
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		pageURL := s.layout.PageURL(keyword, location, page)
		found, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			s.logger.Warn("skipping page", zap.String("url", pageURL), zap.Error(err))
			errs = append(errs, fmt.Errorf("page %d: %w", page, err))
			continue
		}

		s.logger.Debug("page scraped", zap.String("url", pageURL), zap.Int("records", len(found)))
		records = append(records, found...)
	}

	if len(errs) == maxPages {
		return records, fmt.Errorf("%s: %w", s.layout.Name, errors.Join(errs...))
	}

	return records, nil
}

func (s *Scraper) fetchPage(ctx context.Context, pageURL string) ([]*posting.RawRecord, error) {
	page, err := s.browser.NewPage(ctx, browser.RandomUserAgent())
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := s.policy.Load(ctx, page, pageURL); err != nil {
		return nil, err
	}

	if s.layout.Marker != "" {
		if err := page.WaitFor(ctx, s.layout.Marker, s.markerTimeout()); err != nil {
			return nil, fmt.Errorf("waiting for results: %w", err)
		}
	}

	content, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page content: %w", err)
	}

	return s.Parse(content)
}

func (s *Scraper) markerTimeout() time.Duration {
	if s.policy.Timeout > 0 {
		return s.policy.Timeout
	}
	return browser.DefaultLoadPolicy().Timeout
}

// Parse extracts up to MaxCards records from a results page.
func (s *Scraper) Parse(content string) ([]*posting.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var records []*posting.RawRecord
	doc.Find(s.layout.Card).EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= s.layout.MaxCards {
			return false
		}

		record, err := s.extractCard(card)
		if err != nil {
			s.logger.Debug("skipping card", zap.Int("index", i), zap.Error(err))
			return true
		}
		if record == nil {
			s.logger.Debug("dropping card without title", zap.Int("index", i))
			return true
		}

		records = append(records, record)
		return true
	})

	return records, nil
}

func (s *Scraper) extractCard(card *goquery.Selection) (record *posting.RawRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extracting card: %v", r)
		}
	}()

	values := map[string]any{"source": s.layout.Name}
	for _, field := range s.layout.Fields {
		if _, done := values[field.Role]; done {
			continue
		}
		if value, ok := s.extractField(card, field); ok {
			values[field.Role] = value
		}
	}

	var raw posting.RawRecord
	if err := mapstructure.Decode(values, &raw); err != nil {
		return nil, fmt.Errorf("decoding card: %w", err)
	}

	if strings.TrimSpace(raw.Title) == "" {
		return nil, nil
	}

	return &raw, nil
}

func (s *Scraper) extractField(card *goquery.Selection, field Field) (any, bool) {
	for _, selector := range field.Selectors {
		found := card
		if selector != "" {
			found = card.Find(selector)
		}
		if found.Length() == 0 {
			continue
		}

		if field.List {
			var items []string
			found.Each(func(_ int, item *goquery.Selection) {
				if text := strings.TrimSpace(item.Text()); text != "" {
					items = append(items, text)
				}
			})
			if len(items) > 0 {
				return items, true
			}
			continue
		}

		var value string
		if field.Attr != "" {
			value, _ = found.First().Attr(field.Attr)
			if field.Attr == "href" || field.Attr == "data-href" {
				value = s.absolute(value)
			}
		} else {
			value = found.First().Text()
		}

		if value = strings.TrimSpace(value); value != "" {
			return value, true
		}
	}

	return nil, false
}

func (s *Scraper) absolute(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || s.layout.BaseURL == "" {
		return link
	}

	base, err := url.Parse(s.layout.BaseURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// Registry indexes adapters by name.
type Registry map[string]Adapter

// NewRegistry builds every shipped adapter on top of the given browser.
func NewRegistry(b browser.Browser, policy browser.LoadPolicy, log *zap.Logger) Registry {
	registry := Registry{}
	for _, layout := range []Layout{Internshala(), LinkedIn(), Naukri()} {
		registry.Register(NewScraper(layout, b, policy, log))
	}
	return registry
}

func (r Registry) Register(adapter Adapter) {
	r[strings.ToLower(adapter.Name())] = adapter
}

func (r Registry) Get(name string) (Adapter, bool) {
	adapter, ok := r[strings.ToLower(strings.TrimSpace(name))]
	return adapter, ok
}

// Names returns the registered adapter names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var reSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(reSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
