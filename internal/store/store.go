// Package store persists the postings collection as a single JSON document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/spigell/intern-radar/internal/normalize"
	"github.com/spigell/intern-radar/internal/posting"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	Path           string        `mapstructure:"path"`
	LockTTL        time.Duration `mapstructure:"lock-ttl"`
	LockRetries    int           `mapstructure:"lock-retries"`
	LockRetryDelay time.Duration `mapstructure:"lock-retry-delay"`
}

func DefaultOptions() Options {
	return Options{
		Path:           filepath.Join("data", "internships.json"),
		LockTTL:        2 * time.Minute,
		LockRetries:    20,
		LockRetryDelay: 250 * time.Millisecond,
	}
}

// Store is the single mutation point of the collection.
type Store struct {
	opts   Options
	logger *zap.Logger

	mu sync.Mutex

	now    func() time.Time
	rename func(oldpath, newpath string) error
}

// SaveResult counts what happened to a batch passed to Save.
type SaveResult struct {
	Added      int `json:"added"`
	Total      int `json:"total"`
	Expired    int `json:"expired"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

func New(opts Options, logger *zap.Logger) *Store {
	defaults := DefaultOptions()
	if opts.Path == "" {
		opts.Path = defaults.Path
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaults.LockTTL
	}
	if opts.LockRetryDelay <= 0 {
		opts.LockRetryDelay = defaults.LockRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		opts:   opts,
		logger: logger.With(zap.String("store", opts.Path)),
		now:    time.Now,
		rename: os.Rename,
	}
}

// Open makes sure the directory holding the collection exists.
func (s *Store) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.opts.Path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	return nil
}

// Close releases nothing today; it exists so callers manage the store like any other handle.
func (s *Store) Close() error {
	return nil
}

func (s *Store) Path() string {
	return s.opts.Path
}

// Load reads the collection. A missing or corrupt file yields an empty collection.
func (s *Store) Load(_ context.Context) *posting.Collection {
	return s.read()
}

// Save merges postings into the collection, dropping expired entries, invalid and duplicate postings.
// The caller's postings are not modified.
func (s *Store) Save(ctx context.Context, postings []*posting.Posting) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.lock(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	defer release()

	now := s.now()
	active, expired := partition(s.read().Internships, func(p *posting.Posting) bool {
		return p.ExpiredBefore(now)
	})

	ids := make(map[string]struct{}, len(active))
	fingerprints := make(map[string]struct{}, len(active))
	for _, p := range active {
		ids[p.ID] = struct{}{}
		fingerprints[p.Fingerprint()] = struct{}{}
	}

	result := SaveResult{Expired: len(expired)}
	for _, incoming := range postings {
		if incoming == nil {
			result.Rejected++
			continue
		}

		p := *incoming
		if !normalize.Validate(&p) {
			result.Rejected++
			continue
		}

		fingerprint := p.Fingerprint()
		if _, dup := fingerprints[fingerprint]; dup {
			result.Duplicates++
			continue
		}
		if _, dup := ids[p.ID]; dup && p.ID != "" {
			result.Duplicates++
			continue
		}

		if p.ID == "" {
			p.ID = uniqueID(&p, ids)
		}
		if strings.TrimSpace(p.ApplicationDeadline) == "" {
			p.ApplicationDeadline = normalize.DefaultDeadline(now)
		}
		if strings.TrimSpace(p.ScrapedAt) == "" {
			p.ScrapedAt = now.Format(posting.TimestampLayout)
		}

		ids[p.ID] = struct{}{}
		fingerprints[fingerprint] = struct{}{}
		active = append(active, &p)
		result.Added++
	}

	if err := s.write(ctx, active); err != nil {
		return SaveResult{Rejected: result.Rejected, Duplicates: result.Duplicates}, err
	}

	result.Total = len(active)
	s.logger.Info("collection saved",
		zap.Int("added", result.Added),
		zap.Int("total", result.Total),
		zap.Int("expired", result.Expired),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("rejected", result.Rejected),
	)

	return result, nil
}

func (s *Store) read() *posting.Collection {
	empty := &posting.Collection{Internships: []*posting.Posting{}}

	data, err := os.ReadFile(s.opts.Path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("collection file does not exist yet")
		return empty
	}
	if err != nil {
		s.logger.Warn("reading collection failed, starting empty", zap.Error(err))
		return empty
	}

	var collection posting.Collection
	if err := json.Unmarshal(data, &collection); err != nil {
		s.logger.Warn("collection is corrupt, starting empty", zap.Error(err))
		return empty
	}

	kept := make([]*posting.Posting, 0, len(collection.Internships))
	for _, p := range collection.Internships {
		if p != nil {
			kept = append(kept, p)
		}
	}
	collection.Internships = kept

	return &collection
}

// write replaces the collection through a temporary file in the same directory.
func (s *Store) write(ctx context.Context, postings []*posting.Posting) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if postings == nil {
		postings = []*posting.Posting{}
	}

	dir, base := filepath.Split(s.opts.Path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary collection file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&posting.Collection{Internships: postings}); err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing collection: %w", err)
	}
	if err := s.rename(tmp.Name(), s.opts.Path); err != nil {
		return fmt.Errorf("replacing collection: %w", err)
	}
	return nil
}

func partition(postings []*posting.Posting, expired func(*posting.Posting) bool) (kept, dropped []*posting.Posting) {
	kept = make([]*posting.Posting, 0, len(postings))
	for _, p := range postings {
		if expired(p) {
			dropped = append(dropped, p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}

var reIDSlug = regexp.MustCompile(`[^a-z0-9]+`)

func idSlug(s string, limit int) string {
	slug := strings.Trim(reIDSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > limit {
		slug = strings.TrimRight(slug[:limit], "-")
	}
	return slug
}

// NewID builds "<source>-<title>-<company>-<8 hex>".
func NewID(p *posting.Posting) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	parts := []string{idSlug(p.Source, 20), idSlug(p.Title, 40), idSlug(p.Company, 30), suffix}

	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "-")
}

func uniqueID(p *posting.Posting, taken map[string]struct{}) string {
	for {
		id := NewID(p)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}
