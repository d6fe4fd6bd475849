package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
)

// Excluded lists postings a user never wants to see again.
type Excluded struct {
	Items []*ExcludedPosting `json:"items"`
}

type ExcludedPosting struct {
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	Link       string    `json:"link,omitempty"`
	ExcludedAt time.Time `json:"excludedAt"`
}

// LoadExcluded reads an exclude file. A missing or empty file yields an empty list.
func LoadExcluded(path string) (*Excluded, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Excluded{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &Excluded{}, nil
	}

	var excluded Excluded
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds postings to the list.
func (e *Excluded) Append(postings ...*posting.Posting) {
	now := time.Now().UTC()
	for _, p := range postings {
		item := &ExcludedPosting{Title: p.Title, Company: p.Company, ExcludedAt: now}
		if p.Link != nil {
			item.Link = *p.Link
		}
		e.Items = append(e.Items, item)
	}
}

func (e *Excluded) ToFile(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (e *Excluded) index() (fingerprints, links map[string]struct{}) {
	fingerprints = make(map[string]struct{}, len(e.Items))
	links = make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		fingerprints[posting.Fingerprint(item.Title, item.Company)] = struct{}{}
		if link := strings.TrimSpace(item.Link); link != "" {
			links[link] = struct{}{}
		}
	}
	return fingerprints, links
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes records listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, r *posting.Records) (*posting.Records, Step, error) {
	initial := r.Len()
	if f.path == "" {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	excluded, err := LoadExcluded(f.path)
	if err != nil {
		return r, Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	fingerprints, links := excluded.index()
	dropped := r.Keep(func(record *posting.RawRecord) bool {
		if _, ok := links[strings.TrimSpace(record.Link)]; ok {
			return false
		}
		_, ok := fingerprints[posting.Fingerprint(record.Title, record.Company)]
		return !ok
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding records based on exclude file",
			zap.String("path", f.path),
			zap.Strings("titles", posting.Titles(dropped)),
			zap.Int("records_left", r.Len()),
		)
	}

	return r, stepOf(initial, dropped, r), nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
