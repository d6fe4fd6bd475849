package store

import (
	"context"
	"time"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
)

type CleanupOptions struct {
	// DaysAhead also removes postings whose deadline falls within that many days from today.
	DaysAhead int
	DryRun    bool
}

type CleanupReport struct {
	Expired      int            `json:"expired"`
	ExpiringSoon int            `json:"expiringSoon"`
	Removed      int            `json:"removed"`
	Remaining    int            `json:"remaining"`
	BySource     map[string]int `json:"bySource"`
	ByDomain     map[string]int `json:"byDomain"`
	DryRun       bool           `json:"dryRun"`
}

// Cleanup sweeps expired postings with the same rule Save uses.
func (s *Store) Cleanup(ctx context.Context, opts CleanupOptions) (CleanupReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.DryRun {
		release, err := s.lock(ctx)
		if err != nil {
			return CleanupReport{}, err
		}
		defer release()
	}

	now := s.now()
	horizon := posting.StartOfDay(now).AddDate(0, 0, max(opts.DaysAhead, 0))

	report := CleanupReport{
		BySource: map[string]int{},
		ByDomain: map[string]int{},
		DryRun:   opts.DryRun,
	}

	kept, _ := partition(s.read().Internships, func(p *posting.Posting) bool {
		if p.ExpiredBefore(now) {
			report.Expired++
			return true
		}
		if opts.DaysAhead > 0 && p.ExpiredBefore(horizon) {
			report.ExpiringSoon++
			return true
		}
		return false
	})

	for _, p := range kept {
		report.BySource[p.Source]++
		report.ByDomain[p.Domain]++
	}
	report.Removed = report.Expired + report.ExpiringSoon
	report.Remaining = len(kept)

	if !opts.DryRun && report.Removed > 0 {
		if err := s.write(ctx, kept); err != nil {
			return CleanupReport{}, err
		}
	}

	s.logger.Info("cleanup finished",
		zap.Int("expired", report.Expired),
		zap.Int("expiring_soon", report.ExpiringSoon),
		zap.Int("remaining", report.Remaining),
		zap.Bool("dry_run", opts.DryRun),
		zap.Time("horizon", horizon),
	)

	return report, nil
}

// LastRefresh returns the newest capture timestamp in the collection.
func LastRefresh(c *posting.Collection) (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, p := range c.Internships {
		captured, ok := p.CapturedAt()
		if !ok {
			continue
		}
		if !found || captured.After(latest) {
			latest, found = captured, true
		}
	}
	return latest, found
}
