package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spigell/intern-radar/internal/posting"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := New(Options{
		Path:           filepath.Join(t.TempDir(), "data", "internships.json"),
		LockRetries:    2,
		LockRetryDelay: time.Millisecond,
	}, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	require.NoError(t, s.Open())
	return s
}

func valid(title, company string) *posting.Posting {
	return &posting.Posting{
		Title:               title,
		Company:             company,
		Source:              "Internshala",
		Domain:              "Software Engineering",
		ApplicationDeadline: "2025-04-01",
	}
}

func writeCollection(t *testing.T, s *Store, postings ...*posting.Posting) {
	t.Helper()
	data, err := json.Marshal(&posting.Collection{Internships: postings})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data, 0o644))
}

func TestSaveIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	batch := []*posting.Posting{valid("Backend Intern", "Acme"), valid("Data Intern", "Beta")}

	first, err := s.Save(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, first.Added)
	require.Equal(t, 2, first.Total)

	second, err := s.Save(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 0, second.Added)
	require.Equal(t, 2, second.Duplicates)
	require.Equal(t, 2, s.Load(ctx).Len())

	for _, p := range batch {
		require.Empty(t, p.ID, "caller postings must not be mutated")
	}
}

func TestSaveDedupsByFingerprint(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	a := valid("Backend Intern", "Acme")
	a.ID = "one"
	b := valid("BACKEND INTERN", "acme")
	b.ID = "two"

	result, err := s.Save(ctx, []*posting.Posting{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)
	require.Equal(t, 1, result.Duplicates)

	stored := s.Load(ctx).Internships
	require.Len(t, stored, 1)
	require.Equal(t, "one", stored[0].ID)
}

func TestSaveDedupsByID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	existing := valid("Backend Intern", "Acme")
	existing.ID = "same"
	writeCollection(t, s, existing)

	other := valid("Frontend Intern", "Beta")
	other.ID = "same"

	result, err := s.Save(context.Background(), []*posting.Posting{other})
	require.NoError(t, err)
	require.Equal(t, 0, result.Added)
	require.Equal(t, 1, result.Duplicates)
}

func TestSaveAssignsDefaults(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	p := valid("Design Intern", "Gamma Studio")
	p.ApplicationDeadline = ""

	_, err := s.Save(context.Background(), []*posting.Posting{p})
	require.NoError(t, err)

	stored := s.Load(context.Background()).Internships
	require.Len(t, stored, 1)
	require.Regexp(t, `^internshala-design-intern-gamma-studio-[0-9a-f]{8}$`, stored[0].ID)
	require.Equal(t, "2025-04-09", stored[0].ApplicationDeadline)
	require.Equal(t, "2025-03-10 12:00:00", stored[0].ScrapedAt)
}

func TestSaveDropsExpired(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	yesterday := valid("Old Intern", "Acme")
	yesterday.ID = "old"
	yesterday.ApplicationDeadline = "2025-03-09"

	today := valid("Today Intern", "Acme")
	today.ID = "today"
	today.ApplicationDeadline = "2025-03-10"

	missing := valid("Open Intern", "Acme")
	missing.ID = "missing"
	missing.ApplicationDeadline = ""

	garbage := valid("Odd Intern", "Acme")
	garbage.ID = "garbage"
	garbage.ApplicationDeadline = "someday"

	writeCollection(t, s, yesterday, today, missing, garbage)

	result, err := s.Save(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Expired)
	require.Equal(t, 3, result.Total)

	ids := []string{}
	for _, p := range s.Load(context.Background()).Internships {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"today", "missing", "garbage"}, ids)
}

func TestSaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	noCompany := valid("Backend Intern", "")

	result, err := s.Save(context.Background(), []*posting.Posting{noCompany, nil})
	require.NoError(t, err)
	require.Equal(t, 0, result.Added)
	require.Equal(t, 2, result.Rejected)
}

func TestSaveWriteFailureKeepsPreviousFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, []*posting.Posting{valid("Backend Intern", "Acme")})
	require.NoError(t, err)
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	s.rename = func(string, string) error { return errors.New("disk full") }

	result, err := s.Save(ctx, []*posting.Posting{valid("Data Intern", "Beta")})
	require.Error(t, err)
	require.Equal(t, 0, result.Added)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.Equal(t, before, after)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary and lock files must be cleaned up")
}

func TestLoadCorruptIsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"internships": [`), 0o644))

	require.Equal(t, 0, s.Load(context.Background()).Len())

	result, err := s.Save(context.Background(), []*posting.Posting{valid("Backend Intern", "Acme")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
}

func TestLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.Equal(t, 0, s.Load(context.Background()).Len())
}

func TestSaveLocked(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.lockPath(), []byte("{}"), 0o644))

	_, err := s.Save(context.Background(), []*posting.Posting{valid("Backend Intern", "Acme")})
	require.ErrorIs(t, err, ErrLocked)
}

func TestSaveTakesOverStaleLock(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.lockPath(), []byte("{}"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(s.lockPath(), old, old))

	result, err := s.Save(context.Background(), []*posting.Posting{valid("Backend Intern", "Acme")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	_, err = os.Stat(s.lockPath())
	require.True(t, os.IsNotExist(err), "lock must be released after save")
}

func TestReleaseKeepsTakenOverLock(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	release, err := s.lock(context.Background())
	require.NoError(t, err)

	// another writer considered the lock stale and replaced it
	other := []byte(`{"pid":1,"time":1,"owner":"someone-else"}`)
	require.NoError(t, os.WriteFile(s.lockPath(), other, 0o644))

	release()

	data, err := os.ReadFile(s.lockPath())
	require.NoError(t, err)
	require.Equal(t, other, data)
}

func TestSaveDefaultsDomainAndExperience(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	p := valid("Software Intern", "Acme")
	p.Domain = ""
	p.ExperienceLevel = "  "

	result, err := s.Save(ctx, []*posting.Posting{p})
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)

	stored := s.Load(ctx).Internships
	require.Len(t, stored, 1)
	require.Equal(t, "Software Engineering", stored[0].Domain)
	require.Equal(t, posting.DefaultExperienceLevel, stored[0].ExperienceLevel)

	general := valid("Chef Intern", "Kitchen")
	general.Domain = ""
	_, err = s.Save(ctx, []*posting.Posting{general})
	require.NoError(t, err)
	stored = s.Load(ctx).Internships
	require.Len(t, stored, 2)
	for _, p := range stored {
		if p.Title == "Chef Intern" {
			require.Equal(t, posting.DefaultDomain, p.Domain)
		}
	}
}

func TestCleanupSweep(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	mk := func(id, source, domain, deadline string) *posting.Posting {
		p := valid(id+" Intern", "Acme")
		p.ID, p.Source, p.Domain, p.ApplicationDeadline = id, source, domain, deadline
		return p
	}
	writeCollection(t, s,
		mk("a", "internshala", "Design", "2025-03-01"),
		mk("b", "internshala", "Design", "2025-03-11"),
		mk("c", "linkedin", "Marketing", "2025-03-20"),
		mk("d", "naukri", "Marketing", ""),
	)

	dry, err := s.Cleanup(ctx, CleanupOptions{DaysAhead: 3, DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, dry.Expired)
	require.Equal(t, 1, dry.ExpiringSoon)
	require.Equal(t, 2, dry.Remaining)
	require.Equal(t, map[string]int{"linkedin": 1, "naukri": 1}, dry.BySource)
	require.Equal(t, map[string]int{"Marketing": 2}, dry.ByDomain)
	require.Equal(t, 4, s.Load(ctx).Len(), "dry run must not write")

	report, err := s.Cleanup(ctx, CleanupOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, report.Expired)
	require.Equal(t, 0, report.ExpiringSoon)
	require.Equal(t, 1, report.Removed)
	require.Equal(t, 3, report.Remaining)
	require.Equal(t, 3, s.Load(ctx).Len())
}

func TestLastRefresh(t *testing.T) {
	t.Parallel()

	c := &posting.Collection{Internships: []*posting.Posting{
		{ScrapedAt: "2025-03-01 10:00:00"},
		{ScrapedAt: "bad"},
		{ScrapedAt: "2025-03-02 09:00:00"},
	}}

	latest, ok := LastRefresh(c)
	require.True(t, ok)
	require.Equal(t, "2025-03-02 09:00:00", latest.Format(posting.TimestampLayout))

	_, ok = LastRefresh(&posting.Collection{})
	require.False(t, ok)
}
