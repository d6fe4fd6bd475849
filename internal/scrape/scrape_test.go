package scrape

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spigell/intern-radar/internal/filtering"
	"github.com/spigell/intern-radar/internal/posting"
	"github.com/spigell/intern-radar/internal/sources"
	"github.com/spigell/intern-radar/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAdapter struct {
	name    string
	records []*posting.RawRecord
	err     error
	panics  bool

	mu         sync.Mutex
	gotPages   int
	gotKeyword string
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Fetch(_ context.Context, keyword, _ string, maxPages int) ([]*posting.RawRecord, error) {
	a.mu.Lock()
	a.gotPages = maxPages
	a.gotKeyword = keyword
	a.mu.Unlock()

	if a.panics {
		panic("selector exploded")
	}
	return a.records, a.err
}

func registry(adapters ...sources.Adapter) sources.Registry {
	r := sources.Registry{}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.Options{Path: filepath.Join(t.TempDir(), "internships.json")}, zap.NewNop())
	require.NoError(t, s.Open())
	return s
}

func TestRunIngestScenario(t *testing.T) {
	t.Parallel()

	x := &stubAdapter{name: "X", records: []*posting.RawRecord{
		{Title: "Python Intern", Company: "Acme", Description: "Python and SQL", Source: "X"},
		{Title: "", Company: "Ghost", Source: "X"},
		{Title: "Data Analyst Intern", Company: "Beta", Source: "X"},
	}}

	st := newStore(t)
	o := New(registry(x), st, nil, zap.NewNop())

	summary, err := o.Run(context.Background(), Request{Sources: []string{"X"}, Keyword: "python", Pages: 1})
	require.NoError(t, err)
	require.Equal(t, 3, summary.Scraped)
	require.Equal(t, 2, summary.Saved)
	require.Equal(t, []string{"x"}, summary.Sources)
	require.Equal(t, SourceSummary{Scraped: 3}, summary.PerSource["x"])
	require.False(t, summary.FinishedAt.Before(summary.StartedAt))

	stored := st.Load(context.Background()).Internships
	require.Len(t, stored, 2)
	for _, p := range stored {
		require.Equal(t, "X", p.Source)
		require.NotEmpty(t, p.ID)
	}
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	t.Parallel()

	good := &stubAdapter{name: "good", records: []*posting.RawRecord{
		{Title: "Backend Intern", Company: "Acme", Source: "good"},
	}}
	bad := &stubAdapter{name: "bad", err: errors.New("blocked by captcha")}
	crashing := &stubAdapter{name: "crashing", panics: true}

	o := New(registry(good, bad, crashing), newStore(t), nil, zap.NewNop())

	summary, err := o.Run(context.Background(), Request{Sources: []string{"good", "bad", "crashing", "missing"}})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Saved)
	require.Equal(t, []string{"bad", "crashing", "good", "missing"}, summary.Sources)
	require.Equal(t, "blocked by captcha", summary.PerSource["bad"].Error)
	require.Contains(t, summary.PerSource["crashing"].Error, "panicked")
	require.Contains(t, summary.PerSource["missing"].Error, errUnknownSource)
	require.Empty(t, summary.PerSource["good"].Error)
}

func TestRunDefaultsToAllSourcesAndCapsPages(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{name: "a"}
	b := &stubAdapter{name: "b"}
	o := New(registry(a, b), newStore(t), nil, zap.NewNop())

	summary, err := o.Run(context.Background(), Request{Pages: 50})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, summary.Sources)
	require.Equal(t, MaxPages, a.gotPages)
	require.Equal(t, MaxPages, b.gotPages)

	_, err = o.Run(context.Background(), Request{Pages: -1})
	require.NoError(t, err)
	require.Equal(t, 1, a.gotPages)
}

func TestRunDefaultsBlankKeyword(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{name: "a"}
	o := New(registry(a), newStore(t), nil, zap.NewNop())

	_, err := o.Run(context.Background(), Request{Keyword: "   "})
	require.NoError(t, err)
	require.Equal(t, DefaultKeyword, a.gotKeyword)

	require.Equal(t, "data science", o.Normalize(Request{Keyword: " data science "}).Keyword)
}

type failingSaver struct{}

func (failingSaver) Save(context.Context, []*posting.Posting) (store.SaveResult, error) {
	return store.SaveResult{}, errors.New("read-only file system")
}

func (failingSaver) Cleanup(context.Context, store.CleanupOptions) (store.CleanupReport, error) {
	return store.CleanupReport{}, errors.New("read-only file system")
}

func TestRunSaveFailure(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{name: "a", records: []*posting.RawRecord{{Title: "Backend Intern", Company: "Acme", Source: "a"}}}
	o := New(registry(a), failingSaver{}, nil, zap.NewNop())

	called := false
	o.OnSaved = func(context.Context, store.SaveResult) { called = true }

	summary, err := o.Run(context.Background(), Request{Cleanup: true})
	require.Error(t, err)
	require.NotNil(t, summary)
	require.Equal(t, 0, summary.Saved)
	require.Equal(t, "read-only file system", summary.SaveError)
	require.Nil(t, summary.Cleanup, "failed cleanup is logged, not reported")
	require.False(t, called)
}

func TestRunAppliesFiltersAndHook(t *testing.T) {
	t.Parallel()

	a := &stubAdapter{name: "a", records: []*posting.RawRecord{
		{Title: "Backend Intern", Company: "Acme", Source: "a"},
		{Title: "Frontend Intern", Company: "Blocked Inc", Source: "a"},
		{Title: "Staff Engineer", Company: "Acme", Source: "a"},
	}}

	var saved atomic.Int32
	o := New(registry(a), newStore(t), &filtering.Config{Companies: []string{"blocked inc"}}, zap.NewNop())
	o.OnSaved = func(_ context.Context, result store.SaveResult) { saved.Add(int32(result.Added)) }

	summary, err := o.Run(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Saved)
	require.Equal(t, int32(1), saved.Load())

	require.Equal(t, "relevance", summary.Filters[0].Name)
	require.Equal(t, 1, summary.Filters[0].Dropped)
	require.Equal(t, "companies", summary.Filters[1].Name)
	require.Equal(t, 1, summary.Filters[1].Dropped)
}

// concurrencySaver fails the test if two saves overlap.
type concurrencySaver struct {
	t      *testing.T
	active atomic.Int32
}

func (s *concurrencySaver) Save(context.Context, []*posting.Posting) (store.SaveResult, error) {
	if s.active.Add(1) != 1 {
		s.t.Error("concurrent save detected")
	}
	time.Sleep(10 * time.Millisecond)
	s.active.Add(-1)
	return store.SaveResult{}, nil
}

func (s *concurrencySaver) Cleanup(context.Context, store.CleanupOptions) (store.CleanupReport, error) {
	return store.CleanupReport{}, nil
}

func TestRunSerializesSaves(t *testing.T) {
	t.Parallel()

	o := New(registry(&stubAdapter{name: "a"}), &concurrencySaver{t: t}, nil, zap.NewNop())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Run(context.Background(), Request{})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}
