package matching

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
)

// Loader supplies the current collection.
type Loader interface {
	Load(ctx context.Context) *posting.Collection
}

// Engine serves queries from the latest index and rebuilds it lazily.
type Engine struct {
	loader Loader
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	current atomic.Pointer[Index]
	stale   atomic.Bool
	build   sync.Mutex
}

func NewEngine(loader Loader, opts Options, log *zap.Logger) *Engine {
	defaults := DefaultOptions()
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = defaults.MaxFeatures
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaults.RefreshInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{loader: loader, opts: opts, logger: log, now: time.Now}
}

// Invalidate marks the index stale; the next query rebuilds it.
func (e *Engine) Invalidate() {
	e.stale.Store(true)
}

// Index returns the current index, rebuilding it when stale or older than RefreshInterval.
func (e *Engine) Index(ctx context.Context) *Index {
	if idx := e.current.Load(); idx != nil && !e.expired(idx) {
		return idx
	}

	e.build.Lock()
	defer e.build.Unlock()
	// another caller may have rebuilt while we waited.
	if idx := e.current.Load(); idx != nil && !e.expired(idx) {
		return idx
	}
	return e.refresh(ctx)
}

// Refresh rebuilds the index unconditionally.
func (e *Engine) Refresh(ctx context.Context) *Index {
	e.build.Lock()
	defer e.build.Unlock()
	return e.refresh(ctx)
}

func (e *Engine) expired(idx *Index) bool {
	return e.stale.Load() || e.now().Sub(idx.builtAt) >= e.opts.RefreshInterval
}

func (e *Engine) refresh(ctx context.Context) *Index {
	e.stale.Store(false)

	collection := e.loader.Load(ctx)
	var postings []*posting.Posting
	if collection != nil {
		postings = collection.Internships
	}

	idx := BuildIndex(postings, e.opts)
	idx.builtAt = e.now()
	e.current.Store(idx)

	e.logger.Info("matching index rebuilt", zap.Int("postings", idx.Len()), zap.Int("terms", len(idx.vocab)))
	return idx
}

// Recommend ranks postings for a candidate and attaches justifications.
func (e *Engine) Recommend(ctx context.Context, query posting.CandidateQuery, topK int) []posting.MatchResult {
	results := e.Index(ctx).Match(query.Text(), topK)
	for i := range results {
		results[i].Justification = Justify(query, &results[i].Posting, results[i].Score)
	}
	return results
}

// Search returns postings scoring at least DefaultMinScore against text.
func (e *Engine) Search(ctx context.Context, text string, limit int) []posting.MatchResult {
	return e.Index(ctx).Search(text, limit, DefaultMinScore)
}
