package filtering

import (
	"context"

	"github.com/spigell/intern-radar/internal/normalize"
	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
)

type relevanceFilter struct {
	disabled bool
	reason   string
}

// NewRelevance creates a filter that removes records whose title carries no internship keyword.
func NewRelevance() Filter {
	return &relevanceFilter{}
}

func (f *relevanceFilter) Name() string { return "relevance" }

func (f *relevanceFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *relevanceFilter) IsEnabled() bool { return !f.disabled }

func (f *relevanceFilter) Validate(*Config) error { return nil }

func (f *relevanceFilter) Apply(_ context.Context, deps Deps, r *posting.Records) (*posting.Records, Step, error) {
	initial := r.Len()
	dropped := r.Keep(func(record *posting.RawRecord) bool {
		return normalize.IsRelevant(record.Title)
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding records without internship keywords",
			zap.Strings("titles", posting.Titles(dropped)),
			zap.Int("records_left", r.Len()),
		)
	}

	return r, stepOf(initial, dropped, r), nil
}

func (f *relevanceFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
