package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
)

type redFlagsFilter struct {
	flags []string
}

// NewRedFlags creates a filter that removes records mentioning a configured red flag term
// anywhere in title, company or description.
func NewRedFlags() Filter {
	return &redFlagsFilter{}
}

func (f *redFlagsFilter) Name() string { return "red_flags" }

func (f *redFlagsFilter) Disable(string) {}

func (f *redFlagsFilter) IsEnabled() bool { return true }

func (f *redFlagsFilter) Validate(cfg *Config) error {
	f.flags = nil
	if cfg == nil {
		return nil
	}
	for _, flag := range cfg.RedFlags {
		if flag = strings.ToLower(strings.TrimSpace(flag)); flag != "" {
			f.flags = append(f.flags, flag)
		}
	}
	return nil
}

func (f *redFlagsFilter) Apply(_ context.Context, deps Deps, r *posting.Records) (*posting.Records, Step, error) {
	initial := r.Len()
	if len(f.flags) == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	dropped := r.Keep(func(record *posting.RawRecord) bool {
		return !containsRedFlag(record, f.flags)
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding records with red flags",
			zap.Strings("titles", posting.Titles(dropped)),
			zap.Int("records_left", r.Len()),
		)
	}

	return r, stepOf(initial, dropped, r), nil
}

func (f *redFlagsFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"flags": strconv.Itoa(len(f.flags))},
	}
}

func containsRedFlag(record *posting.RawRecord, flags []string) bool {
	combined := strings.ToLower(record.Title + " " + record.Company + " " + record.Description)
	for _, flag := range flags {
		if strings.Contains(combined, flag) {
			return true
		}
	}
	return false
}
