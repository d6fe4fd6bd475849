package filtering

import (
	"context"
	"strings"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
)

type companiesFilter struct {
	companies []string
}

// NewExcludedCompanies creates a filter that removes records from companies listed in the config.
func NewExcludedCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg == nil {
		return nil
	}
	for _, company := range cfg.Companies {
		if company = strings.ToLower(strings.TrimSpace(company)); company != "" {
			f.companies = append(f.companies, company)
		}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, r *posting.Records) (*posting.Records, Step, error) {
	initial := r.Len()
	if len(f.companies) == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	dropped := r.Keep(func(record *posting.RawRecord) bool {
		company := strings.ToLower(strings.TrimSpace(record.Company))
		for _, excluded := range f.companies {
			if company == excluded {
				return false
			}
		}
		return true
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding records by companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("titles", posting.Titles(dropped)),
			zap.Int("records_left", r.Len()),
		)
	}

	return r, stepOf(initial, dropped, r), nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
