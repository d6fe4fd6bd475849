package filtering

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func records(items ...*posting.RawRecord) *posting.Records {
	return &posting.Records{Items: items}
}

func raw(title, company, description string) *posting.RawRecord {
	return &posting.RawRecord{Title: title, Company: company, Description: description, Source: "X"}
}

func TestRunDefaultPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	excludePath := filepath.Join(dir, "exclude.json")
	link := "https://example.com/jobs/7"
	excluded := &Excluded{}
	excluded.Append(&posting.Posting{Title: "Hidden Intern", Company: "Zeta", Link: &link})
	if err := excluded.ToFile(excludePath); err != nil {
		t.Fatalf("writing exclude file: %v", err)
	}

	input := records(
		raw("Backend Intern", "Acme", "Go and SQL"),
		raw("Senior Architect", "Acme", ""),
		raw("Data Intern", "SpamCorp", ""),
		raw("Sales Trainee", "Beta", "Unpaid, pay a registration fee first"),
		raw("hidden intern", "ZETA", ""),
		&posting.RawRecord{Title: "Web Intern", Company: "Other", Link: link, Source: "X"},
	)

	cfg := &Config{
		Companies:   []string{" spamcorp "},
		RedFlags:    []string{"Registration Fee"},
		ExcludeFile: excludePath,
	}

	core, observed := observer.New(zapcore.InfoLevel)
	out, reports, err := Run(context.Background(), cfg, Deps{Logger: zap.New(core)}, Default(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Len() != 1 || out.Items[0].Title != "Backend Intern" {
		t.Fatalf("unexpected records left: %v", posting.Titles(out.Items))
	}

	want := []Report{
		{Name: "relevance", Step: Step{Initial: 6, Dropped: 1, Left: 5}},
		{Name: "companies", Step: Step{Initial: 5, Dropped: 1, Left: 4}},
		{Name: "red_flags", Step: Step{Initial: 4, Dropped: 1, Left: 3}},
		{Name: "exclude_file", Step: Step{Initial: 3, Dropped: 2, Left: 1}},
	}
	if len(reports) != len(want) {
		t.Fatalf("expected %d reports, got %d", len(want), len(reports))
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Fatalf("report %d: expected %+v, got %+v", i, want[i], reports[i])
		}
	}

	if got := observed.FilterMessage("filter step").Len(); got != 4 {
		t.Fatalf("expected 4 filter step logs, got %d", got)
	}
}

func TestRunSkipsDisabled(t *testing.T) {
	t.Parallel()

	steps := Default()
	DisableByName(steps, "relevance", "keep everything")

	out, reports, err := Run(context.Background(), &Config{}, Deps{}, steps, records(raw("Senior Architect", "Acme", "")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("expected record to survive, got %d", out.Len())
	}
	for _, report := range reports {
		if report.Name == "relevance" {
			t.Fatal("disabled step must not report")
		}
	}

	statuses := Describe(steps)
	if statuses[0].Name != "relevance" || statuses[0].Enabled || statuses[0].Reason != "keep everything" {
		t.Fatalf("unexpected status: %+v", statuses[0])
	}
}

func TestExcludeFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Run(context.Background(), &Config{ExcludeFile: broken}, Deps{}, []Filter{NewExcludeFile()}, records(raw("Intern", "Acme", "")))
	if err == nil {
		t.Fatal("expected broken exclude file to fail the run")
	}

	missing, err := LoadExcluded(filepath.Join(dir, "missing.json"))
	if err != nil || len(missing.Items) != 0 {
		t.Fatalf("expected empty list for missing file, got %v, %v", missing, err)
	}
}
