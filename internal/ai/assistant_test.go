package ai

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubExtractor struct {
	skills []string
	err    error
	calls  int
}

func (s *stubExtractor) ExtractSkills(context.Context, string) ([]string, error) {
	s.calls++
	return s.skills, s.err
}

func TestEnrichQueryMergesSkills(t *testing.T) {
	t.Parallel()

	query := &posting.CandidateQuery{Skills: []string{"Python"}}
	stub := &stubExtractor{skills: []string{"python", "Docker", " ", "SQL", "docker"}}

	added := EnrichQuery(context.Background(), stub, zap.NewNop(), query, "resume text")
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	if want := []string{"Python", "Docker", "SQL"}; !reflect.DeepEqual(query.Skills, want) {
		t.Fatalf("skills = %v, want %v", query.Skills, want)
	}
}

func TestEnrichQueryIgnoresFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	query := &posting.CandidateQuery{Skills: []string{"Go"}}
	stub := &stubExtractor{err: errors.New("quota exceeded")}

	if added := EnrichQuery(context.Background(), stub, zap.New(core), query, "resume"); added != 0 {
		t.Fatalf("added = %d", added)
	}
	if !reflect.DeepEqual(query.Skills, []string{"Go"}) {
		t.Fatalf("skills changed: %v", query.Skills)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

func TestEnrichQuerySkipsWithoutInput(t *testing.T) {
	t.Parallel()

	stub := &stubExtractor{skills: []string{"Go"}}
	query := &posting.CandidateQuery{}

	EnrichQuery(context.Background(), stub, nil, query, "   ")
	EnrichQuery(context.Background(), nil, nil, query, "resume")

	if stub.calls != 0 {
		t.Fatalf("extractor called %d times", stub.calls)
	}
	if len(query.Skills) != 0 {
		t.Fatalf("skills = %v", query.Skills)
	}
}
