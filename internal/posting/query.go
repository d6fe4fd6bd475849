package posting

import (
	"strings"
	"time"
)

// CandidateQuery describes a candidate profile for one matching request.
type CandidateQuery struct {
	Skills          []string `json:"skills"`
	Domains         []string `json:"domains"`
	ExperienceLevel string   `json:"experience_level"`
	Projects        string   `json:"projects,omitempty"`
	Certifications  string   `json:"certifications,omitempty"`
}

// Text flattens the profile into the free text that gets vectorized.
func (q CandidateQuery) Text() string {
	parts := make([]string, 0, len(q.Skills)+len(q.Domains)+3)
	parts = append(parts, q.Skills...)
	parts = append(parts, q.Domains...)
	parts = append(parts, q.ExperienceLevel, q.Projects, q.Certifications)

	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

// MatchResult is a posting annotated with its similarity score.
type MatchResult struct {
	Posting
	Score         float64 `json:"score"`
	Justification string  `json:"justification,omitempty"`
}

// Freshness tags.
const (
	FreshnessFresh   = "fresh"
	FreshnessRecent  = "recent"
	FreshnessOlder   = "older"
	FreshnessUnknown = "unknown"
)

// Freshness derives the recency tag of a posting from its capture timestamp.
func Freshness(p *Posting, now time.Time) string {
	captured, ok := p.CapturedAt()
	if !ok {
		return FreshnessUnknown
	}

	age := now.Sub(captured)
	switch {
	case age < 24*time.Hour:
		return FreshnessFresh
	case age < 72*time.Hour:
		return FreshnessRecent
	default:
		return FreshnessOlder
	}
}
