package matching

import (
	"fmt"
	"strings"

	"github.com/spigell/intern-radar/internal/posting"
)

const maxJustifiedSkills = 3

// Justify explains a score in one line. Skills are taken from the posting's
// requirements only; a preferred domain matches when the posting's domain contains it.
func Justify(query posting.CandidateQuery, p *posting.Posting, score float64) string {
	var parts []string

	required := make(map[string]struct{}, len(p.Requirements))
	for _, s := range p.Requirements {
		required[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	var matched []string
	seen := make(map[string]struct{})
	for _, s := range query.Skills {
		lower := strings.ToLower(strings.TrimSpace(s))
		if _, ok := required[lower]; !ok {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		matched = append(matched, lower)
		if len(matched) == maxJustifiedSkills {
			break
		}
	}
	if len(matched) > 0 {
		parts = append(parts, "Matching skills: "+strings.Join(matched, ", "))
	}

	domain := strings.ToLower(p.Domain)
	for _, d := range query.Domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" && strings.Contains(domain, d) {
			parts = append(parts, fmt.Sprintf("Matches preferred domain: %s", p.Domain))
			break
		}
	}

	if query.ExperienceLevel != "" && strings.EqualFold(strings.TrimSpace(query.ExperienceLevel), p.ExperienceLevel) {
		parts = append(parts, "Experience level match")
	}

	parts = append(parts, band(score))
	return strings.Join(parts, "; ")
}

func band(score float64) string {
	switch {
	case score > 0.3:
		return "High compatibility"
	case score > 0.2:
		return "Good compatibility"
	default:
		return "Potential growth opportunity"
	}
}
