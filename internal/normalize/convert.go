package normalize

import (
	"strings"
	"time"

	"github.com/spigell/intern-radar/internal/posting"
)

// deadlineLayouts are tried in order when a source states a deadline.
var deadlineLayouts = []string{
	posting.DateLayout,
	"2 Jan 2006",
	"2 Jan' 06",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"02/01/2006",
	time.RFC3339,
}

var remoteMarkers = []string{"remote", "work from home", "wfh"}

// ToPosting converts a raw record into an unvalidated posting.
// The identifier is left empty; the store assigns it on save.
func ToPosting(raw *posting.RawRecord, now time.Time) *posting.Posting {
	title := Clean(raw.Title)
	description := Truncate(Clean(raw.Description), posting.MaxDescriptionLength)
	domain := ClassifyDomain(title)

	required, preferred := splitSkills(raw.Skills, title, description)

	experience := Clean(raw.Experience)
	if experience == posting.NotAvailable {
		experience = posting.DefaultExperienceLevel
	}

	location := Clean(raw.Location)

	p := &posting.Posting{
		Title:               title,
		Company:             Clean(raw.Company),
		Location:            location,
		Domain:              domain,
		Duration:            Clean(raw.Duration),
		Stipend:             Clean(raw.Stipend),
		Requirements:        required,
		PreferredSkills:     preferred,
		Description:         description,
		Responsibilities:    CleanList(raw.Responsibilities),
		Qualifications:      CleanList(raw.Qualifications),
		ExperienceLevel:     experience,
		Tags:                buildTags(domain, raw.Source, location),
		Source:              Clean(raw.Source),
		ScrapedAt:           now.Format(posting.TimestampLayout),
		ApplicationDeadline: ParseDeadline(raw.Deadline, now),
	}

	if link := strings.TrimSpace(raw.Link); link != "" && IsValidLink(link) {
		p.Link = &link
	}

	return p
}

// ParseDeadline normalizes a source deadline to posting.DateLayout,
// defaulting to now + posting.DefaultDeadlineWindow.
func ParseDeadline(raw string, now time.Time) string {
	raw = Clean(raw)
	if raw != posting.NotAvailable {
		for _, layout := range deadlineLayouts {
			if t, err := time.ParseInLocation(layout, raw, now.Location()); err == nil {
				return t.Format(posting.DateLayout)
			}
		}
	}
	return DefaultDeadline(now)
}

// DefaultDeadline is the deadline assigned when a source omits one.
func DefaultDeadline(now time.Time) string {
	return now.Add(posting.DefaultDeadlineWindow).Format(posting.DateLayout)
}

// splitSkills builds required skills from the adapter's skill chips and the title,
// falling back to the description, and uses the remaining description hits as preferred.
func splitSkills(chips []string, title, description string) (required, preferred []string) {
	candidates := make([]string, 0, len(chips))
	for _, chip := range chips {
		candidates = append(candidates, CanonicalSkill(chip))
	}
	candidates = append(candidates, ExtractSkills(title)...)

	fromDescription := ExtractSkills(description)
	if len(candidates) == 0 {
		candidates = fromDescription
	}
	required = CleanList(candidates)

	taken := make(map[string]struct{}, len(required))
	for _, s := range required {
		taken[strings.ToLower(s)] = struct{}{}
	}

	rest := make([]string, 0, len(fromDescription))
	for _, s := range fromDescription {
		if _, ok := taken[strings.ToLower(s)]; !ok {
			rest = append(rest, s)
		}
	}
	return required, CleanList(rest)
}

func buildTags(domain, source, location string) []string {
	tags := []string{domain, "Internship"}
	if source = strings.TrimSpace(source); source != "" {
		tags = append(tags, source)
	}
	lower := strings.ToLower(location)
	for _, marker := range remoteMarkers {
		if strings.Contains(lower, marker) {
			tags = append(tags, "Remote")
			break
		}
	}
	return CleanList(tags)
}
