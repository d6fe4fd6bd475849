// Package posting holds the data model shared by the scraping, storage and matching layers.
package posting

import (
	"strings"
	"time"
)

const (
	// DateLayout is used for application deadlines.
	DateLayout = "2006-01-02"
	// TimestampLayout is used for the capture timestamp.
	TimestampLayout = "2006-01-02 15:04:05"

	// NotAvailable is the sentinel produced by cleaning an empty value.
	NotAvailable = "N/A"
	// DefaultDomain is assigned when no domain keyword matches.
	DefaultDomain = "General"
	// DefaultExperienceLevel is assigned when the source does not state one.
	DefaultExperienceLevel = "Entry Level"

	// MaxListItems caps every list field of a posting.
	MaxListItems = 6
	// MaxDescriptionLength caps the description in runes.
	MaxDescriptionLength = 500
	// DefaultDeadlineWindow is added to the capture time when the source has no deadline.
	DefaultDeadlineWindow = 30 * 24 * time.Hour
)

// Posting is a validated internship listing as stored in the collection.
type Posting struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Company             string   `json:"company"`
	Location            string   `json:"location"`
	Domain              string   `json:"domain"`
	Duration            string   `json:"duration"`
	Stipend             string   `json:"stipend"`
	Requirements        []string `json:"requirements"`
	PreferredSkills     []string `json:"preferredSkills"`
	Description         string   `json:"description"`
	Responsibilities    []string `json:"responsibilities"`
	Qualifications      []string `json:"qualifications"`
	ExperienceLevel     string   `json:"experienceLevel"`
	Tags                []string `json:"tags"`
	Link                *string  `json:"link"`
	Source              string   `json:"source"`
	ScrapedAt           string   `json:"scrapedAt"`
	ApplicationDeadline string   `json:"applicationDeadline"`
}

// Fingerprint returns the (title, company) uniqueness key.
func (p *Posting) Fingerprint() string {
	return Fingerprint(p.Title, p.Company)
}

// Fingerprint builds the case-insensitive uniqueness key for a title and company.
func Fingerprint(title, company string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(company))
}

// Deadline parses the application deadline. ok is false when it is absent or unparsable.
func (p *Posting) Deadline() (time.Time, bool) {
	raw := strings.TrimSpace(p.ApplicationDeadline)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CapturedAt parses the capture timestamp.
func (p *Posting) CapturedAt() (time.Time, bool) {
	raw := strings.TrimSpace(p.ScrapedAt)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ExpiredBefore reports whether the deadline is strictly before the given day.
// Postings with a missing or unparsable deadline never expire.
func (p *Posting) ExpiredBefore(day time.Time) bool {
	deadline, ok := p.Deadline()
	if !ok {
		return false
	}
	return deadline.Before(StartOfDay(day))
}

// SearchableText concatenates every field the matching engine indexes.
func (p *Posting) SearchableText() string {
	parts := []string{p.Title, p.Company, p.Domain, p.Description}
	parts = append(parts, p.Requirements...)
	parts = append(parts, p.PreferredSkills...)
	parts = append(parts, p.Responsibilities...)
	parts = append(parts, p.Tags...)
	parts = append(parts, p.ExperienceLevel)

	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == NotAvailable {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, " ")
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Collection is the persisted document.
type Collection struct {
	Internships []*Posting `json:"internships"`
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Internships)
}
