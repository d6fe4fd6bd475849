package normalize

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/spigell/intern-radar/internal/posting"
)

const (
	minTitleLength   = 3
	minCompanyLength = 2
)

// InternshipKeywords signal that a title describes an internship-like position.
var InternshipKeywords = []string{
	"intern",
	"internship",
	"trainee",
	"student",
	"fresher",
	"graduate program",
}

// IsRelevant reports whether the title contains an internship keyword.
func IsRelevant(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range InternshipKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Validate checks the mandatory fields of p and re-cleans it in place on success.
// A bullet surviving in title or company means cleaning failed and the posting is rejected.
// An invalid link does not reject the posting; it is cleared instead.
func Validate(p *posting.Posting) bool {
	if p == nil {
		return false
	}

	for _, required := range []string{p.Title, p.Company, p.Source} {
		if isBlank(required) {
			return false
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(p.Title)) < minTitleLength {
		return false
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.Company)) < minCompanyLength {
		return false
	}
	if hasBullet(p.Title) || hasBullet(p.Company) {
		return false
	}

	if p.Link != nil && !IsValidLink(*p.Link) {
		p.Link = nil
	}

	recleanInPlace(p)
	return true
}

// IsValidLink accepts absolute http(s) URLs with a host.
func IsValidLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == posting.NotAvailable
}

func recleanInPlace(p *posting.Posting) {
	p.Title = Clean(p.Title)
	p.Company = Clean(p.Company)
	p.Location = Clean(p.Location)
	p.Domain = Clean(p.Domain)
	if p.Domain == posting.NotAvailable {
		p.Domain = ClassifyDomain(p.Title)
	}
	p.Duration = Clean(p.Duration)
	p.Stipend = Clean(p.Stipend)
	p.Description = Truncate(Clean(p.Description), posting.MaxDescriptionLength)
	p.ExperienceLevel = Clean(p.ExperienceLevel)
	if p.ExperienceLevel == posting.NotAvailable {
		p.ExperienceLevel = posting.DefaultExperienceLevel
	}
	p.Source = Clean(p.Source)

	p.Requirements = CleanList(p.Requirements)
	p.PreferredSkills = CleanList(p.PreferredSkills)
	p.Responsibilities = CleanList(p.Responsibilities)
	p.Qualifications = CleanList(p.Qualifications)
	p.Tags = CleanList(p.Tags)

	if p.Link != nil {
		link := strings.TrimSpace(*p.Link)
		p.Link = &link
	}
}
