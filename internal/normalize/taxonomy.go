package normalize

import (
	"regexp"
	"strings"

	"github.com/spigell/intern-radar/internal/posting"
)

type domainRule struct {
	domain   string
	keywords []string
}

// domainRules is ordered: more specific domains come first.
var domainRules = []domainRule{
	{domain: "Data Science", keywords: []string{"data science", "data scientist", "machine learning", "deep learning", "artificial intelligence", "ai", "ml", "data analyst", "data analytics", "analytics", "nlp", "computer vision"}},
	{domain: "Mobile Development", keywords: []string{"android", "ios", "mobile", "flutter", "react native"}},
	{domain: "Web Development", keywords: []string{"web", "frontend", "front-end", "front end", "backend", "back-end", "back end", "full stack", "full-stack", "fullstack", "react", "angular", "node", "javascript", "php", "django"}},
	{domain: "Cloud & DevOps", keywords: []string{"devops", "cloud", "aws", "azure", "sre", "site reliability", "infrastructure"}},
	{domain: "Cybersecurity", keywords: []string{"security", "cyber", "penetration", "soc analyst"}},
	{domain: "Software Engineering", keywords: []string{"software", "developer", "engineer", "engineering", "programming", "programmer", "sde", "java", "python", "golang"}},
	{domain: "Design", keywords: []string{"design", "designer", "ui", "ux", "graphic", "illustrator"}},
	{domain: "Marketing", keywords: []string{"marketing", "seo", "social media", "content", "digital marketing", "brand"}},
	{domain: "Finance", keywords: []string{"finance", "financial", "accounting", "accountant", "investment", "audit"}},
	{domain: "Human Resources", keywords: []string{"human resources", "hr", "recruiter", "recruitment", "talent acquisition"}},
	{domain: "Business", keywords: []string{"business", "sales", "operations", "consulting", "product management", "strategy"}},
}

var domainMatchers = compileDomainRules(domainRules)

type domainMatcher struct {
	domain string
	re     *regexp.Regexp
}

func compileDomainRules(rules []domainRule) []domainMatcher {
	matchers := make([]domainMatcher, 0, len(rules))
	for _, rule := range rules {
		alternatives := make([]string, 0, len(rule.keywords))
		for _, keyword := range rule.keywords {
			alternatives = append(alternatives, regexp.QuoteMeta(keyword))
		}
		matchers = append(matchers, domainMatcher{
			domain: rule.domain,
			re:     regexp.MustCompile(`(?:^|[^a-z0-9])(?:` + strings.Join(alternatives, "|") + `)(?:$|[^a-z0-9])`),
		})
	}
	return matchers
}

// Domains returns the taxonomy in classification order, followed by the default tag.
func Domains() []string {
	out := make([]string, 0, len(domainRules)+1)
	for _, rule := range domainRules {
		out = append(out, rule.domain)
	}
	return append(out, posting.DefaultDomain)
}

// ClassifyDomain maps a title to the first matching domain tag.
func ClassifyDomain(title string) string {
	lower := strings.ToLower(Clean(title))
	for _, matcher := range domainMatchers {
		if matcher.re.MatchString(lower) {
			return matcher.domain
		}
	}
	return posting.DefaultDomain
}
