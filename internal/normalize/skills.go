package normalize

import (
	"regexp"
	"strings"
)

type skill struct {
	name    string
	aliases []string
	// ambiguous names are matched through their aliases only.
	ambiguous bool
}

// vocabulary is the fixed list of skills recognised in scraped text.
// The name is the canonical display casing.
var vocabulary = []skill{
	{name: "Python"},
	{name: "Java"},
	{name: "JavaScript", aliases: []string{"js"}},
	{name: "TypeScript"},
	{name: "C++"},
	{name: "C#"},
	{name: "Go", aliases: []string{"golang"}, ambiguous: true},
	{name: "Rust"},
	{name: "Kotlin"},
	{name: "Swift"},
	{name: "PHP"},
	{name: "Ruby"},
	{name: "SQL"},
	{name: "MySQL"},
	{name: "PostgreSQL", aliases: []string{"postgres"}},
	{name: "MongoDB"},
	{name: "Redis"},
	{name: "HTML"},
	{name: "CSS"},
	{name: "React", aliases: []string{"react.js", "reactjs"}},
	{name: "Angular"},
	{name: "Vue", aliases: []string{"vue.js", "vuejs"}},
	{name: "Node.js", aliases: []string{"nodejs", "node"}},
	{name: "Django"},
	{name: "Flask"},
	{name: "Spring Boot"},
	{name: "Flutter"},
	{name: "Android"},
	{name: "iOS"},
	{name: "AWS"},
	{name: "Azure"},
	{name: "GCP", aliases: []string{"google cloud"}},
	{name: "Docker"},
	{name: "Kubernetes", aliases: []string{"k8s"}},
	{name: "Git"},
	{name: "Linux"},
	{name: "Machine Learning"},
	{name: "Deep Learning"},
	{name: "NLP", aliases: []string{"natural language processing"}},
	{name: "TensorFlow"},
	{name: "PyTorch"},
	{name: "Pandas"},
	{name: "NumPy"},
	{name: "Data Analysis"},
	{name: "Excel", aliases: []string{"ms excel", "microsoft excel"}},
	{name: "Power BI"},
	{name: "Tableau"},
	{name: "Figma"},
	{name: "Photoshop", aliases: []string{"adobe photoshop"}},
	{name: "SEO"},
	{name: "Digital Marketing"},
	{name: "Content Writing"},
	{name: "Communication"},
}

type skillMatcher struct {
	name string
	re   *regexp.Regexp
}

var skillMatchers = compileVocabulary(vocabulary)

func compileVocabulary(skills []skill) []skillMatcher {
	matchers := make([]skillMatcher, 0, len(skills))
	for _, s := range skills {
		terms := s.aliases
		if !s.ambiguous {
			terms = append([]string{s.name}, s.aliases...)
		}
		alternatives := make([]string, 0, len(terms))
		for _, term := range terms {
			alternatives = append(alternatives, regexp.QuoteMeta(strings.ToLower(term)))
		}
		// '+' and '#' belong to names like C++ and C#; a trailing '.' is sentence punctuation.
		matchers = append(matchers, skillMatcher{
			name: s.name,
			re:   regexp.MustCompile(`(?:^|[^a-z0-9+#.])(?:` + strings.Join(alternatives, "|") + `)(?:$|[^a-z0-9+#])`),
		})
	}
	return matchers
}

// ExtractSkills returns the vocabulary skills found in text, in vocabulary order.
func ExtractSkills(text string) []string {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return nil
	}

	var found []string
	for _, matcher := range skillMatchers {
		if matcher.re.MatchString(lower) {
			found = append(found, matcher.name)
		}
	}
	return found
}

// CanonicalSkill maps a free-form skill to its vocabulary casing when known.
func CanonicalSkill(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	for _, s := range vocabulary {
		if lower == strings.ToLower(s.name) {
			return s.name
		}
		for _, alias := range s.aliases {
			if lower == alias {
				return s.name
			}
		}
	}
	return trimmed
}
