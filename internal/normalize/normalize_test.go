package normalize

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spigell/intern-radar/internal/posting"
)

func TestClean(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "bullets and spaces", in: "  • Software   Intern ▪ ", want: "Software Intern"},
		{name: "markup and entities", in: "<b>Data&nbsp;Analyst</b> &amp; Intern", want: "Data Analyst & Intern"},
		{name: "encoded markup", in: "&lt;b&gt;Python Intern&lt;/b&gt;", want: "Python Intern"},
		{name: "asterisks", in: "***Acme Corp***", want: "Acme Corp"},
		{name: "dangling separators", in: " - Bangalore | ", want: "Bangalore"},
		{name: "empty", in: "   ", want: posting.NotAvailable},
		{name: "only bullets", in: "• • ●", want: posting.NotAvailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanListDedupsAndCaps(t *testing.T) {
	t.Parallel()

	got := CleanList([]string{"Python", "• python", "", "Go", "SQL", "Git", "Docker", "Linux", "AWS"})
	want := []string{"Python", "Go", "SQL", "Git", "Docker", "Linux"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanList = %v, want %v", got, want)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("héllo world", 5); got != "héllo" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("short", 50); got != "short" {
		t.Fatalf("Truncate = %q", got)
	}
}

func TestIsRelevant(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"Software Engineering Intern": true,
		"Summer Internship 2025":      true,
		"Graduate Trainee":            true,
		"Senior Staff Engineer":       false,
		"":                            false,
	}
	for title, want := range cases {
		if got := IsRelevant(title); got != want {
			t.Errorf("IsRelevant(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestClassifyDomain(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  string
	}{
		{title: "Machine Learning Intern", want: "Data Science"},
		{title: "AI Research Intern", want: "Data Science"},
		{title: "Android Developer Intern", want: "Mobile Development"},
		{title: "Frontend Intern", want: "Web Development"},
		{title: "DevOps Trainee", want: "Cloud & DevOps"},
		{title: "Software Engineer Intern", want: "Software Engineering"},
		{title: "UI/UX Design Intern", want: "Design"},
		{title: "Digital Marketing Intern", want: "Marketing"},
		{title: "HR Intern", want: "Human Resources"},
		{title: "Chef Apprentice", want: posting.DefaultDomain},
		// "ai" must not match inside other words.
		{title: "Email Campaign Intern", want: posting.DefaultDomain},
	}

	for _, tc := range cases {
		if got := ClassifyDomain(tc.title); got != tc.want {
			t.Errorf("ClassifyDomain(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestDomainsEndsWithDefault(t *testing.T) {
	t.Parallel()

	domains := Domains()
	if domains[len(domains)-1] != posting.DefaultDomain {
		t.Fatalf("last domain = %q", domains[len(domains)-1])
	}
}

func TestExtractSkills(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want []string
	}{
		{name: "mixed", text: "Work with Python, SQL and React.js daily.", want: []string{"Python", "SQL", "React"}},
		{name: "symbols", text: "C++ or C# experience", want: []string{"C++", "C#"}},
		{name: "golang alias", text: "Backend in Golang", want: []string{"Go"}},
		{name: "plain go is ignored", text: "Go ahead and apply", want: nil},
		{name: "java is not javascript", text: "JavaScript only", want: []string{"JavaScript"}},
		{name: "empty", text: "  ", want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractSkills(tc.text); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractSkills(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestCanonicalSkill(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"python":  "Python",
		" k8s ":   "Kubernetes",
		"golang":  "Go",
		"Blender": "Blender",
	}
	for in, want := range cases {
		if got := CanonicalSkill(in); got != want {
			t.Errorf("CanonicalSkill(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *posting.Posting {
		link := " https://example.com/jobs/1 "
		return &posting.Posting{
			Title:   "Backend Intern",
			Company: "Acme",
			Source:  "Internshala",
			Link:    &link,
		}
	}

	cases := []struct {
		name   string
		mutate func(p *posting.Posting)
		want   bool
	}{
		{name: "valid", mutate: func(*posting.Posting) {}, want: true},
		{name: "missing title", mutate: func(p *posting.Posting) { p.Title = posting.NotAvailable }, want: false},
		{name: "short title", mutate: func(p *posting.Posting) { p.Title = "QA" }, want: false},
		{name: "short company", mutate: func(p *posting.Posting) { p.Company = "A" }, want: false},
		{name: "missing source", mutate: func(p *posting.Posting) { p.Source = "" }, want: false},
		{name: "bullet in title", mutate: func(p *posting.Posting) { p.Title = "• Backend Intern" }, want: false},
		{name: "bad link kept posting", mutate: func(p *posting.Posting) {
			bad := "javascript:void(0)"
			p.Link = &bad
		}, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := valid()
			tc.mutate(p)
			if got := Validate(p); got != tc.want {
				t.Fatalf("Validate = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("cleans in place", func(t *testing.T) {
		t.Parallel()
		p := valid()
		p.Description = strings.Repeat("x", posting.MaxDescriptionLength+20)
		if !Validate(p) {
			t.Fatal("expected valid posting")
		}
		if p.Link == nil || *p.Link != "https://example.com/jobs/1" {
			t.Fatalf("link = %v", p.Link)
		}
		if n := len([]rune(p.Description)); n != posting.MaxDescriptionLength {
			t.Fatalf("description length = %d", n)
		}
	})

	t.Run("invalid link cleared", func(t *testing.T) {
		t.Parallel()
		p := valid()
		bad := "/relative/path"
		p.Link = &bad
		if !Validate(p) {
			t.Fatal("expected valid posting")
		}
		if p.Link != nil {
			t.Fatalf("expected link to be cleared, got %q", *p.Link)
		}
	})

	if Validate(nil) {
		t.Fatal("nil posting must be invalid")
	}
}

func TestToPosting(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	raw := &posting.RawRecord{
		Title:       "• Python Developer Intern",
		Company:     " Acme Labs ",
		Location:    "Work From Home",
		Description: "You will build APIs with Django and Docker. Python is a must.",
		Stipend:     "₹ 10,000 /month",
		Link:        "https://internshala.com/internship/detail/1",
		Deadline:    "25 Mar' 25",
		Skills:      []string{"python", "SQL"},
		Source:      "Internshala",
	}

	p := ToPosting(raw, now)

	if p.Title != "Python Developer Intern" {
		t.Fatalf("title = %q", p.Title)
	}
	if p.Company != "Acme Labs" {
		t.Fatalf("company = %q", p.Company)
	}
	if p.Domain != "Software Engineering" {
		t.Fatalf("domain = %q", p.Domain)
	}
	if want := []string{"Python", "SQL"}; !reflect.DeepEqual(p.Requirements, want) {
		t.Fatalf("requirements = %v, want %v", p.Requirements, want)
	}
	if want := []string{"Django", "Docker"}; !reflect.DeepEqual(p.PreferredSkills, want) {
		t.Fatalf("preferred = %v, want %v", p.PreferredSkills, want)
	}
	if p.ExperienceLevel != posting.DefaultExperienceLevel {
		t.Fatalf("experience = %q", p.ExperienceLevel)
	}
	if p.ApplicationDeadline != "2025-03-25" {
		t.Fatalf("deadline = %q", p.ApplicationDeadline)
	}
	if p.ScrapedAt != "2025-03-10 09:30:00" {
		t.Fatalf("scrapedAt = %q", p.ScrapedAt)
	}
	if p.Link == nil || *p.Link != raw.Link {
		t.Fatalf("link = %v", p.Link)
	}
	if want := []string{"Software Engineering", "Internship", "Internshala", "Remote"}; !reflect.DeepEqual(p.Tags, want) {
		t.Fatalf("tags = %v, want %v", p.Tags, want)
	}
	if !Validate(p) {
		t.Fatal("converted posting should validate")
	}
}

func TestToPostingDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	p := ToPosting(&posting.RawRecord{
		Title:       "Marketing Intern",
		Company:     "Beta",
		Description: "Run SEO campaigns.",
		Link:        "not a link",
		Source:      "Naukri",
	}, now)

	if p.ApplicationDeadline != "2025-04-09" {
		t.Fatalf("deadline = %q", p.ApplicationDeadline)
	}
	if p.Link != nil {
		t.Fatalf("link = %q", *p.Link)
	}
	if p.Location != posting.NotAvailable {
		t.Fatalf("location = %q", p.Location)
	}
	if want := []string{"SEO"}; !reflect.DeepEqual(p.Requirements, want) {
		t.Fatalf("requirements = %v, want %v", p.Requirements, want)
	}
	if len(p.PreferredSkills) != 0 {
		t.Fatalf("preferred = %v", p.PreferredSkills)
	}
}
