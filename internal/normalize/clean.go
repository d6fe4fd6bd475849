// Package normalize turns raw scraped records into clean, validated postings.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/spigell/intern-radar/internal/posting"
)

// Bullets lists the glyphs that scraped markup leaves in front of list items.
const Bullets = "*•▪●◦‣⁃►■"

var (
	reTags       = regexp.MustCompile(`<[^>]*>`)
	reBullets    = regexp.MustCompile(`[` + regexp.QuoteMeta(Bullets) + `]+`)
	reWhitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	reLeading    = regexp.MustCompile(`^[\s\-–—|:;,.]+`)
	reTrailing   = regexp.MustCompile(`[\s\-–—|:;,]+$`)
)

// Step is a single pure text transform of the cleaning pipeline.
type Step func(string) string

// Pipeline is the ordered list of steps applied by Clean.
// Entities are decoded first so encoded markup is stripped as well.
var Pipeline = []Step{
	html.UnescapeString,
	StripTags,
	StripBullets,
	CollapseWhitespace,
	TrimSeparators,
}

// StripTags removes HTML tags, leaving a space so adjacent words do not merge.
func StripTags(s string) string {
	return reTags.ReplaceAllString(s, " ")
}

// StripBullets removes bullet and asterisk glyphs.
func StripBullets(s string) string {
	return reBullets.ReplaceAllString(s, " ")
}

func CollapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// TrimSeparators drops dangling dashes, pipes and punctuation at both ends.
func TrimSeparators(s string) string {
	s = reLeading.ReplaceAllString(s, "")
	return reTrailing.ReplaceAllString(s, "")
}

// Clean runs the pipeline and returns posting.NotAvailable for empty results.
func Clean(text string) string {
	for _, step := range Pipeline {
		text = step(text)
	}
	if text == "" {
		return posting.NotAvailable
	}
	return text
}

// CleanList cleans every item, drops empty ones and case-insensitive duplicates,
// and caps the result at posting.MaxListItems.
func CleanList(items []string) []string {
	out := make([]string, 0, min(len(items), posting.MaxListItems))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		cleaned := Clean(item)
		if cleaned == posting.NotAvailable {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
		if len(out) == posting.MaxListItems {
			break
		}
	}
	return out
}

// Truncate caps s at limit runes.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}

func hasBullet(s string) bool {
	return strings.ContainsAny(s, Bullets)
}
