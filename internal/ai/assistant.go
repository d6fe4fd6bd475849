package ai

import (
	"context"
	"strings"

	"github.com/spigell/intern-radar/internal/posting"

	"go.uber.org/zap"
)

// SkillExtractor reads declared skills out of free-form resume text.
type SkillExtractor interface {
	ExtractSkills(ctx context.Context, resumeText string) ([]string, error)
}

// EnrichQuery appends skills extracted from resumeText to query.Skills.
// Extraction is optional: a nil extractor, blank text or a failure leave the query unchanged.
func EnrichQuery(ctx context.Context, extractor SkillExtractor, logger *zap.Logger, query *posting.CandidateQuery, resumeText string) int {
	if extractor == nil || query == nil || strings.TrimSpace(resumeText) == "" {
		return 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	skills, err := extractor.ExtractSkills(ctx, resumeText)
	if err != nil {
		logger.Warn("resume skill extraction failed, continuing without it", zap.Error(err))
		return 0
	}

	seen := make(map[string]struct{}, len(query.Skills)+len(skills))
	for _, s := range query.Skills {
		seen[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	added := 0
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		query.Skills = append(query.Skills, s)
		added++
	}

	logger.Debug("query enriched from resume", zap.Int("added_skills", added))
	return added
}
