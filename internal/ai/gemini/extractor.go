package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/intern-radar/internal/normalize"
	"github.com/spigell/intern-radar/internal/utils"

	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const (
	systemInstruction   = "You are a precise resume parser. Answer with JSON only."
	defaultMaxLogLength = 200
	defaultMaxSkills    = 25
	maxResumeLength     = 20000
)

// Extractor pulls declared skills out of resume text with a Gemini model.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	maxSkills int
}

func NewExtractor(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
		maxSkills: defaultMaxSkills,
	}
}

func (e *Extractor) ExtractSkills(ctx context.Context, resumeText string) ([]string, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, errors.New("resume text is required")
	}
	if utf8.RuneCountInString(resumeText) > maxResumeLength {
		resumeText = string([]rune(resumeText)[:maxResumeLength])
	}

	prompt := buildPrompt(resumeText, e.maxSkills)

	e.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	skills, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	if len(skills) > e.maxSkills {
		skills = skills[:e.maxSkills]
	}
	return skills, nil
}

func buildPrompt(resumeText string, maxSkills int) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME_TEXT}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{MAX_SKILLS}}", strconv.Itoa(maxSkills))
	return strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", resumeText)
}

// parseResponse accepts {"skills": [...]}, {"skills": "a, b"} or a bare array, optionally fenced.
func parseResponse(raw string) ([]string, error) {
	cleaned := extractJSON(raw)

	var payload any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var values []any
	switch val := payload.(type) {
	case []any:
		values = val
	case map[string]any:
		switch skills := val["skills"].(type) {
		case []any:
			values = skills
		case string:
			for _, s := range utils.SplitList(skills) {
				values = append(values, s)
			}
		case nil:
			return nil, errors.New("parse gemini response: skills field is missing")
		default:
			return nil, fmt.Errorf("parse gemini response: unexpected skills type %T", skills)
		}
	default:
		return nil, fmt.Errorf("parse gemini response: unexpected payload type %T", payload)
	}

	seen := make(map[string]struct{}, len(values))
	skills := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = normalize.CanonicalSkill(s)
		key := strings.ToLower(s)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, s)
	}
	return skills, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
