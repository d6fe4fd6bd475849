package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spigell/intern-radar/internal/ai"
	"github.com/spigell/intern-radar/internal/posting"
	"github.com/spigell/intern-radar/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank stored postings against a candidate profile",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringSlice("skills", nil, "comma separated skills")
	matchCmd.Flags().StringSlice("domains", nil, "comma separated preferred domains")
	matchCmd.Flags().String("experience", "", "experience level, e.g. \"Entry Level\"")
	matchCmd.Flags().String("projects", "", "free text about projects")
	matchCmd.Flags().String("certifications", "", "free text about certifications")
	matchCmd.Flags().String("resume-file", "", "plain text resume; skills are extracted when ai is enabled")
	matchCmd.Flags().IntP("top", "n", 10, "number of matches to show")
}

func runMatch(cmd *cobra.Command) {
	ctx := context.Background()
	config, logger := setup()

	st := openStore(config, logger)
	defer st.Close()
	engine, _ := readSide(config, st, logger)

	flags := cmd.Flags()
	skills, _ := flags.GetStringSlice("skills")
	domains, _ := flags.GetStringSlice("domains")
	experience, _ := flags.GetString("experience")
	projects, _ := flags.GetString("projects")
	certifications, _ := flags.GetString("certifications")
	resumeFile, _ := flags.GetString("resume-file")
	top, _ := flags.GetInt("top")

	query := posting.CandidateQuery{
		Skills:          utils.SplitList(skills...),
		Domains:         utils.SplitList(domains...),
		ExperienceLevel: strings.TrimSpace(experience),
		Projects:        strings.TrimSpace(projects),
		Certifications:  strings.TrimSpace(certifications),
	}

	if resumeFile != "" {
		data, err := os.ReadFile(resumeFile)
		if err != nil {
			logger.Fatal("reading resume file", zap.Error(err))
		}
		extractor, err := newSkillExtractor(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("skipping resume skill extraction", zap.Error(err))
		}
		if extractor == nil {
			logger.Info("resume file ignored", zap.String("reason", "ai enrichment is disabled"))
		}
		ai.EnrichQuery(ctx, extractor, logger, &query, string(data))
	}

	if strings.TrimSpace(query.Text()) == "" {
		logger.Fatal("candidate profile is empty", zap.String("hint", "pass --skills, --domains or --resume-file"))
	}

	results := engine.Recommend(ctx, query, top)
	logger.Info("matching finished", zap.Int("matches", len(results)), zap.Strings("skills", query.Skills))

	if err := printJSON(cmd.OutOrStdout(), results); err != nil {
		logger.Fatal("printing matches", zap.Error(err))
	}
}
