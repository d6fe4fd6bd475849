package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spigell/intern-radar/internal/ai"
	"github.com/spigell/intern-radar/internal/ai/gemini"
	"github.com/spigell/intern-radar/internal/browser"
	"github.com/spigell/intern-radar/internal/catalog"
	"github.com/spigell/intern-radar/internal/logger"
	"github.com/spigell/intern-radar/internal/matching"
	"github.com/spigell/intern-radar/internal/scrape"
	"github.com/spigell/intern-radar/internal/secrets"
	"github.com/spigell/intern-radar/internal/sources"
	"github.com/spigell/intern-radar/internal/store"
	"github.com/spigell/intern-radar/internal/tasks"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// setup builds the logger and the config every command starts from.
func setup() (*Config, *zap.Logger) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return config, logger
}

func openStore(config *Config, logger *zap.Logger) *store.Store {
	st := store.New(config.Store, logger)
	if err := st.Open(); err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	return st
}

// readSide wires the matching engine and the catalog on top of the store.
func readSide(config *Config, st *store.Store, logger *zap.Logger) (*matching.Engine, *catalog.Catalog) {
	engine := matching.NewEngine(st, config.Matching, logger)
	cat := catalog.New(st, engine, logger)
	cat.OnCleaned = func(context.Context, catalog.CleanResult) { engine.Invalidate() }
	return engine, cat
}

// newOrchestrator starts the page driver. The returned func closes it.
func newOrchestrator(config *Config, st *store.Store, engine *matching.Engine, logger *zap.Logger) (*scrape.Orchestrator, func(), error) {
	b, err := browser.New(config.Fetch.Browser, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("starting page driver: %w", err)
	}

	policy := config.Fetch.Policy
	policy.Logger = logger

	orchestrator := scrape.New(sources.NewRegistry(b, policy, logger), st, &config.Exclude, logger)
	if engine != nil {
		orchestrator.OnSaved = func(context.Context, store.SaveResult) { engine.Invalidate() }
	}

	closer := func() {
		if err := b.Close(); err != nil {
			logger.Warn("closing page driver", zap.Error(err))
		}
	}
	return orchestrator, closer, nil
}

func newTaskStore(ctx context.Context, config *Config) (tasks.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(config.Tasks.Backend)) {
	case "", "memory":
		return tasks.NewMemoryStore(), func() {}, nil
	case "redis":
		client, err := tasks.NewRedisClient(ctx, config.Tasks.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rs := tasks.NewRedisStore(client, config.Tasks.RetainFor)
		return rs, func() { _ = rs.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported task backend: %s", config.Tasks.Backend)
	}
}

// newSkillExtractor returns nil when AI enrichment is disabled.
func newSkillExtractor(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.SkillExtractor, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, logger)
	if err != nil {
		return nil, err
	}

	return gemini.NewExtractor(generator, cfg.Gemini.MaxLogLength, logger.With(zap.String("ai_model", generator.Model()))), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
