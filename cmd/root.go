package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/spigell/intern-radar/internal/api"
	"github.com/spigell/intern-radar/internal/browser"
	"github.com/spigell/intern-radar/internal/filtering"
	"github.com/spigell/intern-radar/internal/matching"
	"github.com/spigell/intern-radar/internal/scheduler"
	"github.com/spigell/intern-radar/internal/scrape"
	"github.com/spigell/intern-radar/internal/store"
	"github.com/spigell/intern-radar/internal/tasks"
	"github.com/spigell/intern-radar/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "intern-radar"
	envPrefix = "INTERN_RADAR"
)

type Config struct {
	Store    store.Options     `mapstructure:"store"`
	Fetch    FetchConfig       `mapstructure:"fetch"`
	Scrape   ScrapeConfig      `mapstructure:"scrape"`
	Matching matching.Options  `mapstructure:"matching"`
	Exclude  filtering.Config  `mapstructure:"exclude"`
	Tasks    TasksConfig       `mapstructure:"tasks"`
	Server   api.Options       `mapstructure:"server"`
	Schedule scheduler.Options `mapstructure:"schedule"`
	AI       *AIConfig         `mapstructure:"ai"`
}

type FetchConfig struct {
	Browser browser.Options    `mapstructure:"browser"`
	Policy  browser.LoadPolicy `mapstructure:"policy"`
}

// ScrapeConfig holds defaults for scrape requests; flags override them.
type ScrapeConfig struct {
	Sources  []string `mapstructure:"sources"`
	Keyword  string   `mapstructure:"keyword"`
	Location string   `mapstructure:"location"`
	Pages    int      `mapstructure:"pages"`
}

// Request builds a scrape request from the configured defaults.
func (c ScrapeConfig) Request() scrape.Request {
	return scrape.Request{
		Sources:  utils.SplitList(c.Sources...),
		Keyword:  c.Keyword,
		Location: c.Location,
		Pages:    c.Pages,
	}
}

// scheduledRequest fills the blank fields of the scheduled scrape request from the scrape defaults.
func scheduledRequest(schedule scrape.Request, defaults ScrapeConfig) scrape.Request {
	base := defaults.Request()
	if len(schedule.Sources) == 0 {
		schedule.Sources = base.Sources
	}
	if strings.TrimSpace(schedule.Keyword) == "" {
		schedule.Keyword = base.Keyword
	}
	if strings.TrimSpace(schedule.Location) == "" {
		schedule.Location = base.Location
	}
	if schedule.Pages <= 0 {
		schedule.Pages = base.Pages
	}
	return schedule
}

type TasksConfig struct {
	tasks.Options `mapstructure:",squash"`
	// Backend is memory or redis.
	Backend  string `mapstructure:"backend"`
	RedisURL string `mapstructure:"redis-url"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "intern-radar collects internship postings from listing sites and matches them against candidate profiles",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is intern-radar.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine; a broken or explicitly given one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func setDefaults() {
	storeDefaults := store.DefaultOptions()
	viper.SetDefault("store.path", storeDefaults.Path)
	viper.SetDefault("store.lock-ttl", storeDefaults.LockTTL)
	viper.SetDefault("store.lock-retries", storeDefaults.LockRetries)
	viper.SetDefault("store.lock-retry-delay", storeDefaults.LockRetryDelay)

	policy := browser.DefaultLoadPolicy()
	viper.SetDefault("fetch.browser.driver", browser.DriverPlaywright)
	viper.SetDefault("fetch.browser.headless", true)
	viper.SetDefault("fetch.browser.executable-path", "")
	viper.SetDefault("fetch.browser.install-browser", false)
	viper.SetDefault("fetch.browser.respect-robots", true)
	viper.SetDefault("fetch.browser.request-timeout", policy.Timeout)
	viper.SetDefault("fetch.policy.attempts", policy.Attempts)
	viper.SetDefault("fetch.policy.retry-delay", policy.RetryDelay)
	viper.SetDefault("fetch.policy.timeout", policy.Timeout)

	viper.SetDefault("scrape.sources", []string{})
	viper.SetDefault("scrape.keyword", scrape.DefaultKeyword)
	viper.SetDefault("scrape.location", "India")
	viper.SetDefault("scrape.pages", 2)

	matchingDefaults := matching.DefaultOptions()
	viper.SetDefault("matching.max-features", matchingDefaults.MaxFeatures)
	viper.SetDefault("matching.refresh-interval", matchingDefaults.RefreshInterval)

	viper.SetDefault("exclude.companies", []string{})
	viper.SetDefault("exclude.red-flags", []string{})
	viper.SetDefault("exclude.file", "")

	taskDefaults := tasks.DefaultOptions()
	viper.SetDefault("tasks.workers", taskDefaults.Workers)
	viper.SetDefault("tasks.queue-size", taskDefaults.QueueSize)
	viper.SetDefault("tasks.retain-for", taskDefaults.RetainFor)
	viper.SetDefault("tasks.backend", "memory")
	viper.SetDefault("tasks.redis-url", "")

	serverDefaults := api.DefaultOptions()
	viper.SetDefault("server.addr", serverDefaults.Addr)
	viper.SetDefault("server.default-top-k", serverDefaults.DefaultTopK)
	viper.SetDefault("server.max-top-k", serverDefaults.MaxTopK)
	viper.SetDefault("server.max-body-size", serverDefaults.MaxBodySize)
	viper.SetDefault("server.read-timeout", serverDefaults.ReadTimeout)

	scheduleDefaults := scheduler.DefaultOptions()
	viper.SetDefault("schedule.scrape", scheduleDefaults.ScrapeSpec)
	viper.SetDefault("schedule.cleanup", scheduleDefaults.CleanupSpec)
	viper.SetDefault("schedule.run-on-start", scheduleDefaults.RunOnStart)

	viper.SetDefault("ai.enabled", false)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.api-key", "")
	viper.SetDefault("ai.gemini.api-key-file", "")
	viper.SetDefault("ai.gemini.model", "")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
