// Package config loads the application configuration from an optional
// config.yaml plus FACULTY_-prefixed environment variables. The resulting
// struct is constructed once at startup and passed to every collaborator;
// nothing else reads ambient environment state.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	DeepSeek  DeepSeekConfig  `yaml:"deepseek" mapstructure:"deepseek"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DeepSeekConfig holds the enrichment-capability credentials and retry knobs.
type DeepSeekConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// Timeout returns the per-call timeout as a duration.
func (c DeepSeekConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CrawlConfig configures the discovery crawl.
type CrawlConfig struct {
	MaxPagesPerSeed int     `yaml:"max_pages_per_seed" mapstructure:"max_pages_per_seed"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	HostRate        float64 `yaml:"host_rate" mapstructure:"host_rate"`
	NoBrowser       bool    `yaml:"no_browser" mapstructure:"no_browser"`
}

// Timeout returns the per-fetch timeout as a duration.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// EnrichConfig configures the enrichment phase.
type EnrichConfig struct {
	Workers        int  `yaml:"workers" mapstructure:"workers"`
	SearchFallback bool `yaml:"search_fallback" mapstructure:"search_fallback"`
}

// NormalizeConfig configures institution-name normalization.
type NormalizeConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	AliasFile           string  `yaml:"alias_file" mapstructure:"alias_file"`
}

// PathsConfig holds the data directories and the per-stage store files.
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	SeedCSV     string `yaml:"seed_csv" mapstructure:"seed_csv"`
	TemplateCSV string `yaml:"template_csv" mapstructure:"template_csv"`
}

// Store-file locations under DataDir. Each phase is the exclusive writer
// of its own file.
func (p PathsConfig) SeedIssues() string      { return filepath.Join(p.DataDir, "interim", "seed_issues.jsonl") }
func (p PathsConfig) PageCacheDB() string     { return filepath.Join(p.DataDir, "raw", "pages.db") }
func (p PathsConfig) ListingPages() string    { return filepath.Join(p.DataDir, "interim", "listing_pages.jsonl") }
func (p PathsConfig) NameCandidates() string  { return filepath.Join(p.DataDir, "interim", "name_candidates.jsonl") }
func (p PathsConfig) ProfessorNames() string  { return filepath.Join(p.DataDir, "interim", "professor_names.jsonl") }
func (p PathsConfig) Enriched() string        { return filepath.Join(p.DataDir, "interim", "professors_enriched.jsonl") }
func (p PathsConfig) Normalized() string      { return filepath.Join(p.DataDir, "interim", "professors_normalized.jsonl") }
func (p PathsConfig) ReviewQueue() string     { return filepath.Join(p.DataDir, "manual", "normalization_review.jsonl") }
func (p PathsConfig) FinalCSV() string        { return filepath.Join(p.DataDir, "output", "professors_output.csv") }
func (p PathsConfig) FinalXLSX() string       { return filepath.Join(p.DataDir, "output", "professors_output.xlsx") }

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FACULTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The key default registers the viper key so AutomaticEnv
	// can populate it through Unmarshal.
	v.SetDefault("deepseek.key", "")
	v.SetDefault("deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("deepseek.model", "deepseek-chat")
	v.SetDefault("deepseek.timeout_secs", 60)
	v.SetDefault("deepseek.max_retries", 4)
	v.SetDefault("crawl.max_pages_per_seed", 30)
	v.SetDefault("crawl.timeout_secs", 25)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; FacultyBot/1.0)")
	v.SetDefault("crawl.host_rate", 2.0)
	v.SetDefault("crawl.no_browser", false)
	v.SetDefault("normalize.alias_file", "")
	v.SetDefault("enrich.workers", 3)
	v.SetDefault("enrich.search_fallback", true)
	v.SetDefault("normalize.confidence_threshold", 0.8)
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.seed_csv", "schools_seed.csv")
	v.SetDefault("paths.template_csv", "professors_template.csv")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// RequireDeepSeek enforces strict mode: startup fails when the capability
// has no credential configured.
func (c *Config) RequireDeepSeek() error {
	if strings.TrimSpace(c.DeepSeek.Key) == "" {
		return eris.New("config: deepseek key is required (set FACULTY_DEEPSEEK_KEY or deepseek.key)")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
