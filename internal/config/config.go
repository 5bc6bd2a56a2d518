package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Gmail      GmailConfig      `yaml:"gmail" mapstructure:"gmail"`
	Sheets     SheetsConfig     `yaml:"sheets" mapstructure:"sheets"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	RulesFile  string           `yaml:"rules_file" mapstructure:"rules_file"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	// Driver selects the backend: sqlite, postgres, or sheet.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GmailConfig points at the installed-app OAuth credential files shared by
// the Gmail and Sheets clients.
type GmailConfig struct {
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	TokenFile       string `yaml:"token_file" mapstructure:"token_file"`
}

// SheetsConfig configures the Google Sheets sink.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Title         string `yaml:"title" mapstructure:"title"`
}

// AnthropicConfig holds Anthropic API settings. Models lists the provider
// cascade in priority order; the classifier advances to the next model after
// exhausting retries on the current one.
type AnthropicConfig struct {
	Key    string   `yaml:"key" mapstructure:"key"`
	Models []string `yaml:"models" mapstructure:"models"`
}

// NotionConfig holds the optional Notion export target.
type NotionConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	ApplicationDB string `yaml:"application_db" mapstructure:"application_db"`
}

// ClassifierConfig tunes the AI fallback stage.
type ClassifierConfig struct {
	DailyQuota          int     `yaml:"daily_quota" mapstructure:"daily_quota"`
	MinCallIntervalSecs int     `yaml:"min_call_interval_secs" mapstructure:"min_call_interval_secs"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffSecs         int     `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	MaxTokens           int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MinCallInterval returns the configured delay between consecutive AI calls.
func (c ClassifierConfig) MinCallInterval() time.Duration {
	return time.Duration(c.MinCallIntervalSecs) * time.Second
}

// Backoff returns the fixed delay applied after a rate-limited attempt.
func (c ClassifierConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSecs) * time.Second
}

// MatchConfig tunes deduplication matching.
type MatchConfig struct {
	// RoleOverlapThreshold is the minimum token-set Jaccard similarity for
	// two roles to be treated as the same opening. Tuned empirically.
	RoleOverlapThreshold float64 `yaml:"role_overlap_threshold" mapstructure:"role_overlap_threshold"`
}

// ScanConfig controls the email scan window.
type ScanConfig struct {
	InitialMonths int `yaml:"initial_months" mapstructure:"initial_months"`
	DailyDays     int `yaml:"daily_days" mapstructure:"daily_days"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

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
	v.SetEnvPrefix("JOBTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "applications.db")
	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("sheets.title", "Job Application Tracker")
	v.SetDefault("anthropic.models", []string{
		"claude-haiku-4-5-20251001",
		"claude-sonnet-4-5-20250929",
	})
	v.SetDefault("classifier.daily_quota", 1400)
	v.SetDefault("classifier.min_call_interval_secs", 4)
	v.SetDefault("classifier.confidence_threshold", 0.70)
	v.SetDefault("classifier.max_attempts", 4)
	v.SetDefault("classifier.backoff_secs", 60)
	v.SetDefault("classifier.max_tokens", 512)
	v.SetDefault("match.role_overlap_threshold", 0.75)
	v.SetDefault("scan.initial_months", 8)
	v.SetDefault("scan.daily_days", 7)
	v.SetDefault("server.port", 8080)
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
