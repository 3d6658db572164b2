package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	GHL      GHLConfig      `mapstructure:"ghl"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	// AdminKey guards /v1 endpoints (history, manual sync). Empty disables them.
	AdminKey string `mapstructure:"admin_key"`
}

type GHLConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	AccessToken        string  `mapstructure:"access_token"`
	LoanAmountFieldKey string  `mapstructure:"loan_amount_field_key"`
	OpportunityStatus  string  `mapstructure:"opportunity_status"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds"`
	RatePerSecond      float64 `mapstructure:"rate_per_second"`
	RateBurst          int     `mapstructure:"rate_burst"`
	PageSize           int     `mapstructure:"page_size"`
}

type SyncConfig struct {
	// CommissionRate is a fraction, e.g. 0.015 for 1.5%.
	CommissionRate      float64 `mapstructure:"commission_rate"`
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds"`
	// WebhookDedupeSeconds suppresses duplicate webhook deliveries for the
	// same opportunity within the window. 0 disables deduplication.
	WebhookDedupeSeconds int `mapstructure:"webhook_dedupe_seconds"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	HistoryRetentionDays   int    `mapstructure:"history_retention_days"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func (c *GHLConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *SyncConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *SyncConfig) WebhookDedupeTTL() time.Duration {
	return time.Duration(c.WebhookDedupeSeconds) * time.Second
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. COMMSYNC_GHL_ACCESS_TOKEN, COMMSYNC_SYNC_COMMISSION_RATE
	viper.SetEnvPrefix("commsync")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults. Keys without a meaningful default still need an empty one
	// registered, otherwise AutomaticEnv cannot resolve them when no config
	// file is present.
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("ghl.base_url", "https://rest.gohighlevel.com/v1")
	viper.SetDefault("ghl.access_token", "")
	viper.SetDefault("ghl.loan_amount_field_key", "loan_with_mipfunding_fee")
	viper.SetDefault("ghl.opportunity_status", "open")
	viper.SetDefault("ghl.timeout_seconds", 10)
	viper.SetDefault("ghl.rate_per_second", 5)
	viper.SetDefault("ghl.rate_burst", 10)
	viper.SetDefault("ghl.page_size", 100)
	viper.SetDefault("sync.commission_rate", 0.015)
	viper.SetDefault("sync.poll_interval_seconds", 600)
	viper.SetDefault("sync.webhook_dedupe_seconds", 30)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.history_retention_days", 30)
	viper.SetDefault("database.cleanup_interval_minutes", 60)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, apperrors.NewConfig("failed to read config file", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfig("failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on missing or malformed values so the process exits
// before the sync loop starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GHL.AccessToken) == "" {
		return apperrors.NewConfig("ghl.access_token is required (COMMSYNC_GHL_ACCESS_TOKEN)", nil)
	}
	if strings.TrimSpace(c.GHL.BaseURL) == "" {
		return apperrors.NewConfig("ghl.base_url must not be empty", nil)
	}
	if strings.TrimSpace(c.GHL.LoanAmountFieldKey) == "" {
		return apperrors.NewConfig("ghl.loan_amount_field_key must not be empty", nil)
	}
	if c.Sync.CommissionRate <= 0 || c.Sync.CommissionRate >= 1 {
		return apperrors.NewConfig(
			fmt.Sprintf("sync.commission_rate must be a fraction in (0, 1), got %v", c.Sync.CommissionRate), nil)
	}
	if c.Sync.PollIntervalSeconds <= 0 {
		return apperrors.NewConfig(
			fmt.Sprintf("sync.poll_interval_seconds must be positive, got %d", c.Sync.PollIntervalSeconds), nil)
	}
	if c.GHL.TimeoutSeconds <= 0 {
		return apperrors.NewConfig("ghl.timeout_seconds must be positive", nil)
	}
	if c.GHL.PageSize <= 0 || c.GHL.PageSize > 100 {
		return apperrors.NewConfig("ghl.page_size must be in 1..100", nil)
	}
	return nil
}
