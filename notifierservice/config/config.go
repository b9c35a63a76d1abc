package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	To       string
}

// Config defines the single, authoritative configuration.
type Config struct {
	ProjectID      string
	ListenAddr     string
	SubscriptionID string

	// BundleID is the apns-topic header value, i.e. the iOS app's bundle id.
	BundleID string

	SMTP  SMTPConfig
	Redis RedisConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_ID", "source", "env")
		cfg.SubscriptionID = val
	}
	if val := os.Getenv("APNS_BUNDLE_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_BUNDLE_ID", "source", "env")
		cfg.BundleID = val
	}

	// SMTP overrides keep the original deployment's variable names.
	if val := os.Getenv("GMAIL_USER"); val != "" {
		cfg.SMTP.Username = val
	}
	if val := os.Getenv("GMAIL_APP_PASSWORD"); val != "" {
		cfg.SMTP.Password = val
	}
	if val := os.Getenv("DEST_EMAIL"); val != "" {
		cfg.SMTP.To = val
	}

	// Redis overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// Final validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.SubscriptionID == "" {
		return nil, fmt.Errorf("subscription_id is required (set via YAML or SUBSCRIPTION_ID env var)")
	}
	if cfg.BundleID == "" {
		return nil, fmt.Errorf("bundle_id is required (set via YAML or APNS_BUNDLE_ID env var)")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
