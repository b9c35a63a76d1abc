package config

import (
	"log/slog"
)

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlSMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	To       string `yaml:"to"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID      string          `yaml:"project_id"`
	ListenAddr     string          `yaml:"listen_addr"`
	SubscriptionID string          `yaml:"subscription_id"`
	BundleID       string          `yaml:"bundle_id"`
	SMTPConfig     YamlSMTPConfig  `yaml:"smtp"`
	RedisConfig    YamlRedisConfig `yaml:"redis"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:      baseCfg.ProjectID,
		ListenAddr:     baseCfg.ListenAddr,
		SubscriptionID: baseCfg.SubscriptionID,
		BundleID:       baseCfg.BundleID,
		SMTP: SMTPConfig{
			Host:     baseCfg.SMTPConfig.Host,
			Port:     baseCfg.SMTPConfig.Port,
			Username: baseCfg.SMTPConfig.Username,
			Password: baseCfg.SMTPConfig.Password,
			To:       baseCfg.SMTPConfig.To,
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"subscription_id", cfg.SubscriptionID,
	)

	return cfg, nil
}
