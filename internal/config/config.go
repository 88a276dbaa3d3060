package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	IDStrategy       string        `mapstructure:"ID_STRATEGY"`
	DraftTimeout     time.Duration `mapstructure:"DRAFT_TIMEOUT"`
	DispatchInterval time.Duration `mapstructure:"DISPATCH_INTERVAL"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	SeedDemo         bool          `mapstructure:"SEED_DEMO"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ID_STRATEGY", "uuid")
	v.SetDefault("DRAFT_TIMEOUT", "30s")
	v.SetDefault("DISPATCH_INTERVAL", "1m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SEED_DEMO", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "ID_STRATEGY", "DRAFT_TIMEOUT",
		"DISPATCH_INTERVAL", "CORS_ORIGINS", "SEED_DEMO",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level parses LOG_LEVEL.
func (c *Config) Level() (zerolog.Level, error) {
	return zerolog.ParseLevel(strings.ToLower(c.LogLevel))
}

// Validate checks that the configuration can be served.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.IDStrategy {
	case "uuid", "sequence", "timestamp":
	default:
		return fmt.Errorf("ID_STRATEGY must be \"uuid\", \"sequence\", or \"timestamp\", got %q", c.IDStrategy)
	}
	if c.DraftTimeout <= 0 {
		return fmt.Errorf("DRAFT_TIMEOUT must be positive, got %s", c.DraftTimeout)
	}
	if c.DispatchInterval < 0 {
		return fmt.Errorf("DISPATCH_INTERVAL must not be negative, got %s", c.DispatchInterval)
	}
	return nil
}
