// Package config loads Audix's runtime configuration from environment
// variables. There is no config file: every setting is an env var override
// over a fixed default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port              int
	TrustedProxyCIDRs []string
	Production        bool // gates the session cookie's Secure flag
}

type DatabaseConfig struct {
	URL string
}

type AuthConfig struct {
	SessionSecret string
	LiveToken     string
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envStringSlice(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				*dst = append(*dst, trimmed)
			}
		}
	}
}

// Load reads configuration from the environment. SESSION_SECRET and
// AUDIX_LIVE_TOKEN are required; their absence aborts startup.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:       5005,
			Production: isProduction(),
		},
		Database: DatabaseConfig{
			URL: "./data/audix.db",
		},
	}

	envInt("PORT", &cfg.Server.Port)
	envStringSlice("TRUSTED_PROXY_CIDRS", &cfg.Server.TrustedProxyCIDRs)
	envString("DATABASE_URL", &cfg.Database.URL)
	envString("SESSION_SECRET", &cfg.Auth.SessionSecret)
	envString("AUDIX_LIVE_TOKEN", &cfg.Auth.LiveToken)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Auth.LiveToken == "" {
		return fmt.Errorf("AUDIX_LIVE_TOKEN is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("PORT must be positive")
	}
	return nil
}

func isProduction() bool {
	return strings.ToLower(os.Getenv("NODE_ENV")) == "production"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
