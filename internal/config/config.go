package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Slack    SlackConfig    `yaml:"slack"`
	Tracking TrackingConfig `yaml:"tracking"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GetHost returns the server host, with environment override
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SlackConfig holds the outbound webhook settings
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// TrackingConfig holds pixel issuance settings
type TrackingConfig struct {
	// BaseURL is the externally visible origin embedded in pixel URLs,
	// e.g. https://track.example.com
	BaseURL string `yaml:"base_url"`
	// PublicRateLimit caps per-IP requests to the public issuance endpoint
	// per window; 0 disables the limiter.
	PublicRateLimit         int `yaml:"public_rate_limit"`
	PublicRateWindowSeconds int `yaml:"public_rate_window_seconds"`
}

// PublicRateWindow returns the rate-limit window as a duration
func (c TrackingConfig) PublicRateWindow() time.Duration {
	return time.Duration(c.PublicRateWindowSeconds) * time.Second
}

// RedisConfig holds Redis settings for rate limiting
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Enabled bool   `yaml:"enabled"`
}

// AuthConfig holds dashboard API authentication settings. Identity lives with
// an external collaborator; the API itself only checks a static bearer token.
type AuthConfig struct {
	APIToken string `yaml:"api_token"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Tracking.BaseURL == "" {
		cfg.Tracking.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Tracking.PublicRateWindowSeconds == 0 {
		cfg.Tracking.PublicRateWindowSeconds = 60
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		cfg.Slack.WebhookURL = webhook
	}
	if baseURL := os.Getenv("TRACKING_BASE_URL"); baseURL != "" {
		cfg.Tracking.BaseURL = baseURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if token := os.Getenv("API_TOKEN"); token != "" {
		cfg.Auth.APIToken = token
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	return cfg, nil
}
