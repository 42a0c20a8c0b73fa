package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	AI        AIConfig
	AdBlock   AdBlockConfig
	Catalog   CatalogConfig
	Icons     IconsConfig
	Lifecycle LifecycleConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// StoreConfig holds settings-store configuration.
type StoreConfig struct {
	Path string `envconfig:"STORE_PATH" default:"vera-desktop.db"`
}

// AIConfig holds the chat-completion endpoint configuration. The API key is
// NOT configured here; it lives in the persisted settings document and is
// supplied per request.
type AIConfig struct {
	BaseURL     string  `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string  `envconfig:"AI_MODEL" default:"gpt-4-turbo-preview"`
	MaxTokens   int     `envconfig:"AI_MAX_TOKENS" default:"2000"`
	Temperature float64 `envconfig:"AI_TEMPERATURE" default:"0.7"`
}

// AdBlockConfig holds the blocklist configuration.
type AdBlockConfig struct {
	// PatternsFile optionally points at a TOML file overriding the built-in
	// blocklist.
	PatternsFile string `envconfig:"ADBLOCK_PATTERNS_FILE" default:""`
}

// CatalogConfig holds the app-catalog configuration.
type CatalogConfig struct {
	// File optionally points at a YAML catalog overriding the embedded one.
	File string `envconfig:"CATALOG_FILE" default:""`
}

// IconsConfig holds custom-icon upload configuration.
type IconsConfig struct {
	Dir string `envconfig:"ICONS_DIR" default:"icons"`
}

// LifecycleConfig controls process lifecycle conventions.
type LifecycleConfig struct {
	// KeepAliveAllClosed keeps the control process alive after every surface
	// closes, pending reactivation (the dock/taskbar convention). Resolved
	// from the platform when unset.
	KeepAliveAllClosed bool `envconfig:"KEEP_ALIVE_ALL_CLOSED" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Path: "vera-desktop.db",
		},
		AI: AIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4-turbo-preview",
			MaxTokens:   2000,
			Temperature: 0.7,
		},
		Icons: IconsConfig{
			Dir: "icons",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
