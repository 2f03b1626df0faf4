package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	ProxyCheck ProxyCheckConfig
	Profiles   ProfilesConfig
	Window     WindowConfig
	Browser    BrowserConfig
}

// ServerConfig holds HTTP server configuration. CORS_ORIGINS is a
// comma-separated list; "*" allows every origin.
type ServerConfig struct {
	Port         string   `envconfig:"PORT" default:"8000"`
	Host         string   `envconfig:"HOST" default:"0.0.0.0"`
	AllowOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// GlobalRequestsPerSecond caps all clients together; 0 disables the cap
	GlobalRequestsPerSecond int `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"1000"`
	GlobalBurst             int `envconfig:"RATE_LIMIT_GLOBAL_BURST" default:"2000"`
}

// ProxyCheckConfig holds proxy verification settings.
type ProxyCheckConfig struct {
	Attempts   int           `envconfig:"PROXY_CHECK_ATTEMPTS" default:"10"`
	Delay      time.Duration `envconfig:"PROXY_CHECK_DELAY" default:"1s"`
	Timeout    time.Duration `envconfig:"PROXY_CHECK_TIMEOUT" default:"5s"`
	Target     string        `envconfig:"PROXY_CHECK_TARGET" default:"api.ipify.org:443"`
	ServerName string        `envconfig:"PROXY_CHECK_SERVER_NAME" default:"api.ipify.org"`
	Path       string        `envconfig:"PROXY_CHECK_PATH" default:"/?format=json"`
}

// ProfilesConfig selects the profile store. A non-empty RemoteURL selects
// the REST store; otherwise profiles are read from Dir.
type ProfilesConfig struct {
	Dir       string  `envconfig:"PROFILES_DIR" default:"./profiles"`
	RemoteURL string  `envconfig:"PROFILES_REMOTE_URL"`
	Token     string  `envconfig:"PROFILES_TOKEN"`
	RateLimit float64 `envconfig:"PROFILES_RATE_LIMIT" default:"20"`
}

// WindowConfig holds the initial headless window size.
type WindowConfig struct {
	Width  int `envconfig:"WINDOW_WIDTH" default:"1280"`
	Height int `envconfig:"WINDOW_HEIGHT" default:"800"`
}

// BrowserConfig holds page loading settings.
type BrowserConfig struct {
	SearchURL   string        `envconfig:"SEARCH_URL" default:"https://duckduckgo.com/?q="`
	UserAgent   string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) ProfileDeck/1.0"`
	LoadTimeout time.Duration `envconfig:"LOAD_TIMEOUT" default:"30s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.ProxyCheck.Attempts < 1 {
		return fmt.Errorf("PROXY_CHECK_ATTEMPTS must be at least 1, got %d", c.ProxyCheck.Attempts)
	}
	if c.ProxyCheck.Timeout <= 0 {
		return fmt.Errorf("PROXY_CHECK_TIMEOUT must be positive, got %s", c.ProxyCheck.Timeout)
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return fmt.Errorf("window size must not be negative, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			Host:         "0.0.0.0",
			AllowOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:       100,
			Burst:                   200,
			Enabled:                 true,
			GlobalRequestsPerSecond: 1000,
			GlobalBurst:             2000,
		},
		ProxyCheck: ProxyCheckConfig{
			Attempts:   10,
			Delay:      time.Second,
			Timeout:    5 * time.Second,
			Target:     "api.ipify.org:443",
			ServerName: "api.ipify.org",
			Path:       "/?format=json",
		},
		Profiles: ProfilesConfig{
			Dir:       "./profiles",
			RateLimit: 20,
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 800,
		},
		Browser: BrowserConfig{
			SearchURL:   "https://duckduckgo.com/?q=",
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) ProfileDeck/1.0",
			LoadTimeout: 30 * time.Second,
		},
	}
}
