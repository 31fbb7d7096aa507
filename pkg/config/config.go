// Package config loads the site proxy configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Tenant modes.
const (
	ModeSingleTenant = "single-tenant"
	ModeMultiTenant  = "multi-tenant"
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the deployment configuration.
type Config struct {
	// Content API
	APIURL     string `mapstructure:"CH_API_URL"`
	APIToken   string `mapstructure:"CH_API_TOKEN"`
	APIRetries int    `mapstructure:"CH_API_RETRIES"`

	// Caching; CacheTTL <= 0 disables caching
	CacheTTL   int    `mapstructure:"CH_CACHE_TTL"`
	VersionTTL int    `mapstructure:"CH_VERSION_TTL"`
	WarmPaths  string `mapstructure:"CH_WARM_PATHS"`

	// Presentation
	Theme string `mapstructure:"CH_THEME"`

	// Cache store
	CacheBackend  string `mapstructure:"CACHE_BACKEND"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Server
	Port      string `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

var defaults = map[string]any{
	"CH_API_URL":     "http://localhost:8000",
	"CH_API_TOKEN":   "",
	"CH_API_RETRIES": 0,
	"CH_CACHE_TTL":   300,
	"CH_VERSION_TTL": 0,
	"CH_WARM_PATHS":  "",
	"CH_THEME":       "default",
	"CACHE_BACKEND":  BackendRedis,
	"REDIS_URL":      "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"PORT":           "8080",
	"LOG_LEVEL":      "info",
	"LOG_PRETTY":     false,
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first for local development; variables already
// set in the environment win.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return load()
}

// LoadFile is Load with an explicit env file.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return load()
}

func load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.APIToken = strings.TrimSpace(cfg.APIToken)
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the proxy cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("CH_API_URL %q is not an absolute URL", c.APIURL))
	}
	if c.APIRetries < 0 {
		errs = append(errs, fmt.Errorf("CH_API_RETRIES must not be negative, got %d", c.APIRetries))
	}
	if c.VersionTTL < 0 {
		errs = append(errs, fmt.Errorf("CH_VERSION_TTL must not be negative, got %d", c.VersionTTL))
	}
	switch c.CacheBackend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.CacheBackend))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}

	return errors.Join(errs...)
}

// Mode reports whether the deployment serves one church (fixed token) or
// resolves the church from the request host.
func (c *Config) Mode() string {
	if c.APIToken != "" {
		return ModeSingleTenant
	}
	return ModeMultiTenant
}

// CacheTTLDuration returns the content TTL; <= 0 means caching is disabled.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// APIAttempts returns how many times an upstream request is tried,
// counting the first attempt.
func (c *Config) APIAttempts() int {
	return c.APIRetries + 1
}

// VersionTTLDuration returns the version counter TTL; 0 means no expiry.
func (c *Config) VersionTTLDuration() time.Duration {
	return time.Duration(c.VersionTTL) * time.Second
}

// String implements fmt.Stringer with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Mode: %s\n", c.Mode()))
	sb.WriteString(fmt.Sprintf("  APIURL: %s\n", c.APIURL))
	sb.WriteString(fmt.Sprintf("  APIToken: %s\n", mask(c.APIToken)))
	sb.WriteString(fmt.Sprintf("  APIRetries: %d\n", c.APIRetries))
	sb.WriteString(fmt.Sprintf("  CacheTTL: %ds\n", c.CacheTTL))
	sb.WriteString(fmt.Sprintf("  VersionTTL: %ds\n", c.VersionTTL))
	sb.WriteString(fmt.Sprintf("  WarmPaths: %s\n", c.WarmPaths))
	sb.WriteString(fmt.Sprintf("  Theme: %s\n", c.Theme))
	sb.WriteString(fmt.Sprintf("  CacheBackend: %s\n", c.CacheBackend))
	sb.WriteString(fmt.Sprintf("  RedisURL: %s\n", c.RedisURL))
	sb.WriteString(fmt.Sprintf("  RedisPassword: %s\n", mask(c.RedisPassword)))
	sb.WriteString(fmt.Sprintf("  RedisDB: %d\n", c.RedisDB))
	sb.WriteString(fmt.Sprintf("  Port: %s\n", c.Port))
	sb.WriteString(fmt.Sprintf("  LogLevel: %s\n", c.LogLevel))
	return sb.String()
}

func mask(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	return "********"
}
