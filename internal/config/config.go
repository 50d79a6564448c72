// Package config provides configuration loading and validation for the
// ranking service. It uses koanf to merge environment variables with optional
// file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the ranking service.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (page cache)
	RedisURL     string `koanf:"redis_url"`
	CacheEnabled bool   `koanf:"cache_enabled"`
	CacheTTL     int    `koanf:"cache_ttl_seconds"`

	// Scoring calibration
	CalibrationPath           string `koanf:"calibration_path"`
	CalibrationReloadInterval int    `koanf:"calibration_reload_seconds"`

	// Candidate selection
	FeedWindowHours   int `koanf:"feed_window_hours"`
	FeedMaxCandidates int `koanf:"feed_max_candidates"`
	FeedPageSize      int `koanf:"feed_page_size"`

	// Tracing (OTLP)
	TracingEnabled  bool   `koanf:"tracing_enabled"`
	TracingEndpoint string `koanf:"tracing_endpoint"`
	TracingInsecure bool   `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrMissingRedisURL          = errors.New("REDIS_URL is required when cache is enabled")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
	ErrInvalidFeedWindow        = errors.New("FEED_WINDOW_HOURS must be positive")
	ErrInvalidFeedMaxCandidates = errors.New("FEED_MAX_CANDIDATES must be positive")
	ErrInvalidFeedPageSize      = errors.New("FEED_PAGE_SIZE must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort                     = 8080
	DefaultEnv                      = "development"
	DefaultCacheEnabled             = true
	DefaultCacheTTLSeconds          = 60
	DefaultCalibrationReloadSeconds = 60
	DefaultFeedWindowHours          = 72
	DefaultFeedMaxCandidates        = 500
	DefaultFeedPageSize             = 25
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Try FEEDRANK_PORT first, then PORT for platform compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"FEEDRANK_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	cacheTTL, cacheTTLErr := getEnvIntOrDefault("CACHE_TTL_SECONDS", k.Int("cache_ttl_seconds"), DefaultCacheTTLSeconds)
	if cacheTTLErr != nil {
		loadErrs = append(loadErrs, cacheTTLErr)
	}
	reloadSecs, reloadErr := getEnvIntOrDefault("CALIBRATION_RELOAD_SECONDS", k.Int("calibration_reload_seconds"), DefaultCalibrationReloadSeconds)
	if reloadErr != nil {
		loadErrs = append(loadErrs, reloadErr)
	}
	windowHours, windowErr := getEnvIntOrDefault("FEED_WINDOW_HOURS", k.Int("feed_window_hours"), DefaultFeedWindowHours)
	if windowErr != nil {
		loadErrs = append(loadErrs, windowErr)
	}
	maxCandidates, maxErr := getEnvIntOrDefault("FEED_MAX_CANDIDATES", k.Int("feed_max_candidates"), DefaultFeedMaxCandidates)
	if maxErr != nil {
		loadErrs = append(loadErrs, maxErr)
	}
	pageSize, pageErr := getEnvIntOrDefault("FEED_PAGE_SIZE", k.Int("feed_page_size"), DefaultFeedPageSize)
	if pageErr != nil {
		loadErrs = append(loadErrs, pageErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                      port,
		Env:                       getEnvOrDefaultMulti([]string{"FEEDRANK_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:               getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:                  getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		CacheEnabled:              getEnvBoolOrDefault("CACHE_ENABLED", k, "cache_enabled", DefaultCacheEnabled),
		CacheTTL:                  cacheTTL,
		CalibrationPath:           getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		CalibrationReloadInterval: reloadSecs,
		FeedWindowHours:           windowHours,
		FeedMaxCandidates:         maxCandidates,
		FeedPageSize:              pageSize,
		TracingEnabled:            getEnvBoolOrDefault("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingEndpoint:           getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingInsecure:           getEnvBoolOrDefault("TRACING_INSECURE", k, "tracing_insecure", false),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// CacheTTLDuration returns the cache TTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// CalibrationReloadDuration returns the calibration reload interval as a
// time.Duration.
func (c *Config) CalibrationReloadDuration() time.Duration {
	return time.Duration(c.CalibrationReloadInterval) * time.Second
}

// FeedWindow returns the candidate selection window as a time.Duration.
func (c *Config) FeedWindow() time.Duration {
	return time.Duration(c.FeedWindowHours) * time.Hour
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvBoolOrDefault returns the environment variable as bool if set,
// otherwise the koanf value if present in the file, or default. Unrecognized
// env values leave the lower-precedence value in place.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// Note: a zero value from a YAML file falls back to the default; zero is not
// expressible via config files.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present and
// that tuning values are sane. Returns a slice of validation errors (empty
// if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.CacheEnabled && c.RedisURL == "" {
		errs = append(errs, ErrMissingRedisURL)
	}
	if c.FeedWindowHours <= 0 {
		errs = append(errs, ErrInvalidFeedWindow)
	}
	if c.FeedMaxCandidates <= 0 {
		errs = append(errs, ErrInvalidFeedMaxCandidates)
	}
	if c.FeedPageSize <= 0 {
		errs = append(errs, ErrInvalidFeedPageSize)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// Credentials embedded in URLs are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                       fmt.Sprintf("%d", c.Port),
		"env":                        c.Env,
		"database_url":               maskURL(c.DatabaseURL),
		"redis_url":                  maskURL(c.RedisURL),
		"cache_enabled":              fmt.Sprintf("%t", c.CacheEnabled),
		"cache_ttl_seconds":          fmt.Sprintf("%d", c.CacheTTL),
		"calibration_path":           c.CalibrationPath,
		"calibration_reload_seconds": fmt.Sprintf("%d", c.CalibrationReloadInterval),
		"feed_window_hours":          fmt.Sprintf("%d", c.FeedWindowHours),
		"feed_max_candidates":        fmt.Sprintf("%d", c.FeedMaxCandidates),
		"feed_page_size":             fmt.Sprintf("%d", c.FeedPageSize),
		"tracing_enabled":            fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_endpoint":           c.TracingEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskURL masks the password in a connection URL. Supports postgres://,
// postgresql:// and redis:// schemes.
func maskURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
