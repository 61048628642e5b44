// Package config provides configuration loading from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// APIKeyEnv is the primary credential variable. Fallbacks are tried in order.
const APIKeyEnv = "GOOGLE_PLACES_API_KEY"

var apiKeyFallbacks = []string{"GOOGLE_API_KEY", "API_KEY"}

// Defaults
const (
	DefaultBaseURL             = "https://places.googleapis.com/v1"
	DefaultPageDelayMs         = 2100
	DefaultOutputDir           = "data"
	DefaultResultCacheMaxItems = 64
	DefaultServeMaxPages       = 10
)

// Config holds all configuration for the CLI and serve mode.
type Config struct {
	APIKey              string        // GOOGLE_PLACES_API_KEY, then GOOGLE_API_KEY, then API_KEY
	APIKeySource        string        // name of the variable the key was read from
	BaseURL             string        // PLACES_BASE_URL, default "https://places.googleapis.com/v1"
	HTTPClientTimeout   time.Duration // HTTP_CLIENT_TIMEOUT_MS, default 0 (no timeout)
	PageDelay           time.Duration // PAGE_DELAY_MS, default 2100ms
	OutputDir           string        // OUTPUT_DIR, default "data"
	ResultCacheMaxItems int           // RESULT_CACHE_MAX_ITEMS, default 64
	ServeMaxPages       int           // SERVE_MAX_PAGES, upper bound for the search tool's max_pages, default 10

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, "text" or "json", default "text"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
// It never fails; call Validate before using the result.
func Load() *Config {
	key, source := lookupAPIKey()
	return &Config{
		APIKey:              key,
		APIKeySource:        source,
		BaseURL:             getEnvString("PLACES_BASE_URL", DefaultBaseURL),
		HTTPClientTimeout:   getEnvDurationMs("HTTP_CLIENT_TIMEOUT_MS", 0),
		PageDelay:           getEnvDurationMs("PAGE_DELAY_MS", DefaultPageDelayMs),
		OutputDir:           getEnvString("OUTPUT_DIR", DefaultOutputDir),
		ResultCacheMaxItems: getEnvInt("RESULT_CACHE_MAX_ITEMS", DefaultResultCacheMaxItems),
		ServeMaxPages:       getEnvInt("SERVE_MAX_PAGES", DefaultServeMaxPages),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// ConfigError reports missing or invalid configuration. It is always fatal
// and detected before any network request.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the loaded values. The first problem found is returned.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &ConfigError{
			Field:   APIKeyEnv,
			Message: fmt.Sprintf("API key not set (also checked %s)", strings.Join(apiKeyFallbacks, ", ")),
		}
	}
	if c.BaseURL == "" {
		return &ConfigError{Field: "PLACES_BASE_URL", Message: "must not be empty"}
	}
	if c.PageDelay < 0 {
		return &ConfigError{Field: "PAGE_DELAY_MS", Message: "must not be negative"}
	}
	if c.HTTPClientTimeout < 0 {
		return &ConfigError{Field: "HTTP_CLIENT_TIMEOUT_MS", Message: "must not be negative"}
	}
	if c.ResultCacheMaxItems < 1 {
		return &ConfigError{Field: "RESULT_CACHE_MAX_ITEMS", Message: "must be at least 1"}
	}
	if c.ServeMaxPages < 1 {
		return &ConfigError{Field: "SERVE_MAX_PAGES", Message: "must be at least 1"}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return &ConfigError{Field: "LOG_FORMAT", Message: fmt.Sprintf("unknown format %q (want text or json)", c.LogFormat)}
	}
	return nil
}

func lookupAPIKey() (string, string) {
	for _, name := range append([]string{APIKeyEnv}, apiKeyFallbacks...) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, name
		}
	}
	return "", ""
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
