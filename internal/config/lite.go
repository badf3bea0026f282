// Package config provides configuration management for the opioid rotation
// servers. LiteConfig reads the environment only and suits the standalone MCP
// server; Manager layers a YAML file under environment overrides via viper.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/opioid-rotation-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the feedback database and exports

	// Cache settings
	CacheMaxItems int           // Maximum memoized results in memory
	CacheTTL      time.Duration // Result cache TTL
	RedisURL      string        // Optional shared cache tier

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text

	// Calculator defaults
	DefaultAPAPPerTabletMg   float64 // Assumed APAP per combination tablet
	DefaultCrossTolerancePct float64 // Applied when a request omits cross tolerance
}

// DefaultDataDir returns ~/.opioid-rotation-mcp.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".opioid-rotation-mcp")
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	return &LiteConfig{
		DataDir:                  DefaultDataDir(),
		CacheMaxItems:            1000,
		CacheTTL:                 time.Hour,
		Transport:                "stdio",
		HTTPPort:                 8081,
		LogLevel:                 "info",
		LogFormat:                "json",
		DefaultAPAPPerTabletMg:   325,
		DefaultCrossTolerancePct: 25,
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Invalid values are ignored and the default kept.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("OPIOID_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("OPIOID_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("OPIOID_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	cfg.RedisURL = os.Getenv("OPIOID_REDIS_URL")

	if v := os.Getenv("OPIOID_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("OPIOID_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 65535 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("OPIOID_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OPIOID_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	if v := os.Getenv("OPIOID_DEFAULT_APAP_MG"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1000 {
			cfg.DefaultAPAPPerTabletMg = f
		}
	}
	if v := os.Getenv("OPIOID_DEFAULT_CROSS_TOLERANCE_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 95 {
			cfg.DefaultCrossTolerancePct = f
		}
	}

	return cfg
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// CacheConfig maps the lite settings onto the shared cache configuration.
func (c *LiteConfig) CacheConfig() domain.CacheConfig {
	return domain.CacheConfig{
		Enabled:         c.CacheMaxItems > 0,
		Size:            c.CacheMaxItems,
		TTL:             c.CacheTTL,
		RedisURL:        c.RedisURL,
		MaxRetries:      3,
		PoolSize:        10,
		PoolTimeout:     4 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// CalculatorConfig returns the calculator defaults.
func (c *LiteConfig) CalculatorConfig() domain.CalculatorConfig {
	return domain.CalculatorConfig{
		DefaultAPAPPerTabletMg:   c.DefaultAPAPPerTabletMg,
		DefaultCrossTolerancePct: c.DefaultCrossTolerancePct,
	}
}
