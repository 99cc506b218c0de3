// Package config handles configuration loading for etfcompare.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/etfcompare/etfcompare/pkg/utils"
)

// Config represents the complete application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"    yaml:"database"`
	Catalog    CatalogConfig    `mapstructure:"catalog"     yaml:"catalog"`
	MarketData MarketDataConfig `mapstructure:"market_data" yaml:"market_data"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"    yaml:"analysis"`
	Server     ServerConfig     `mapstructure:"server"      yaml:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"     yaml:"logging"`
}

// DatabaseConfig holds price store settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // SQLite file, or ":memory:"
}

// CatalogConfig holds ETF catalog settings.
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // optional CSV seed file
}

// MarketDataConfig holds upstream data source settings.
type MarketDataConfig struct {
	Provider  string `mapstructure:"provider"   yaml:"provider"`   // "yahoo"
	CacheTTL  int    `mapstructure:"cache_ttl"  yaml:"cache_ttl"`  // seconds
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
}

// AnalysisConfig holds metric computation settings.
type AnalysisConfig struct {
	Benchmark         string  `mapstructure:"benchmark"          yaml:"benchmark"`
	RiskFreeRate      float64 `mapstructure:"risk_free_rate"     yaml:"risk_free_rate"` // annualized fraction
	DefaultPeriod     string  `mapstructure:"default_period"     yaml:"default_period"`
	ConcurrentFetches int     `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.etfcompare/config.yaml (home directory)
//  3. /etc/etfcompare/config.yaml (system)
//
// Environment variables override config file values.
// Format: ETFCOMPARE_<SECTION>_<KEY>, e.g., ETFCOMPARE_ANALYSIS_BENCHMARK
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".etfcompare"))
	v.AddConfigPath("/etc/etfcompare")

	v.SetEnvPrefix("ETFCOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("ETFCOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration, collecting every problem found.
func (c *Config) Validate() error {
	var err error

	if c.Database.Path == "" {
		err = multierr.Append(err, fmt.Errorf("database.path must not be empty"))
	}

	if c.MarketData.Provider != "yahoo" {
		err = multierr.Append(err, fmt.Errorf("unsupported market_data.provider %q", c.MarketData.Provider))
	}
	if c.MarketData.CacheTTL < 0 {
		err = multierr.Append(err, fmt.Errorf("market_data.cache_ttl must not be negative"))
	}
	if c.MarketData.RateLimit < 1 {
		err = multierr.Append(err, fmt.Errorf("market_data.rate_limit must be at least 1"))
	}

	if c.Analysis.RiskFreeRate < 0 || c.Analysis.RiskFreeRate >= 1 {
		err = multierr.Append(err, fmt.Errorf("analysis.risk_free_rate %v out of range [0, 1)", c.Analysis.RiskFreeRate))
	}
	if !utils.IsValidPeriod(c.Analysis.DefaultPeriod) {
		err = multierr.Append(err, fmt.Errorf("invalid analysis.default_period %q", c.Analysis.DefaultPeriod))
	}
	if c.Analysis.ConcurrentFetches < 1 {
		err = multierr.Append(err, fmt.Errorf("analysis.concurrent_fetches must be at least 1"))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid logging.level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("invalid logging.format %q", c.Logging.Format))
	}

	return err
}

// CacheTTL returns the market data cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.MarketData.CacheTTL) * time.Second
}

// DefaultDatabasePath returns the default SQLite location under the user's
// home directory.
func DefaultDatabasePath() string {
	return filepath.Join(homeDir(), ".etfcompare", "prices.db")
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", DefaultDatabasePath())

	// Catalog defaults (no seed file unless configured)
	v.SetDefault("catalog.path", "")

	// Market data defaults
	v.SetDefault("market_data.provider", "yahoo")
	v.SetDefault("market_data.cache_ttl", 900) // 15 minutes
	v.SetDefault("market_data.rate_limit", 5)

	// Analysis defaults
	v.SetDefault("analysis.benchmark", "SPY")
	v.SetDefault("analysis.risk_free_rate", 0.02)
	v.SetDefault("analysis.default_period", "5y")
	v.SetDefault("analysis.concurrent_fetches", 4)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
