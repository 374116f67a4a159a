// Package config loads the application configuration for the CLI and the
// HTTP server.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mysingle-lab/quant-backtest/pkg/errors"
	"github.com/mysingle-lab/quant-backtest/pkg/marketdata/provider"
)

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Address string `yaml:"address" validate:"required"`
}

// StoreConfig locates the two backing stores.
type StoreConfig struct {
	// SQLitePath is the primary run store. ":memory:" is accepted.
	SQLitePath string `yaml:"sqlite_path" validate:"required"`
	// DuckDBPath is the analytical cache. Empty disables caching.
	DuckDBPath string `yaml:"duckdb_path"`
}

// MarketDataConfig selects and paces the bar provider.
type MarketDataConfig struct {
	Provider          provider.ProviderType `yaml:"provider" validate:"required,oneof=polygon binance alpaca"`
	APIKey            string                `yaml:"api_key"`
	APISecret         string                `yaml:"api_secret"`
	RequestsPerMinute int                   `yaml:"requests_per_minute" validate:"gte=0"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	MarketData MarketDataConfig `yaml:"market_data"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Store: StoreConfig{
			SQLitePath: "quant-backtest.db",
			DuckDBPath: "quant-backtest.duckdb",
		},
		MarketData: MarketDataConfig{
			Provider:          provider.ProviderBinance,
			RequestsPerMinute: 60,
		},
	}
}

// Load reads and validates the YAML file at path. Missing fields fall back
// to the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMissingConfiguration, err, "failed to read config file %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to parse config file %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid application config", err)
	}

	return nil
}
