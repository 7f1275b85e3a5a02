// Package config loads runtime configuration from a YAML file with
// environment overrides for connection strings.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dex-hook-stats/internal/oracle"
)

// Config is the full runtime configuration for the ingest service.
type Config struct {
	// PostgresDSN is the aggregate store connection string.
	PostgresDSN string `yaml:"postgres_dsn"`
	// ClickHouseDSN is the snapshot archive connection string.
	// Empty disables archiving.
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
	// WSEndpoint is the decoded event feed.
	WSEndpoint string `yaml:"ws_endpoint"`
	// MetricsAddr is the Prometheus HTTP address. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	Pricing PricingConfig `yaml:"pricing"`
}

// PricingConfig is the YAML shape of the oracle pricing rules.
type PricingConfig struct {
	ReferencePoolID      string   `yaml:"reference_pool_id"`
	StablecoinIsToken0   bool     `yaml:"stablecoin_is_token0"`
	WrappedNativeAddress string   `yaml:"wrapped_native_address"`
	StablecoinAddresses  []string `yaml:"stablecoin_addresses"`
	WhitelistTokens      []string `yaml:"whitelist_tokens"`
	MinimumNativeLocked  string   `yaml:"minimum_native_locked"`
}

func defaults() Config {
	return Config{
		MetricsAddr: ":9090",
		Pricing: PricingConfig{
			MinimumNativeLocked: "20",
		},
	}
}

// Load reads the YAML file at path, applies a .env file if present and
// then environment variable overrides, and validates the result.
func Load(path string) (Config, error) {
	// Missing .env is fine; env vars may come from the real environment.
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.ClickHouseDSN = v
	}
	if v := os.Getenv("WS_ENDPOINT"); v != "" {
		cfg.WSEndpoint = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PostgresDSN == "" {
		return errors.New("postgres_dsn is required")
	}
	if c.WSEndpoint == "" {
		return errors.New("ws_endpoint is required")
	}
	if c.Pricing.ReferencePoolID == "" {
		return errors.New("pricing.reference_pool_id is required")
	}
	if c.Pricing.WrappedNativeAddress == "" {
		return errors.New("pricing.wrapped_native_address is required")
	}
	if _, err := decimal.NewFromString(c.Pricing.MinimumNativeLocked); err != nil {
		return fmt.Errorf("pricing.minimum_native_locked: %w", err)
	}
	return nil
}

// OraclePricing converts the YAML pricing section into the oracle's
// runtime form.
func (c *Config) OraclePricing() oracle.PricingConfig {
	minLocked, _ := decimal.NewFromString(c.Pricing.MinimumNativeLocked)
	return oracle.PricingConfig{
		ReferencePoolID:      c.Pricing.ReferencePoolID,
		StablecoinIsToken0:   c.Pricing.StablecoinIsToken0,
		WrappedNativeAddress: c.Pricing.WrappedNativeAddress,
		StablecoinAddresses:  c.Pricing.StablecoinAddresses,
		WhitelistTokens:      c.Pricing.WhitelistTokens,
		MinimumNativeLocked:  minLocked,
	}
}
