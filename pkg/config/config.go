// Copyright 2025 OpenGrantStack
//
// Package config loads the ledger's configuration surface from YAML,
// with ${ENV_VAR} substitution, mirroring the certen-validator
// anchor config loader's shape (struct tags, env substitution, a
// Load(path) entry point, and a Validate pass).
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LedgerSettings is the configuration surface the core consumes
// (spec.md §6.5).
type LedgerSettings struct {
	RequiredSignatures   int      `yaml:"required_signatures"`
	SupportedCurrencies  []string `yaml:"supported_currencies"`
	MaxTransactionAmount string   `yaml:"max_transaction_amount"`
	DefaultCurrency      string   `yaml:"default_currency"`
	EnableMultiSignature bool     `yaml:"enable_multi_signature"`
	EnableZKProofs       bool     `yaml:"enable_zk_proofs"`
}

// DatabaseSettings configures pkg/persistence's optional Postgres
// export sink.
type DatabaseSettings struct {
	DSN string `yaml:"dsn"`
}

// ChainSettings configures pkg/chainsink's EVM submission adapter.
type ChainSettings struct {
	RPCURL          string `yaml:"rpc_url"`
	ChainID         int64  `yaml:"chain_id"`
	AnchorAddress   string `yaml:"anchor_address"`
	ConfirmWaitSecs int    `yaml:"confirm_wait_secs"`
}

// MetricsSettings configures pkg/metrics's Prometheus registration.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the top-level configuration document.
type Config struct {
	Environment string          `yaml:"environment"`
	LogLevel    string          `yaml:"log_level"`
	Ledger      LedgerSettings  `yaml:"ledger"`
	Database    DatabaseSettings `yaml:"database"`
	Chain       ChainSettings   `yaml:"chain"`
	Metrics     MetricsSettings `yaml:"metrics"`
}

// Load reads and parses the YAML document at path, substituting
// ${ENV_VAR} references against the process environment before
// unmarshaling.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	substituted := envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		if v, ok := os.LookupEnv(string(name)); ok {
			return []byte(v)
		}
		return match
	})

	var cfg Config
	if err := yaml.Unmarshal(substituted, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration surface's own constraints
// (spec.md §6.5: requiredSignatures in [1,10]).
func (c *Config) Validate() error {
	if c.Ledger.RequiredSignatures < 1 || c.Ledger.RequiredSignatures > 10 {
		return fmt.Errorf("ledger.required_signatures must be in [1,10], got %d", c.Ledger.RequiredSignatures)
	}
	if c.Ledger.DefaultCurrency == "" {
		return fmt.Errorf("ledger.default_currency is required")
	}
	if c.Ledger.MaxTransactionAmount != "" {
		if _, err := ledger.ParseMoney(c.Ledger.MaxTransactionAmount); err != nil {
			return fmt.Errorf("ledger.max_transaction_amount: %w", err)
		}
	}
	return nil
}

// ToLedgerConfig converts the loaded settings into ledger.Config, the
// shape the core engine is constructed from.
func (c *Config) ToLedgerConfig() (ledger.Config, error) {
	var maxAmount ledger.Money
	if c.Ledger.MaxTransactionAmount != "" {
		parsed, err := ledger.ParseMoney(c.Ledger.MaxTransactionAmount)
		if err != nil {
			return ledger.Config{}, err
		}
		maxAmount = parsed
	}
	return ledger.Config{
		RequiredSignatures:   c.Ledger.RequiredSignatures,
		SupportedCurrencies:  c.Ledger.SupportedCurrencies,
		MaxTransactionAmount: maxAmount,
		DefaultCurrency:      c.Ledger.DefaultCurrency,
		EnableMultiSignature: c.Ledger.EnableMultiSignature,
		EnableZKProofs:       c.Ledger.EnableZKProofs,
	}, nil
}

// Default returns a conservative, ready-to-run configuration for local
// development and tests.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Ledger: LedgerSettings{
			RequiredSignatures:   2,
			SupportedCurrencies:  []string{"USD", "EUR", "GBP"},
			MaxTransactionAmount: "1000000.00",
			DefaultCurrency:      "USD",
			EnableMultiSignature: true,
			EnableZKProofs:       false,
		},
	}
}
