// Package config loads the YAML configuration: logging, storage paths,
// trading defaults, and the ordered list of brokerage accounts.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the alerter bot.
type Config struct {
	Logging  Logging   `yaml:"logging"`
	Storage  Storage   `yaml:"storage"`
	Trading  Trading   `yaml:"trading"`
	Accounts []Account `yaml:"accounts"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir     string `yaml:"data_dir"`
	JournalPath string `yaml:"journal_path"`
}

// Trading defines message-interpretation defaults shared by all accounts.
type Trading struct {
	// ExpiryMode is "same_day" or "next_day" and controls the default
	// expiry for messages that carry no date token.
	ExpiryMode string `yaml:"expiry_mode"`
	// Symbols is the default underlying whitelist; accounts may override.
	Symbols []string `yaml:"symbols"`
}

// Account configures one brokerage account. Accounts are processed in the
// order they appear.
type Account struct {
	Name       string `yaml:"name"`
	Driver     string `yaml:"driver"` // "ibkr" or "alpaca"
	UseOptions bool   `yaml:"use_options"`

	Sizing              Sizing   `yaml:"sizing"`
	MaxFillAllowancePct float64  `yaml:"max_fill_allowance_pct"`
	Symbols             []string `yaml:"symbols"` // whitelist override

	IBKR   IBKR   `yaml:"ibkr"`
	Alpaca Alpaca `yaml:"alpaca"`
}

// Sizing holds the per-account contract-count tiers.
type Sizing struct {
	Light   int `yaml:"light"`
	Regular int `yaml:"regular"`
	Lotto   int `yaml:"lotto"`
}

// IBKR holds Client Portal gateway connection parameters.
type IBKR struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials for the Alpaca API.
type Alpaca struct {
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
	Paper  bool   `yaml:"paper"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.Storage.JournalPath = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK) apply to
	// every alpaca account that doesn't set its own credentials.
	key := os.Getenv("APCA_API_KEY_ID")
	secret := os.Getenv("APCA_API_SECRET_KEY")
	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		if a.Driver != "alpaca" {
			continue
		}
		if key != "" && a.Alpaca.Key == "" {
			a.Alpaca.Key = key
		}
		if secret != "" && a.Alpaca.Secret == "" {
			a.Alpaca.Secret = secret
		}
	}

	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		if a.Driver != "ibkr" {
			continue
		}
		if v := os.Getenv("IBKR_GATEWAY_HOST"); v != "" {
			a.IBKR.Host = v
		}
		if v := os.Getenv("IBKR_GATEWAY_PORT"); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				a.IBKR.Port = port
			}
		}
	}
}

// validate fills defaults and rejects configs no account could run with.
func validate(cfg *Config) error {
	if cfg.Trading.ExpiryMode == "" {
		cfg.Trading.ExpiryMode = "same_day"
	}
	if cfg.Trading.ExpiryMode != "same_day" && cfg.Trading.ExpiryMode != "next_day" {
		return fmt.Errorf("trading.expiry_mode must be same_day or next_day, got %q", cfg.Trading.ExpiryMode)
	}
	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}

	seen := make(map[string]bool, len(cfg.Accounts))
	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		if a.Name == "" {
			return fmt.Errorf("accounts[%d]: name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate account name %q", a.Name)
		}
		seen[a.Name] = true

		if a.MaxFillAllowancePct < 0 {
			return fmt.Errorf("account %s: max_fill_allowance_pct must be non-negative", a.Name)
		}
		if a.Sizing.Light < 0 || a.Sizing.Regular < 0 || a.Sizing.Lotto < 0 {
			return fmt.Errorf("account %s: sizing tiers must be non-negative", a.Name)
		}
		if a.Driver == "ibkr" && a.IBKR.Host == "" {
			a.IBKR.Host = "localhost"
		}
		if a.Driver == "ibkr" && a.IBKR.Port == 0 {
			a.IBKR.Port = 5000
		}
	}
	return nil
}
