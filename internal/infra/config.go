package infra

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the process. Loaded once at startup and
// treated as immutable for the process lifetime; secrets are overridden from
// the environment after the file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Binance struct {
			Key        string `yaml:"key"`
			Secret     string `yaml:"secret"`
			UseTestnet bool   `yaml:"use_testnet"`
		} `yaml:"binance"`
	} `yaml:"api"`

	Trading struct {
		Symbol           string  `yaml:"symbol"`
		Leverage         int     `yaml:"leverage"`
		RiskPerTrade     float64 `yaml:"risk_per_trade"`
		InitialStopPct   float64 `yaml:"initial_stop_pct"`
		TrailPct         float64 `yaml:"trail_pct"`
		MinNotional      float64 `yaml:"min_notional"`
		SignalIntervalMS int     `yaml:"signal_interval_ms"`
		QueueSize        int     `yaml:"queue_size"`
		DryRun           bool    `yaml:"dry_run"`
	} `yaml:"trading"`

	Storage struct {
		Path string `yaml:"path"` // journal DB path; empty resolves a per-user default
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file. A .env file next to the
// binary is loaded first so credentials never need to live in the YAML.
func LoadConfig(path string) (*Config, error) {
	// Missing .env is fine; the variables may come from the real environment.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// SignalInterval returns the trading loop period.
func (c *Config) SignalInterval() time.Duration {
	return time.Duration(c.Trading.SignalIntervalMS) * time.Millisecond
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	t := &c.Trading

	if t.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if t.Leverage < 1 || t.Leverage > 125 {
		return fmt.Errorf("leverage must be in [1, 125], got %d", t.Leverage)
	}
	if t.RiskPerTrade <= 0 || t.RiskPerTrade > 1 {
		return fmt.Errorf("risk_per_trade must be in (0, 1], got %g", t.RiskPerTrade)
	}
	if t.InitialStopPct <= 0 || t.InitialStopPct >= 1 {
		return fmt.Errorf("initial_stop_pct must be in (0, 1), got %g", t.InitialStopPct)
	}
	if t.TrailPct <= 0 || t.TrailPct >= 1 {
		return fmt.Errorf("trail_pct must be in (0, 1), got %g", t.TrailPct)
	}
	if t.SignalIntervalMS <= 0 {
		return fmt.Errorf("signal interval must be positive")
	}
	if t.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}

	// Live trading needs credentials; dry-run reads public endpoints only.
	if !t.DryRun && (c.API.Binance.Key == "" || c.API.Binance.Secret == "") {
		return fmt.Errorf("binance API credentials are required unless dry_run is set")
	}

	return nil
}

// overrideWithEnv overwrites secrets from environment variables when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("BINANCE_API_KEY"); key != "" {
		cfg.API.Binance.Key = key
	}
	if secret := os.Getenv("BINANCE_API_SECRET"); secret != "" {
		cfg.API.Binance.Secret = secret
	}
}
