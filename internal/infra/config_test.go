package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Trading.Symbol = "LTCUSDT"
	cfg.Trading.Leverage = 20
	cfg.Trading.RiskPerTrade = 0.9
	cfg.Trading.InitialStopPct = 0.02
	cfg.Trading.TrailPct = 0.02
	cfg.Trading.MinNotional = 20
	cfg.Trading.SignalIntervalMS = 100
	cfg.Trading.QueueSize = 1000
	cfg.Trading.DryRun = true
	return cfg
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing symbol", func(c *Config) { c.Trading.Symbol = "" }},
		{"leverage too low", func(c *Config) { c.Trading.Leverage = 0 }},
		{"leverage too high", func(c *Config) { c.Trading.Leverage = 126 }},
		{"zero risk", func(c *Config) { c.Trading.RiskPerTrade = 0 }},
		{"risk above one", func(c *Config) { c.Trading.RiskPerTrade = 2 }},
		{"zero stop pct", func(c *Config) { c.Trading.InitialStopPct = 0 }},
		{"trail pct at one", func(c *Config) { c.Trading.TrailPct = 1 }},
		{"zero interval", func(c *Config) { c.Trading.SignalIntervalMS = 0 }},
		{"zero queue size", func(c *Config) { c.Trading.QueueSize = 0 }},
		{"live without credentials", func(c *Config) { c.Trading.DryRun = false }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	yaml := `
app:
  name: "Trail Bot"
trading:
  symbol: "LTCUSDT"
  leverage: 10
  risk_per_trade: 0.5
  initial_stop_pct: 0.02
  trail_pct: 0.02
  min_notional: 20
  signal_interval_ms: 250
  queue_size: 500
  dry_run: true
logging:
  level: "debug"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Trading.Symbol != "LTCUSDT" || cfg.Trading.Leverage != 10 {
		t.Errorf("unexpected trading config: %+v", cfg.Trading)
	}
	if cfg.Trading.RiskPerTrade != 0.5 {
		t.Errorf("expected risk 0.5, got %g", cfg.Trading.RiskPerTrade)
	}
	if cfg.SignalInterval() != 250*time.Millisecond {
		t.Errorf("expected interval 250ms, got %s", cfg.SignalInterval())
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	yaml := `
api:
  binance:
    key: "file-key"
    secret: "file-secret"
trading:
  symbol: "LTCUSDT"
  leverage: 10
  risk_per_trade: 0.5
  initial_stop_pct: 0.02
  trail_pct: 0.02
  signal_interval_ms: 100
  queue_size: 100
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BINANCE_API_SECRET", "env-secret")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.Binance.Key != "env-key" || cfg.API.Binance.Secret != "env-secret" {
		t.Errorf("environment must override file credentials, got %+v", cfg.API.Binance)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
