package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleYAML = `
paper_trade: true
account_value: "10000"
api:
  base_url: "https://api.example.com"
  api_key: "test-key"
rate_limit:
  leaderboard_per_second: 2
  leaderboard_per_minute: 60
  position_per_second: 5
  position_per_minute: 150
  trade_per_second: 5
  trade_per_minute: 150
  trade_min_interval: 200ms
  persist_path: /tmp/ratelimit.json
  max_retry_attempts: 5
scoring:
  window_days: 30
  min_snapshots: 20
  max_avg_leverage: 10
  min_account_value: 1000
  top_n: 15
portfolio:
  temperature: 0.5
  adjust_threshold: 0.1
  min_trade_size: "10"
risk:
  max_traders: 15
  per_trader_cap: 0.15
  per_token_cap: 0.25
  max_long_fraction: 0.7
  max_short_fraction: 0.7
  max_aggregate_leverage: 3
execution:
  slippage_bps: 50
  stop_loss_bps: 500
  max_hold_duration: 168h
  poll_attempts: 5
  poll_interval: 2s
monitor:
  interval: 60s
  trailing_bps: 300
schedule:
  refresh_interval: 24h
  rebalance_interval: 4h
  monitor_interval: 60s
  ingest_interval: 5m
  tick_interval: 1s
  missed_tick_threshold: 24h
  shutdown_grace_period: 30s
  refresh_deadline: 25m
  rebalance_deadline: 10m
store:
  db_path: /tmp/hlcopy.db
logging:
  level: info
  format: json
health:
  enabled: true
  port: 8090
`

func writeTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempConfig(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.PaperTrade {
		t.Error("expected paper_trade = true")
	}
	if !cfg.AccountValue.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("AccountValue = %v, want 10000", cfg.AccountValue)
	}
	if cfg.Scoring.TopN != 15 {
		t.Errorf("Scoring.TopN = %d, want 15", cfg.Scoring.TopN)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeTempConfig(t)

	t.Setenv("HL_API_KEY", "overridden-key")
	t.Setenv("PAPER_TRADE", "false")
	t.Setenv("ACCOUNT_VALUE", "25000")
	t.Setenv("DB_PATH", "/var/lib/hlcopy/override.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.ApiKey != "overridden-key" {
		t.Errorf("ApiKey = %q, want overridden-key", cfg.API.ApiKey)
	}
	if cfg.PaperTrade {
		t.Error("expected PaperTrade overridden to false")
	}
	if !cfg.AccountValue.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("AccountValue = %v, want 25000", cfg.AccountValue)
	}
	if cfg.Store.DBPath != "/var/lib/hlcopy/override.db" {
		t.Errorf("DBPath = %q, want override", cfg.Store.DBPath)
	}
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty config")
	}
}

func TestValidateRejectsOutOfRangeCap(t *testing.T) {
	path := writeTempConfig(t)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Risk.PerTraderCap = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for per_trader_cap > 1")
	}
}
