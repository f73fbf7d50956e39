package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Exchange.Name != "delta" || cfg.Exchange.Timeout != 5*time.Second {
		t.Errorf("unexpected exchange config %+v", cfg.Exchange)
	}
	if len(cfg.Exchange.QuoteAssets) != 2 || cfg.Exchange.QuoteAssets[0] != "USD" {
		t.Errorf("quote_assets = %v", cfg.Exchange.QuoteAssets)
	}
	if cfg.Risk.DefaultMaxTradesPerDay != 5 || cfg.Risk.DefaultMaxDailyLoss != 300 {
		t.Errorf("unexpected risk defaults %+v", cfg.Risk)
	}
	if cfg.Execution.DefaultOrderType != "LIMIT" || !cfg.Execution.IntegerLots {
		t.Errorf("unexpected execution defaults %+v", cfg.Execution)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9100"
risk:
  default_max_trades_per_day: 3
exchange:
  quote_assets: [USDT]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOVERNOR_RISK_DEFAULT_BALANCE", "2500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Risk.DefaultMaxTradesPerDay != 3 {
		t.Errorf("max trades = %d", cfg.Risk.DefaultMaxTradesPerDay)
	}
	if cfg.Risk.DefaultBalance != 2500 {
		t.Errorf("env override not applied, balance = %v", cfg.Risk.DefaultBalance)
	}
	if len(cfg.Exchange.QuoteAssets) != 1 || cfg.Exchange.QuoteAssets[0] != "USDT" {
		t.Errorf("quote_assets = %v", cfg.Exchange.QuoteAssets)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "未找到配置文件") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	cfg.Server.Addr = ""
	cfg.Risk.DefaultBalance = 0
	cfg.Risk.DailyLossResetHour = 24

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.addr", "risk.default_balance", "risk.daily_loss_reset_hour"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
