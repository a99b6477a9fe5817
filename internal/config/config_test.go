package config

import (
	"os"
	"path/filepath"
	"testing"

	"liquidity-monitor/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FRED_API_KEY", "COINGECKO_API_KEY", "DATABASE_URL", "REDIS_URL", "HTTP_ADDR",
		"REFRESH_CRON", "SSH_PORT", "SSH_HOST_KEY_PATH", "TELEGRAM_BOT_TOKEN", "SITE_OUTPUT",
		"CATALOG_FILE", "LOG_LEVEL", "LOG_ENCODING", "HISTORY_WINDOW", "CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.DatabaseURL != "liquidity.db" {
		t.Fatalf("expected default database, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":5050" || cfg.SSHPort != 2323 {
		t.Fatalf("unexpected listen defaults: %s %d", cfg.HTTPAddr, cfg.SSHPort)
	}
	if cfg.HistoryWindow != 2000 {
		t.Fatalf("expected default history window 2000, got %d", cfg.HistoryWindow)
	}
	if cfg.SiteOutput != "docs/index.html" {
		t.Fatalf("unexpected site output: %s", cfg.SiteOutput)
	}
	if cfg.RedisURL != "" {
		t.Fatalf("redis should stay disabled, got %s", cfg.RedisURL)
	}
	if len(cfg.Warnings) != 2 {
		t.Fatalf("expected warnings for FRED key and redis, got %v", cfg.Warnings)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRED_API_KEY", "fred")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("SSH_PORT", "2222")
	t.Setenv("HISTORY_WINDOW", "90")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg := Load()
	if cfg.FREDAPIKey != "fred" || cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SSHPort != 2222 || cfg.HistoryWindow != 90 {
		t.Fatalf("unexpected numeric settings: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if len(cfg.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", cfg.Warnings)
	}

	t.Setenv("HISTORY_WINDOW", "bad")
	cfg = Load()
	if cfg.HistoryWindow != 2000 {
		t.Fatalf("invalid history window should fall back to default, got %d", cfg.HistoryWindow)
	}
}

func TestCatalogDefault(t *testing.T) {
	cfg := &Config{}
	catalog, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.USSeries) != len(domain.DefaultCatalog().USSeries) {
		t.Fatalf("expected built-in catalog")
	}
}

func TestLoadCatalogOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `
alt_basket: [SOL_MCAP, XRP_MCAP]
alt_anchor: ""
stablecoins: [USDT_MCAP]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.AltBasket) != 2 || catalog.AltAnchor != "SOL_MCAP" {
		t.Fatalf("unexpected alt settings: %+v %s", catalog.AltBasket, catalog.AltAnchor)
	}
	if len(catalog.Stablecoins) != 1 {
		t.Fatalf("unexpected stablecoins: %v", catalog.Stablecoins)
	}
	if len(catalog.USSeries) != 5 {
		t.Fatal("keys absent from the file should keep built-in values")
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("alt_basket: {"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected parse error")
	}
}
