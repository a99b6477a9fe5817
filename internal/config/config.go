package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"liquidity-monitor/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	defaultDatabaseURL   = "liquidity.db"
	defaultHTTPAddr      = ":5050"
	defaultSSHPort       = 2323
	defaultSSHHostKey    = ".ssh/liquidity_ed25519"
	defaultSiteOutput    = "docs/index.html"
	defaultHistoryWindow = 2000
)

type Config struct {
	FREDAPIKey      string
	CoinGeckoAPIKey string

	DatabaseURL string
	RedisURL    string

	HTTPAddr    string
	CORSOrigins []string
	RefreshCron string

	SSHPort        int
	SSHHostKeyPath string

	TelegramBotToken string

	SiteOutput    string
	CatalogFile   string
	HistoryWindow int

	LogLevel    string
	LogEncoding string

	// Warnings collects notes about missing or invalid settings so callers
	// can log them once a logger exists.
	Warnings []string
}

func Load() *Config {
	cfg := &Config{
		FREDAPIKey:       strings.TrimSpace(os.Getenv("FRED_API_KEY")),
		CoinGeckoAPIKey:  strings.TrimSpace(os.Getenv("COINGECKO_API_KEY")),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		HTTPAddr:         strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		RefreshCron:      strings.TrimSpace(os.Getenv("REFRESH_CRON")),
		SSHHostKeyPath:   strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		SiteOutput:       strings.TrimSpace(os.Getenv("SITE_OUTPUT")),
		CatalogFile:      strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		LogLevel:         strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogEncoding:      strings.TrimSpace(os.Getenv("LOG_ENCODING")),
	}

	if cfg.FREDAPIKey == "" {
		cfg.warn("FRED_API_KEY not set, FRED series cannot be fetched")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.RedisURL == "" {
		cfg.warn("REDIS_URL not set, global market cache disabled")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = defaultSSHHostKey
	}
	if cfg.SiteOutput == "" {
		cfg.SiteOutput = defaultSiteOutput
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogEncoding == "" {
		cfg.LogEncoding = "console"
	}

	cfg.SSHPort = defaultSSHPort
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.SSHPort = n
		} else {
			cfg.warn(fmt.Sprintf("invalid SSH_PORT=%q, defaulting to %d", v, defaultSSHPort))
		}
	}

	cfg.HistoryWindow = defaultHistoryWindow
	if v := strings.TrimSpace(os.Getenv("HISTORY_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryWindow = n
		} else {
			cfg.warn(fmt.Sprintf("invalid HISTORY_WINDOW=%q, defaulting to %d", v, defaultHistoryWindow))
		}
	}

	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	return cfg
}

func (c *Config) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

// Catalog returns the built-in catalog, overlaid with CatalogFile when set.
func (c *Config) Catalog() (domain.Catalog, error) {
	if c.CatalogFile == "" {
		return domain.DefaultCatalog(), nil
	}
	return LoadCatalog(c.CatalogFile)
}

// LoadCatalog reads a YAML catalog. Keys absent from the file keep their
// built-in values.
func LoadCatalog(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	catalog := domain.DefaultCatalog()
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if catalog.AltAnchor == "" && len(catalog.AltBasket) > 0 {
		catalog.AltAnchor = catalog.AltBasket[0]
	}
	return catalog, nil
}
