// Package site renders the dashboard as a single self-contained HTML page.
package site

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"liquidity-monitor/internal/domain"
)

const (
	// DefaultOutput is where the static snapshot is written.
	DefaultOutput = "docs/index.html"

	dataPlaceholder = "__DATA_PLACEHOLDER__"
	livePlaceholder = "__LIVE_PLACEHOLDER__"
)

//go:embed templates/dashboard.html
var dashboardTemplate string

// Render bakes d into the dashboard page. A live page also shows a refresh
// button backed by POST /api/refresh.
func Render(d *domain.Dashboard, live bool) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode dashboard: %w", err)
	}
	html := strings.Replace(dashboardTemplate, dataPlaceholder, string(data), 1)
	html = strings.Replace(html, livePlaceholder, strconv.FormatBool(live), 1)
	return []byte(html), nil
}

// WriteFile renders a static page to path, creating its directory, and
// returns the number of bytes written.
func WriteFile(path string, d *domain.Dashboard) (int, error) {
	if path == "" {
		path = DefaultOutput
	}
	html, err := Render(d, false)
	if err != nil {
		return 0, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return len(html), nil
}
