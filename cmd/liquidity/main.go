package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"liquidity-monitor/internal/app"
	"liquidity-monitor/internal/config"
	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/liquidity"
	"liquidity-monitor/internal/logging"
	"liquidity-monitor/internal/report"
	"liquidity-monitor/internal/service"
	"liquidity-monitor/internal/site"
	"liquidity-monitor/pkg/tracing"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	cmdFetch  = "fetch"
	cmdReport = "report"
	cmdRun    = "run"
	cmdSite   = "site"

	usage = "usage: liquidity [fetch|report|run|site [output]]"

	missingKeyMessage = "FRED_API_KEY not set. Get a free key at https://fred.stlouisfed.org/docs/api/api_key.html\n" +
		"Then: export FRED_API_KEY=your_key"
	noDataMessage = "No data found. Run fetch first."
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	newAppFunc     = app.New
	exitFunc       = os.Exit
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintf(stderr, "build logger: %v\n", err)
		exitFunc(1)
		return
	}
	defer logger.Sync()

	ctx := context.Background()
	tp, tracer, err := initTracerFunc(ctx, "liquidity-cli")
	if err != nil {
		logger.Error("failed to initialize tracer", zap.Error(err))
		exitFunc(1)
		return
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	if code := run(ctx, cfg, logger, tracer, os.Args[1:]); code != 0 {
		exitFunc(code)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, tracer trace.Tracer, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	cmd := args[0]
	switch cmd {
	case cmdFetch, cmdReport, cmdRun, cmdSite:
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s\n", cmd, usage)
		return 2
	}

	if (cmd == cmdFetch || cmd == cmdRun) && cfg.FREDAPIKey == "" {
		fmt.Fprintln(stderr, missingKeyMessage)
		return 1
	}

	a, err := newAppFunc(ctx, cfg, logger, tracer)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer a.Close()

	switch cmd {
	case cmdFetch:
		return fetch(ctx, a)
	case cmdReport:
		return printReport(ctx, a)
	case cmdRun:
		if code := fetch(ctx, a); code != 0 {
			return code
		}
		fmt.Fprintln(stdout)
		return printReport(ctx, a)
	default:
		out := cfg.SiteOutput
		if len(args) > 1 {
			out = args[1]
		}
		return writeSite(ctx, a, logger, cfg.FREDAPIKey != "", out)
	}
}

func fetch(ctx context.Context, a *app.App) int {
	fmt.Fprintln(stdout, "Fetching from FRED API...")
	res, err := a.Ingest.FetchFRED(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "fetch failed: %v\n", err)
		return 1
	}
	printRefresh(a.Catalog, res)
	fmt.Fprintf(stdout, "Done. %d total rows upserted.\n", res.Total)
	return 0
}

// printRefresh lists FRED series in catalog order, then anything else sorted by id.
func printRefresh(catalog domain.Catalog, res domain.RefreshResult) {
	printed := make(map[string]bool, len(res.Series))
	line := func(id string) {
		r, ok := res.Series[id]
		if !ok || printed[id] {
			return
		}
		printed[id] = true
		fmt.Fprintf(stdout, "  %s (%s): %d observations, %d upserted\n", catalog.Label(id), id, r.Observations, r.Upserted)
	}
	for _, s := range catalog.FREDSeries() {
		line(s.ID)
	}
	rest := make([]string, 0, len(res.Series))
	for id := range res.Series {
		if !printed[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		line(id)
	}
}

func printReport(ctx context.Context, a *app.App) int {
	snap, err := a.Dashboards.Snapshot(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "report failed: %v\n", err)
		return 1
	}
	history, err := a.Dashboards.NetLiquidityHistory(ctx, service.ReportHistoryWindow)
	if err != nil {
		fmt.Fprintf(stderr, "report failed: %v\n", err)
		return 1
	}

	err = report.Write(stdout, report.Report{
		Catalog:  a.Catalog,
		Snapshot: snap,
		History:  history,
		Impulse:  liquidity.ComputeImpulse(history),
	})
	if errors.Is(err, report.ErrNoData) {
		fmt.Fprintln(stdout, noDataMessage)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "report failed: %v\n", err)
		return 1
	}
	return 0
}

func writeSite(ctx context.Context, a *app.App, logger *zap.Logger, withFRED bool, out string) int {
	refresh := a.Ingest.FetchCrypto
	if withFRED {
		refresh = a.Ingest.RefreshAll
	}
	if res, err := refresh(ctx); err != nil {
		logger.Warn("refresh failed, rendering stored data", zap.Error(err))
	} else {
		printRefresh(a.Catalog, res)
	}

	d, err := a.Dashboards.Dashboard(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "build dashboard: %v\n", err)
		return 1
	}
	n, err := site.WriteFile(out, d)
	if err != nil {
		fmt.Fprintf(stderr, "write site: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s (%d bytes)\n", out, n)
	return 0
}
