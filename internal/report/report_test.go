package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"liquidity-monitor/internal/domain"

	"github.com/guregu/null/v6"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{"empty", nil, ""},
		{"extremes", []float64{0, 7}, "▁█"},
		{"midpoint", []float64{0, 3.5, 7}, "▁▄█"},
		{"flat", []float64{5, 5, 5}, "▁▁▁"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sparkline(tt.values, DefaultSparkWidth); got != tt.want {
				t.Fatalf("Sparkline(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestSparklineSamplesToWidth(t *testing.T) {
	values := make([]float64, 90)
	for i := range values {
		values[i] = float64(i)
	}
	got := Sparkline(values, DefaultSparkWidth)
	if n := utf8.RuneCountInString(got); n != DefaultSparkWidth {
		t.Fatalf("expected %d glyphs, got %d", DefaultSparkWidth, n)
	}
	if !strings.HasPrefix(got, "▁") {
		t.Fatalf("expected lowest glyph first, got %q", got)
	}
}

func TestFormatTrillions(t *testing.T) {
	if got := FormatTrillions(null.FloatFrom(7_039_000), 1e6); got != "$7.039T" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatTrillions(null.FloatFrom(500), 1e3); got != "$0.500T" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatTrillions(null.Float{}, 1e6); got != "—" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		v       null.Float
		divisor float64
		want    string
	}{
		{null.FloatFrom(7000), 1e6, "+7.0B"},
		{null.FloatFrom(-1500), 1e6, "-1.5B"},
		{null.FloatFrom(0), 1e3, "+0.0B"},
		{null.FloatFrom(-25), 1e3, "-25.0B"},
		{null.Float{}, 1e6, "—"},
	}
	for _, tt := range tests {
		if got := FormatChange(tt.v, tt.divisor); got != tt.want {
			t.Fatalf("FormatChange(%v, %v) = %q, want %q", tt.v, tt.divisor, got, tt.want)
		}
	}
}

func sampleReport() Report {
	return Report{
		Catalog: domain.DefaultCatalog(),
		Snapshot: domain.Snapshot{
			domain.SeriesFedBalanceSheet: {
				Label:       "Fed Balance Sheet",
				Current:     null.FloatFrom(7_039_000),
				CurrentDate: "2024-02-09",
				WeekChange:  null.FloatFrom(7000),
				MonthChange: null.FloatFrom(-30000),
			},
			domain.SeriesBankReserves: {Label: "Bank Reserves"},
			domain.SeriesNetLiquidity: {
				Label:       "Net Liquidity",
				Current:     null.FloatFrom(5_839_000),
				CurrentDate: "2024-02-09",
			},
		},
		History: []domain.Point{
			{Date: "2024-01-01", Value: 5_800_000},
			{Date: "2024-02-09", Value: 5_839_000},
		},
		Impulse: &domain.Impulse{ChangeBillions: 30, ChangePct: 0.52},
	}
}

func TestRender(t *testing.T) {
	out := Render(sampleReport())

	for _, want := range []string{
		"US Liquidity Monitor",
		"Source: FRED / St. Louis Fed",
		"Metric",
		"1M Chg",
		"Fed Balance Sheet",
		"$7.039T",
		"+7.0B",
		"-30.0B",
		"Net Liquidity",
		"$5.839T",
		"Net Liquidity Trend",
		"2024-01-01 → 2024-02-09",
		"Range: $5.800T – $5.839T",
		"Regime: expanding (30d impulse +30.0B, +0.52%)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected report to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Bank Reserves") {
		t.Fatal("series without a current value should be left out")
	}
}

func TestRenderWithoutHistory(t *testing.T) {
	r := sampleReport()
	r.History = nil
	r.Impulse = nil

	out := Render(r)
	if strings.Contains(out, "Net Liquidity Trend") {
		t.Fatal("trend panel should be omitted without history")
	}
	if !strings.Contains(out, "Regime: neutral") {
		t.Fatalf("expected neutral regime line\n%s", out)
	}
}

func TestWriteNoData(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Report{Catalog: domain.DefaultCatalog(), Snapshot: domain.Snapshot{
		domain.SeriesFedBalanceSheet: {Label: "Fed Balance Sheet"},
	}})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("nothing should be written without data")
	}

	if err := Write(&buf, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected report output")
	}
}
