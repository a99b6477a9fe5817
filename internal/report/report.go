// Package report renders the liquidity snapshot as a terminal report.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/liquidity"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/floats"
)

// ErrNoData is returned when the snapshot has no current value at all.
var ErrNoData = errors.New("no data found")

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sparkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// Report is what the terminal report shows.
type Report struct {
	Catalog  domain.Catalog
	Snapshot domain.Snapshot
	// History is the net liquidity history in millions, oldest first.
	History []domain.Point
	Impulse *domain.Impulse
}

// Write renders r to w. It returns ErrNoData when nothing has been fetched.
func Write(w io.Writer, r Report) error {
	if !r.Snapshot.AnyCurrent() {
		return ErrNoData
	}
	_, err := io.WriteString(w, Render(r))
	return err
}

// Render returns the report as a string.
func Render(r Report) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(
		titleStyle.Render("US Liquidity Monitor") + "\n" + dimStyle.Render("Source: FRED / St. Louis Fed"),
	))
	b.WriteString("\n")
	b.WriteString(renderTable(r.Catalog, r.Snapshot))
	b.WriteString("\n")

	if len(r.History) > 0 {
		b.WriteString("\n")
		b.WriteString(renderTrend(r.History))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(regimeLine(r.Impulse))
	b.WriteString("\n\n")
	return b.String()
}

func renderTable(catalog domain.Catalog, snap domain.Snapshot) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Metric", "Latest", "As Of", "1W Chg", "1M Chg").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch col {
			case 0:
				return cellStyle.Bold(true).Width(26)
			case 2:
				return cellStyle.Align(lipgloss.Center).Width(14)
			default:
				return cellStyle.Align(lipgloss.Right).Width(12)
			}
		})

	for _, id := range catalog.DisplayOrder {
		entry, ok := snap[id]
		if !ok || !entry.HasCurrent() {
			continue
		}
		divisor := catalog.UnitFor(id).Divisor
		if id == domain.SeriesNetLiquidity {
			t.Row("", "", "", "", "")
		}
		asOf := entry.CurrentDate
		if asOf == "" {
			asOf = missing
		}
		t.Row(
			entry.Label,
			FormatTrillions(entry.Current, divisor),
			asOf,
			colorChange(entry.WeekChange, divisor),
			colorChange(entry.MonthChange, divisor),
		)
	}
	return t.Render()
}

func colorChange(v null.Float, divisor float64) string {
	s := FormatChange(v, divisor)
	switch {
	case !v.Valid:
		return dimStyle.Render(s)
	case v.Float64 >= 0:
		return upStyle.Render(s)
	default:
		return downStyle.Render(s)
	}
}

func renderTrend(history []domain.Point) string {
	values := make([]float64, len(history))
	for i, p := range history {
		values[i] = p.Value
	}
	lo, hi := floats.Min(values), floats.Max(values)

	body := strings.Join([]string{
		sparkStyle.Render(Sparkline(values, DefaultSparkWidth)),
		dimStyle.Render(fmt.Sprintf("%s → %s", history[0].Date, history[len(history)-1].Date)),
		dimStyle.Render(fmt.Sprintf("Range: $%.3fT – $%.3fT", lo/1e6, hi/1e6)),
	}, "\n")
	return panelStyle.Render(titleStyle.Render("Net Liquidity Trend") + "\n" + body)
}

func regimeLine(impulse *domain.Impulse) string {
	regime := string(liquidity.ClassifyRegime(impulse))
	if impulse == nil {
		return fmt.Sprintf("Regime: %s", regime)
	}
	return fmt.Sprintf("Regime: %s (30d impulse %+.1fB, %+.2f%%)", regime, impulse.ChangeBillions, impulse.ChangePct)
}
