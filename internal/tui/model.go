// Package tui is the interactive terminal view served over SSH.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/liquidity"
	"liquidity-monitor/internal/report"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	historyWindow = 90
	loadTimeout   = 10 * time.Second
)

// Source is what the terminal view reads.
type Source interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	NetLiquidityHistory(ctx context.Context, window int) ([]domain.Point, error)
}

type loadedMsg struct {
	snapshot domain.Snapshot
	history  []domain.Point
	err      error
	at       time.Time
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sparkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	regimeStyles = map[domain.Regime]lipgloss.Style{
		domain.RegimeExpanding:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		domain.RegimeContracting: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		domain.RegimeNeutral:     lipgloss.NewStyle().Bold(true),
	}
)

// Model shows the liquidity table, the net liquidity trend and the regime.
// r reloads from the store, q quits.
type Model struct {
	source  Source
	catalog domain.Catalog

	table   table.Model
	history []domain.Point
	impulse *domain.Impulse
	err     error
	loading bool
	updated time.Time

	width  int
	height int
}

func NewModel(source Source, catalog domain.Catalog) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Metric", Width: 26},
			{Title: "Latest", Width: 10},
			{Title: "As Of", Width: 12},
			{Title: "1W Chg", Width: 10},
			{Title: "1M Chg", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(len(catalog.DisplayOrder)+1),
	)
	return &Model{source: source, catalog: catalog, table: t, loading: true}
}

// SetSize records the terminal size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) Init() tea.Cmd {
	return m.load()
}

func (m *Model) load() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		snap, err := source.Snapshot(ctx)
		if err != nil {
			return loadedMsg{err: err, at: time.Now()}
		}
		history, err := source.NetLiquidityHistory(ctx, historyWindow)
		return loadedMsg{snapshot: snap, history: history, err: err, at: time.Now()}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, m.load()
		}

	case loadedMsg:
		m.loading = false
		m.updated = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.table.SetRows(m.rows(msg.snapshot))
			m.history = msg.history
			m.impulse = liquidity.ComputeImpulse(msg.history)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) rows(snap domain.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(m.catalog.DisplayOrder))
	for _, id := range m.catalog.DisplayOrder {
		entry, ok := snap[id]
		if !ok || !entry.HasCurrent() {
			continue
		}
		divisor := m.catalog.UnitFor(id).Divisor
		rows = append(rows, table.Row{
			entry.Label,
			report.FormatTrillions(entry.Current, divisor),
			entry.CurrentDate,
			report.FormatChange(entry.WeekChange, divisor),
			report.FormatChange(entry.MonthChange, divisor),
		})
	}
	return rows
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("US Liquidity Monitor"))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case m.loading && m.updated.IsZero():
		b.WriteString(dimStyle.Render("loading…"))
		b.WriteString("\n")
	case len(m.table.Rows()) == 0:
		b.WriteString(dimStyle.Render("No data found. Run fetch first."))
		b.WriteString("\n")
	default:
		b.WriteString(m.table.View())
		b.WriteString("\n\n")
		b.WriteString(m.trendView())
	}

	b.WriteString("\n")
	status := "r refresh • q quit"
	if m.loading {
		status = "refreshing… • q quit"
	} else if !m.updated.IsZero() {
		status = fmt.Sprintf("updated %s • %s", m.updated.UTC().Format("15:04:05 UTC"), status)
	}
	b.WriteString(dimStyle.Render(status))
	return b.String()
}

func (m *Model) trendView() string {
	regime := liquidity.ClassifyRegime(m.impulse)
	line := "Regime: " + regimeStyles[regime].Render(string(regime))
	if m.impulse != nil {
		line += fmt.Sprintf("  (30d %+.1fB, %+.2f%%)", m.impulse.ChangeBillions, m.impulse.ChangePct)
	}
	if len(m.history) == 0 {
		return line + "\n"
	}

	values := make([]float64, len(m.history))
	for i, p := range m.history {
		values[i] = p.Value
	}
	return fmt.Sprintf("Net Liquidity %s\n%s\n%s\n",
		sparkStyle.Render(report.Sparkline(values, report.DefaultSparkWidth)),
		dimStyle.Render(m.history[0].Date+" → "+m.history[len(m.history)-1].Date),
		line,
	)
}
