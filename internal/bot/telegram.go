package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/report"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const replyTimeout = 15 * time.Second

type DashboardSource interface {
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
}

// StartTelegramBot starts long polling in the background and returns the
// bot so the caller can stop it. An empty token disables the bot.
func StartTelegramBot(token string, logger *zap.Logger, dashboards DashboardSource) (*tele.Bot, error) {
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := newBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}, dashboards)
	if err != nil {
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}

	logger.Info("Telegram bot started")
	go b.Start()
	return b, nil
}

func newBot(pref tele.Settings, dashboards DashboardSource) (*tele.Bot, error) {
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/liquidity", func(c tele.Context) error {
		d, err := loadDashboard(dashboards)
		if err != nil {
			return c.Send(fmt.Sprintf("Error loading liquidity data: %v", err))
		}
		return c.Send(formatLiquidity(d))
	})

	b.Handle("/regime", func(c tele.Context) error {
		d, err := loadDashboard(dashboards)
		if err != nil {
			return c.Send(fmt.Sprintf("Error loading liquidity data: %v", err))
		}
		return c.Send(formatRegime(d))
	})

	return b, nil
}

func loadDashboard(dashboards DashboardSource) (*domain.Dashboard, error) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	return dashboards.Dashboard(ctx)
}

func formatLiquidity(d *domain.Dashboard) string {
	if len(d.Table) == 0 {
		return "No data found. Run fetch first."
	}
	var b strings.Builder
	b.WriteString("US Liquidity\n")
	for _, row := range d.Table {
		fmt.Fprintf(&b, "%s: $%.3fT (%s)\n  1W %s  1M %s\n",
			row.Label, row.Current, row.CurrentDate,
			signedBillions(row.WeekChange.Ptr()), signedBillions(row.MonthChange.Ptr()))
	}
	if d.Summary.GlobalLiquidity.Valid {
		fmt.Fprintf(&b, "Global (Fed+ECB): $%.2fT\n", d.Summary.GlobalLiquidity.Float64)
	}
	if d.Summary.StablecoinTotal.Valid {
		fmt.Fprintf(&b, "Stablecoins: $%.1fB\n", d.Summary.StablecoinTotal.Float64)
	}
	b.WriteString(formatRegime(d))
	return b.String()
}

func formatRegime(d *domain.Dashboard) string {
	if d.Impulse == nil {
		return fmt.Sprintf("Regime: %s (not enough history for a 30d impulse)", d.Regime)
	}
	msg := fmt.Sprintf("Regime: %s\n30d impulse: %+.1fB (%+.2f%%)", d.Regime, d.Impulse.ChangeBillions, d.Impulse.ChangePct)
	if len(d.NetLiquidity) > 0 {
		values := make([]float64, len(d.NetLiquidity))
		for i, p := range d.NetLiquidity {
			values[i] = p.Value
		}
		msg += "\n" + report.Sparkline(values, report.DefaultSparkWidth)
	}
	return msg
}

func signedBillions(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%+.1fB", *v)
}
