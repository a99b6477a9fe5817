package domain

import (
	"time"

	"github.com/guregu/null/v6"
)

// TableRow is one display row of the US liquidity table, in trillions with
// changes in billions.
type TableRow struct {
	SeriesID    string     `json:"series_id"`
	Label       string     `json:"label"`
	Current     float64    `json:"current"`
	CurrentDate string     `json:"current_date"`
	WeekChange  null.Float `json:"week_change"`
	MonthChange null.Float `json:"month_change"`
}

// Summary holds the headline cards of the dashboard. Absent cards are null.
type Summary struct {
	NetLiquidity        null.Float `json:"net_liquidity"`
	BTCPrice            null.Float `json:"btc_price"`
	BTC30dPct           null.Float `json:"btc_30d_pct"`
	ETHPrice            null.Float `json:"eth_price"`
	ETH30dPct           null.Float `json:"eth_30d_pct"`
	StablecoinTotal     null.Float `json:"stablecoin_total"`
	Stablecoin30dChange null.Float `json:"stablecoin_30d_change"`
	GlobalLiquidity     null.Float `json:"global_liquidity"`
	Global30dPct        null.Float `json:"global_30d_pct"`
	AltcoinMcap         null.Float `json:"altcoin_mcap"`
	Altcoin30dPct       null.Float `json:"altcoin_30d_pct"`
	FinancialConditions null.Float `json:"financial_conditions"`
}

// Dashboard is everything the presentation layers render.
type Dashboard struct {
	Table           []TableRow `json:"table"`
	Snapshot        Snapshot   `json:"snapshot"`
	NetLiquidity    []Point    `json:"chart_net_liq"`
	GlobalLiquidity []Point    `json:"chart_global_liq"`
	Stablecoins     []Point    `json:"chart_stablecoin"`
	Altcoins        []Point    `json:"chart_altcoins"`
	BTC             []Point    `json:"chart_btc"`
	ETH             []Point    `json:"chart_eth"`
	Conditions      []Point    `json:"chart_nfci"`
	Impulse         *Impulse   `json:"impulse"`
	Regime          Regime     `json:"regime"`
	Summary         Summary    `json:"summary"`
	GeneratedAt     string     `json:"generated_at"`
}

// GeneratedAtLayout renders Dashboard.GeneratedAt.
const GeneratedAtLayout = "2006-01-02 15:04 UTC"

// SeriesRefresh is the outcome of refreshing one series.
type SeriesRefresh struct {
	Source       string `json:"source"`
	Observations int    `json:"observations"`
	Upserted     int    `json:"upserted"`
	Error        string `json:"error,omitempty"`
}

// RefreshResult summarises a fetch-and-upsert cycle.
type RefreshResult struct {
	RunID     string                   `json:"run_id"`
	Series    map[string]SeriesRefresh `json:"series"`
	Total     int                      `json:"total"`
	Global    *GlobalMarket            `json:"global,omitempty"`
	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
}
