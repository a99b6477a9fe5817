package domain

import (
	"time"

	"github.com/guregu/null/v6"
)

// SnapshotEntry is the point-in-time view of one series: the latest value
// and its changes against the values one week and one month earlier.
type SnapshotEntry struct {
	Label       string     `json:"label"`
	Current     null.Float `json:"current"`
	CurrentDate string     `json:"current_date,omitempty"`
	WeekAgo     null.Float `json:"week_ago"`
	MonthAgo    null.Float `json:"month_ago"`
	WeekChange  null.Float `json:"week_change"`
	MonthChange null.Float `json:"month_change"`
}

// HasCurrent reports whether the entry carries a latest value.
func (e SnapshotEntry) HasCurrent() bool {
	return e.Current.Valid
}

// Snapshot maps series ids (plus SeriesNetLiquidity) to their entries.
type Snapshot map[string]SnapshotEntry

// AnyCurrent reports whether at least one entry has a latest value.
func (s Snapshot) AnyCurrent() bool {
	for _, e := range s {
		if e.HasCurrent() {
			return true
		}
	}
	return false
}

// GlobalMarket is the point-in-time global crypto market snapshot.
type GlobalMarket struct {
	TotalMcap  float64   `json:"total_mcap"`
	BTCMcapPct float64   `json:"btc_mcap_pct"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Impulse is the 30-day change in net liquidity.
type Impulse struct {
	ChangeBillions float64 `json:"change_billions"`
	ChangePct      float64 `json:"change_pct"`
}

// Regime is a coarse classification of the liquidity trend.
type Regime string

const (
	RegimeExpanding   Regime = "expanding"
	RegimeContracting Regime = "contracting"
	RegimeNeutral     Regime = "neutral"
)
