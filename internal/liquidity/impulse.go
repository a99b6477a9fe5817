package liquidity

import (
	"fmt"
	"math"

	"liquidity-monitor/internal/domain"
)

const (
	impulseLookbackDays = 30

	// regimeThresholdBillions is the 30-day net liquidity change that
	// separates a neutral regime from an expanding or contracting one.
	regimeThresholdBillions = 20
)

// ComputeImpulse returns the change in net liquidity (millions in, billions
// out) between the newest point and the newest point at least 30 days older.
// history must be ascending with ISO dates, as the store guarantees; a
// malformed newest date panics. It returns nil with fewer than two points or
// when nothing is old enough.
func ComputeImpulse(history []domain.Point) *domain.Impulse {
	if len(history) < 2 {
		return nil
	}
	current := history[len(history)-1]
	currentDate, err := domain.ParseDate(current.Date)
	if err != nil {
		panic(fmt.Sprintf("liquidity: impulse history has malformed date: %v", err))
	}
	target := domain.DaysBefore(currentDate, impulseLookbackDays)

	var past *domain.Point
	for i := range history {
		if history[i].Date > target {
			break
		}
		past = &history[i]
	}
	if past == nil {
		return nil
	}

	change := current.Value - past.Value
	pct := 0.0
	if past.Value != 0 {
		pct = change / math.Abs(past.Value) * 100
	}
	return &domain.Impulse{
		ChangeBillions: Round(change/1000, 1),
		ChangePct:      Round(pct, 2),
	}
}

// ClassifyRegime maps an impulse to a regime. A nil impulse is neutral.
func ClassifyRegime(impulse *domain.Impulse) domain.Regime {
	switch {
	case impulse == nil:
		return domain.RegimeNeutral
	case impulse.ChangeBillions > regimeThresholdBillions:
		return domain.RegimeExpanding
	case impulse.ChangeBillions < -regimeThresholdBillions:
		return domain.RegimeContracting
	default:
		return domain.RegimeNeutral
	}
}
