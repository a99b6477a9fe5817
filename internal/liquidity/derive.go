// Package liquidity derives composite liquidity metrics from aligned series.
// Every function is pure: missing inputs yield an empty result, never an error.
package liquidity

import (
	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/series"
)

// reverseRepoScale converts RRPONTSYD (billions) to the millions used by
// WALCL and WTREGEN.
const reverseRepoScale = 1000

// NetLiquidity is fed - tga - rrp, with rrp given in billions.
func NetLiquidity(fed, tga, rrp float64) float64 {
	return fed - tga - rrp*reverseRepoScale
}

// NetLiquidityHistory computes net liquidity, in millions, on every date
// where all three components are present.
func NetLiquidityHistory(fed, tga, rrp series.Series) []domain.Point {
	dates := series.InnerJoin(fed, tga, rrp)
	out := make([]domain.Point, 0, len(dates))
	for _, d := range dates {
		f, _ := fed.Get(d)
		t, _ := tga.Get(d)
		r, _ := rrp.Get(d)
		out = append(out, domain.Point{Date: d, Value: NetLiquidity(f, t, r)})
	}
	return out
}

// GlobalLiquidityHistory combines the Fed balance sheet with the ECB balance
// sheet converted to USD, in trillions. Fed and ECB are inner-joined; the FX
// rate is forward-filled onto those dates.
func GlobalLiquidityHistory(fed, ecb, fx series.Series) []domain.Point {
	if ecb.Empty() || fx.Empty() {
		return []domain.Point{}
	}
	filled := series.ForwardFill(series.InnerJoin(fed, ecb), fx)
	out := make([]domain.Point, 0, len(filled))
	for _, f := range filled {
		fedT := fed.GetOrZero(f.Date) / 1e6
		ecbT := ecb.GetOrZero(f.Date) * f.Value / 1e6
		out = append(out, domain.Point{Date: f.Date, Value: Round(fedT+ecbT, 4)})
	}
	return out
}

// StablecoinHistory sums stablecoin market caps over the union of their
// dates, in billions. The first series is the base: without it there is no
// history.
func StablecoinHistory(base series.Series, others ...series.Series) []domain.Point {
	if base.Empty() {
		return []domain.Point{}
	}
	summed := series.UnionDefault(append([]series.Series{base}, others...)...)
	out := make([]domain.Point, 0, len(summed))
	for _, s := range summed {
		out = append(out, domain.Point{Date: s.Date, Value: Round(s.Total/1e9, 2)})
	}
	return out
}

// AltcoinScale estimates how much the untracked long tail adds to the
// tracked basket, from the global market snapshot and the basket sum on the
// anchor's latest date. It is 1 when no snapshot is given, when BTC market
// cap history is missing, or when the latest sum is not positive.
func AltcoinScale(anchor series.Series, basket []series.Series, global *domain.GlobalMarket, btcMcap series.Series) float64 {
	latest, ok := anchor.Latest()
	if global == nil || btcMcap.Empty() || !ok {
		return 1.0
	}
	trueAlts := global.TotalMcap * (1.0 - global.BTCMcapPct/100.0)
	tracked := basketSum(basket, latest.Date)
	if tracked <= 0 {
		return 1.0
	}
	return trueAlts / tracked
}

// AltcoinHistory estimates total altcoin market cap, in billions, on every
// anchor date with a positive basket sum. The basket includes the anchor.
// The scale factor from the latest date is applied to the whole history.
func AltcoinHistory(anchor series.Series, basket []series.Series, global *domain.GlobalMarket, btcMcap series.Series) []domain.Point {
	if anchor.Empty() {
		return []domain.Point{}
	}
	scale := AltcoinScale(anchor, basket, global, btcMcap)
	out := make([]domain.Point, 0, anchor.Len())
	for _, d := range anchor.Dates() {
		tracked := basketSum(basket, d)
		if tracked > 0 {
			out = append(out, domain.Point{Date: d, Value: Round(tracked*scale/1e9, 2)})
		}
	}
	return out
}

func basketSum(basket []series.Series, date string) float64 {
	total := 0.0
	for _, s := range basket {
		total += s.GetOrZero(date)
	}
	return total
}

// RoundedHistory passes a stored series through, rounded to places decimals.
func RoundedHistory(s series.Series, places int32) []domain.Point {
	out := make([]domain.Point, 0, s.Len())
	for _, p := range s.Points() {
		out = append(out, domain.Point{Date: p.Date, Value: Round(p.Value, places)})
	}
	return out
}
