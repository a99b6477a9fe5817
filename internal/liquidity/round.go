package liquidity

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds v to places decimals. Exact ties round half away from zero
// (2.5 -> 3), not half to even. NaN and ±Inf are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
