package report

import (
	"fmt"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/floats"
)

// DefaultSparkWidth is the number of glyphs in a rendered sparkline.
const DefaultSparkWidth = 30

const missing = "—"

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as block glyphs scaled between their min and max.
// Longer inputs are sampled down to width points.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}
	sampled := values
	if width > 0 && len(values) > width {
		step := float64(len(values)) / float64(width)
		sampled = make([]float64, width)
		for i := range sampled {
			sampled[i] = values[int(float64(i)*step)]
		}
	}

	lo, hi := floats.Min(sampled), floats.Max(sampled)
	spread := hi - lo
	if spread == 0 {
		spread = 1
	}
	top := len(sparkChars) - 1
	out := make([]rune, len(sampled))
	for i, v := range sampled {
		idx := int((v - lo) / spread * float64(top))
		out[i] = sparkChars[min(idx, top)]
	}
	return string(out)
}

// FormatTrillions renders a native-unit value as "$X.XXXT".
func FormatTrillions(v null.Float, divisor float64) string {
	if !v.Valid {
		return missing
	}
	return fmt.Sprintf("$%.3fT", v.Float64/divisor)
}

// FormatChange renders a native-unit change in billions with an explicit
// sign for non-negative values.
func FormatChange(v null.Float, divisor float64) string {
	if !v.Valid {
		return missing
	}
	billions := v.Float64 / (divisor / 1000)
	if v.Float64 >= 0 {
		return fmt.Sprintf("+%.1fB", billions)
	}
	return fmt.Sprintf("%.1fB", billions)
}
