package results

import (
	"math"
	"math/big"
	"strconv"
)

// FormatPercent renders a [0,1] fraction as a percentage with one decimal,
// e.g. 0.8123 -> "81.2%". Exact ties round away from zero, so 0.5625 gives
// "56.3%" on every surface that shows the value.
func FormatPercent(fraction float64) string {
	return formatOneDecimal(fraction*100) + "%"
}

func formatOneDecimal(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'f', 1, 64)
	}

	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}

	// Work on the exact binary value of x so that only true ties round up.
	scaled := new(big.Float).SetPrec(256).SetFloat64(x)
	scaled.Mul(scaled, big.NewFloat(10))

	tenths, _ := scaled.Int(nil)
	remainder := new(big.Float).SetPrec(256).Sub(scaled, new(big.Float).SetInt(tenths))
	if remainder.Cmp(big.NewFloat(0.5)) >= 0 {
		tenths.Add(tenths, big.NewInt(1))
	}

	digits := tenths.String()
	if len(digits) < 2 {
		digits = "0" + digits
	}
	return sign + digits[:len(digits)-1] + "." + digits[len(digits)-1:]
}
