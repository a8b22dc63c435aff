package trader

import (
	"math"

	"github.com/shopspring/decimal"
)

var decOne = decimal.NewFromInt(1)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }
func decimalGT(a, b float64) bool  { return decimalCompare(a, b) > 0 }

func hitStopLoss(price, stop float64) bool {
	if stop <= 0 || price <= 0 {
		return false
	}
	return decimalLTE(price, stop)
}

func hitTarget(price, target float64) bool {
	if price <= 0 || target <= 0 {
		return false
	}
	return decimalGTE(price, target)
}

func shouldRaiseAnchor(price, anchor float64) bool {
	if price <= 0 {
		return false
	}
	return anchor <= 0 || decimalGT(price, anchor)
}

func trailingStopFor(anchor, pct float64) float64 {
	if anchor <= 0 || pct <= 0 {
		return 0
	}
	return decToFloat(decFromFloat(anchor).Mul(decOne.Sub(decFromFloat(pct))))
}

// pnl returns (exit-entry)*qty and (exit-entry)/entry.
func pnl(entry, exit, qty float64) (float64, float64) {
	e := decFromFloat(entry)
	diff := decFromFloat(exit).Sub(e)
	quote := decToFloat(diff.Mul(decFromFloat(qty)))
	if e.IsZero() {
		return quote, 0
	}
	return quote, decToFloat(diff.Div(e))
}
