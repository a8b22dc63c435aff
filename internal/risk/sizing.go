package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// SizeRequest carries sizing inputs. MaxPositionFraction caps qty*entry as a
// fraction of equity; zero disables the cap.
type SizeRequest struct {
	Equity              float64
	Entry               float64
	Stop                float64
	RiskFraction        float64
	LotStep             float64
	MaxPositionFraction float64
}

// Size converts a risk budget into a lot-aligned quantity. Any invalid input
// yields 0, which callers treat as "do not trade".
func Size(equity, entry, stop, riskFraction, lotStep float64) float64 {
	return SizePosition(SizeRequest{Equity: equity, Entry: entry, Stop: stop, RiskFraction: riskFraction, LotStep: lotStep})
}

func SizePosition(req SizeRequest) float64 {
	for _, v := range []float64{req.Equity, req.Entry, req.Stop, req.RiskFraction, req.LotStep} {
		if !(v > 0) || math.IsInf(v, 0) {
			return 0
		}
	}
	if req.MaxPositionFraction < 0 || math.IsNaN(req.MaxPositionFraction) {
		return 0
	}
	equity := decimal.NewFromFloat(req.Equity)
	entry := decimal.NewFromFloat(req.Entry)
	step := decimal.NewFromFloat(req.LotStep)

	distance := entry.Sub(decimal.NewFromFloat(req.Stop)).Abs()
	if distance.IsZero() {
		return 0
	}
	qty := FloorToStep(equity.Mul(decimal.NewFromFloat(req.RiskFraction)).Div(distance), step)
	if req.MaxPositionFraction > 0 {
		maxQty := FloorToStep(equity.Mul(decimal.NewFromFloat(req.MaxPositionFraction)).Div(entry), step)
		if maxQty.LessThan(qty) {
			qty = maxQty
		}
	}
	if qty.LessThan(step) {
		return 0
	}
	out, _ := qty.Float64()
	return out
}

// FloorToStep rounds qty down to a whole number of steps.
func FloorToStep(qty, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return decimal.Zero
	}
	return qty.Div(step).Floor().Mul(step)
}
