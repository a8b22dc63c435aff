package strategy

import (
	"errors"
	"fmt"

	"spotbot/internal/strategy/policy"
)

var ErrLowQuality = errors.New("signal quality below policy")

// CheckQuality validates the geometry of a long signal.
func CheckQuality(sig Signal, q policy.Quality) error {
	entry, stop, target := sig.EntryRefPrice, sig.StopPrice, sig.TargetPrice
	if !(stop < entry && entry < target) {
		return fmt.Errorf("%w: levels out of order stop=%.4f entry=%.4f target=%.4f", ErrLowQuality, stop, entry, target)
	}
	rr := RiskReward(sig)
	if q.MinRiskReward > 0 && rr < q.MinRiskReward {
		return fmt.Errorf("%w: reward/risk %.2f < %.2f", ErrLowQuality, rr, q.MinRiskReward)
	}
	if dist := (entry - stop) / entry; q.MinStopDistancePct > 0 && dist < q.MinStopDistancePct {
		return fmt.Errorf("%w: stop distance %.4f < %.4f", ErrLowQuality, dist, q.MinStopDistancePct)
	}
	return nil
}

// RiskReward is (target-entry)/(entry-stop), zero for degenerate levels.
func RiskReward(sig Signal) float64 {
	risk := sig.EntryRefPrice - sig.StopPrice
	if risk <= 0 {
		return 0
	}
	return (sig.TargetPrice - sig.EntryRefPrice) / risk
}
