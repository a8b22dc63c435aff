package risk

import (
	"time"

	"spotbot/internal/strategy/policy"
)

// LossStreak counts consecutive losing closes and holds a lockout deadline.
type LossStreak struct {
	Consecutive int       `json:"consecutive_losses"`
	LockedUntil time.Time `json:"locked_until,omitempty"`
}

func (s *LossStreak) Record(pnl float64, at time.Time, rule policy.LossLockout) {
	if pnl >= 0 {
		s.Consecutive = 0
		return
	}
	s.Consecutive++
	if rule.Active() && s.Consecutive >= rule.MaxConsecutiveLosses {
		s.LockedUntil = at.Add(rule.Duration())
		s.Consecutive = 0
	}
}

func (s LossStreak) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}
