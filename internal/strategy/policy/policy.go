package policy

import (
	"fmt"
	"strings"
	"time"
)

// Policy is the optional layer of entry filters applied on top of the
// baseline rule. The zero value is disabled and changes nothing.
type Policy struct {
	Enabled          bool         `yaml:"enabled" json:"enabled"`
	MinTrendStrength float64      `yaml:"min_trend_strength" json:"min_trend_strength"`
	RSIMin           float64      `yaml:"rsi_min" json:"rsi_min"`
	RSIMax           float64      `yaml:"rsi_max" json:"rsi_max"`
	MinATRPct        float64      `yaml:"min_atr_pct" json:"min_atr_pct"`
	MaxATRPct        float64      `yaml:"max_atr_pct" json:"max_atr_pct"`
	AvoidHours       []int        `yaml:"avoid_hours" json:"avoid_hours"`
	AvoidWeekdays    []string     `yaml:"avoid_weekdays" json:"avoid_weekdays"`
	Volume           VolumeFilter `yaml:"volume" json:"volume"`
	StopATRMult      float64      `yaml:"stop_atr_mult" json:"stop_atr_mult"`
	TargetATRMult    float64      `yaml:"target_atr_mult" json:"target_atr_mult"`
	Quality          Quality      `yaml:"quality" json:"quality"`
	LossLockout      LossLockout  `yaml:"loss_lockout" json:"loss_lockout"`
	RiskPerTrade     float64      `yaml:"risk_per_trade" json:"risk_per_trade"`
	MaxPositionPct   float64      `yaml:"max_position_pct" json:"max_position_pct"`
}

type VolumeFilter struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Ratio   float64 `yaml:"ratio" json:"ratio"`
}

type Quality struct {
	Enabled            bool    `yaml:"enabled" json:"enabled"`
	MinRiskReward      float64 `yaml:"min_risk_reward" json:"min_risk_reward"`
	MinStopDistancePct float64 `yaml:"min_stop_distance_pct" json:"min_stop_distance_pct"`
}

type LossLockout struct {
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses" json:"max_consecutive_losses"`
	LockoutHours         float64 `yaml:"lockout_hours" json:"lockout_hours"`
}

func (l LossLockout) Active() bool {
	return l.MaxConsecutiveLosses > 0 && l.LockoutHours > 0
}

func (l LossLockout) Duration() time.Duration {
	return time.Duration(l.LockoutHours * float64(time.Hour))
}

// Enhanced returns the stricter rule set the bot shipped as its second revision.
func Enhanced() Policy {
	return Policy{
		Enabled:          true,
		MinTrendStrength: 0.005,
		RSIMin:           30,
		RSIMax:           70,
		MinATRPct:        0.003,
		MaxATRPct:        0.015,
		AvoidHours:       []int{6, 7, 8, 9, 10, 11},
		AvoidWeekdays:    []string{"sunday"},
		Volume:           VolumeFilter{Enabled: true, Ratio: 0.8},
		StopATRMult:      2.2,
		TargetATRMult:    2.0,
		Quality:          Quality{Enabled: true, MinRiskReward: 0.8, MinStopDistancePct: 0.01},
		LossLockout:      LossLockout{MaxConsecutiveLosses: 3, LockoutHours: 24},
		RiskPerTrade:     0.008,
		MaxPositionPct:   0.15,
	}
}

// AvoidsHour reports whether entries are blocked at the given local hour.
func (p Policy) AvoidsHour(hour int) bool {
	for _, h := range p.AvoidHours {
		if h == hour {
			return true
		}
	}
	return false
}

func (p Policy) AvoidsWeekday(day time.Weekday) bool {
	for _, raw := range p.AvoidWeekdays {
		if wd, err := ParseWeekday(raw); err == nil && wd == day {
			return true
		}
	}
	return false
}

func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", raw)
}

func (p Policy) normalize() Policy {
	out := p
	out.AvoidHours = append([]int(nil), p.AvoidHours...)
	out.AvoidWeekdays = make([]string, 0, len(p.AvoidWeekdays))
	for _, d := range p.AvoidWeekdays {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out.AvoidWeekdays = append(out.AvoidWeekdays, d)
		}
	}
	return out
}
