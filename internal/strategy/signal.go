package strategy

import (
	"time"

	"spotbot/internal/analysis/indicator"
	"spotbot/internal/strategy/policy"
)

type Kind string

const (
	Long Kind = "LONG"
	Flat Kind = "FLAT"
)

// Condition names one entry requirement. Failed conditions are reported for
// observability and never drive control flow.
type Condition string

const (
	CondValidInput      Condition = "valid_input"
	CondCloseAboveEMA20 Condition = "close_above_ema20"
	CondEMAStack        Condition = "ema20_above_ema50"
	CondRSIMomentum     Condition = "rsi_above_threshold"
	CondNotChop         Condition = "not_chop"

	CondTrendStrength Condition = "policy_trend_strength"
	CondRSIBand       Condition = "policy_rsi_band"
	CondATRBand       Condition = "policy_atr_band"
	CondTradingHour   Condition = "policy_trading_hour"
	CondTradingDay    Condition = "policy_trading_day"
	CondVolume        Condition = "policy_volume_confirmation"
	CondSignalQuality Condition = "policy_signal_quality"
)

// baselineConditions is the count behind Diagnostics.Strength.
const baselineConditions = 4

// Rule holds the baseline entry thresholds.
type Rule struct {
	RSIThreshold      float64
	ChopTrendMax      float64
	ChopRSILow        float64
	ChopRSIHigh       float64
	StopATRMult       float64
	TargetATRMult     float64
	StopFloorFraction float64
}

func BaselineRule() Rule {
	return Rule{
		RSIThreshold:      50,
		ChopTrendMax:      0.003,
		ChopRSILow:        45,
		ChopRSIHigh:       55,
		StopATRMult:       1.8,
		TargetATRMult:     1.5,
		StopFloorFraction: 0.95,
	}
}

// Signal is the decision for one bar. Prices are zero when Kind is Flat.
type Signal struct {
	Kind          Kind    `json:"kind"`
	OpenTime      int64   `json:"open_time"`
	EntryRefPrice float64 `json:"entry_ref_price,omitempty"`
	StopPrice     float64 `json:"stop_price,omitempty"`
	TargetPrice   float64 `json:"target_price,omitempty"`
}

func (s Signal) IsLong() bool { return s.Kind == Long }

type Diagnostics struct {
	Failed   []Condition      `json:"failed,omitempty"`
	Met      int              `json:"met"`
	Strength float64          `json:"strength"`
	Market   MarketConditions `json:"market"`
}

type Decision struct {
	Signal      Signal      `json:"signal"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Input is everything the evaluator reads. At supplies the local hour and
// weekday for the policy time filters and is ignored otherwise.
type Input struct {
	Snapshot indicator.Snapshot
	At       time.Time
	Policy   policy.Policy
}

// Evaluate is a pure function of its input.
func Evaluate(in Input, rule Rule) Decision {
	snap := in.Snapshot
	flat := Signal{Kind: Flat, OpenTime: snap.OpenTime}
	if !snap.Valid() || snap.ATR14 < 0 {
		return Decision{
			Signal:      flat,
			Diagnostics: Diagnostics{Failed: []Condition{CondValidInput}},
		}
	}

	var failed []Condition
	met := 0
	check := func(ok bool, c Condition) {
		if ok {
			met++
			return
		}
		failed = append(failed, c)
	}
	check(snap.Close > snap.EMA20, CondCloseAboveEMA20)
	check(snap.EMA20 > snap.EMA50, CondEMAStack)
	check(snap.RSI14 > rule.RSIThreshold, CondRSIMomentum)
	check(!IsChop(snap, rule), CondNotChop)

	p := in.Policy
	stopMult, targetMult := rule.StopATRMult, rule.TargetATRMult
	if p.Enabled {
		failed = append(failed, policyFailures(snap, in.At, p)...)
		if p.StopATRMult > 0 {
			stopMult = p.StopATRMult
		}
		if p.TargetATRMult > 0 {
			targetMult = p.TargetATRMult
		}
	}

	diag := Diagnostics{
		Met:      met,
		Strength: float64(met) / baselineConditions,
		Market:   AnalyzeMarket(snap, rule),
	}
	if len(failed) > 0 {
		diag.Failed = failed
		return Decision{Signal: flat, Diagnostics: diag}
	}

	sig := Signal{
		Kind:          Long,
		OpenTime:      snap.OpenTime,
		EntryRefPrice: snap.Close,
		StopPrice:     snap.Close - stopMult*snap.ATR14,
		TargetPrice:   snap.Close + targetMult*snap.ATR14,
	}
	if sig.StopPrice <= 0 {
		sig.StopPrice = snap.Close * rule.StopFloorFraction
	}
	if p.Enabled && p.Quality.Enabled {
		if err := CheckQuality(sig, p.Quality); err != nil {
			diag.Failed = []Condition{CondSignalQuality}
			return Decision{Signal: flat, Diagnostics: diag}
		}
	}
	return Decision{Signal: sig, Diagnostics: diag}
}

// IsChop reports a trendless, momentum-neutral market.
func IsChop(snap indicator.Snapshot, rule Rule) bool {
	return snap.TrendStrength < rule.ChopTrendMax &&
		snap.RSI14 >= rule.ChopRSILow && snap.RSI14 <= rule.ChopRSIHigh
}

func policyFailures(snap indicator.Snapshot, at time.Time, p policy.Policy) []Condition {
	var out []Condition
	if p.MinTrendStrength > 0 && snap.TrendStrength < p.MinTrendStrength {
		out = append(out, CondTrendStrength)
	}
	if (p.RSIMin > 0 && snap.RSI14 <= p.RSIMin) || (p.RSIMax > 0 && snap.RSI14 >= p.RSIMax) {
		out = append(out, CondRSIBand)
	}
	atrPct := snap.ATR14 / snap.Close
	if (p.MinATRPct > 0 && atrPct < p.MinATRPct) || (p.MaxATRPct > 0 && atrPct > p.MaxATRPct) {
		out = append(out, CondATRBand)
	}
	if !at.IsZero() {
		if p.AvoidsHour(at.Hour()) {
			out = append(out, CondTradingHour)
		}
		if p.AvoidsWeekday(at.Weekday()) {
			out = append(out, CondTradingDay)
		}
	}
	if p.Volume.Enabled && p.Volume.Ratio > 0 {
		if snap.VolumeSMA <= 0 || snap.Volume < p.Volume.Ratio*snap.VolumeSMA {
			out = append(out, CondVolume)
		}
	}
	return out
}
