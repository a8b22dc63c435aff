package risk

import (
	"fmt"
	"math"
	"time"

	"spotbot/internal/logger"
	"spotbot/internal/strategy/policy"
)

var log = logger.Component("risk")

// Limits are the static risk parameters loaded from config.
type Limits struct {
	RiskPerTrade    float64
	DailyLossStop   float64
	CooldownBars    int
	MaxTradesPerDay int
	MaxPositionPct  float64
}

// State is the mutable risk book. It is owned by a single goroutine.
type State struct {
	CurrentEquity    float64 `json:"current_equity"`
	PeakEquity       float64 `json:"peak_equity"`
	TodayStartEquity float64 `json:"today_start_equity"`
	TodayRealizedPnL float64 `json:"today_realized_pnl"`
	TradesToday      int     `json:"trades_today"`
	Day              string  `json:"day"`
}

// Block explains why can-open returned false.
type Block string

const (
	BlockNone       Block = ""
	BlockKillSwitch Block = "kill_switch"
	BlockDailyLoss  Block = "daily_loss"
	BlockMaxTrades  Block = "max_trades"
	BlockCooldown   Block = "cooldown"
	BlockLockout    Block = "loss_lockout"
)

type Engine struct {
	limits   Limits
	loc      *time.Location
	state    State
	cooldown Cooldown
	streak   LossStreak
}

func NewEngine(limits Limits, initialEquity float64, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if limits.MaxTradesPerDay <= 0 {
		limits.MaxTradesPerDay = DefaultMaxTradesPerDay
	}
	return &Engine{
		limits: limits,
		loc:    loc,
		state: State{
			CurrentEquity:    initialEquity,
			PeakEquity:       initialEquity,
			TodayStartEquity: initialEquity,
		},
		cooldown: NewCooldown(limits.CooldownBars),
	}
}

func (e *Engine) Limits() Limits { return e.limits }

func (e *Engine) State() State { return e.state }

func (e *Engine) Cooldown() Cooldown { return e.cooldown }

func (e *Engine) Streak() LossStreak { return e.streak }

// Restore seeds the book from persisted state at startup.
func (e *Engine) Restore(st State, streak LossStreak) {
	if st.PeakEquity < st.CurrentEquity {
		st.PeakEquity = st.CurrentEquity
	}
	e.state = st
	e.streak = streak
}

// RestoreCooldown replays the most recent close so cooldown survives restarts.
func (e *Engine) RestoreCooldown(lastCloseBar int64) {
	e.cooldown.RecordClose(lastCloseBar)
}

// UpdateEquity records a fresh equity reading. The peak never decreases.
func (e *Engine) UpdateEquity(equity float64) {
	if equity <= 0 || math.IsNaN(equity) || math.IsInf(equity, 0) {
		log.Warnf("ignoring invalid equity reading %v", equity)
		return
	}
	e.state.CurrentEquity = equity
	if equity > e.state.PeakEquity {
		e.state.PeakEquity = equity
	}
	if e.state.TodayStartEquity <= 0 {
		e.state.TodayStartEquity = equity
	}
}

// Rollover resets the daily counters when now falls on a new local day.
// It returns true when a reset happened.
func (e *Engine) Rollover(now time.Time) bool {
	day := now.In(e.loc).Format("2006-01-02")
	if e.state.Day == day {
		return false
	}
	first := e.state.Day == ""
	e.state.Day = day
	if first {
		return false
	}
	log.Infof("daily rollover to %s: trades=%d pnl=%.2f", day, e.state.TradesToday, e.state.TodayRealizedPnL)
	e.state.TodayStartEquity = e.state.CurrentEquity
	e.state.TodayRealizedPnL = 0
	e.state.TradesToday = 0
	return true
}

// OnBar advances the cooldown counter.
func (e *Engine) OnBar(bar int64) {
	e.cooldown.Update(bar)
}

// CanOpen combines the daily guardrail, cooldown, loss lockout and kill latch.
func (e *Engine) CanOpen(killed bool, now time.Time) (bool, Block) {
	switch {
	case killed:
		return false, BlockKillSwitch
	case e.state.TodayRealizedPnL < -(e.state.TodayStartEquity * e.limits.DailyLossStop):
		return false, BlockDailyLoss
	case !DailyGuardrailOK(e.state.TradesToday, e.state.TodayRealizedPnL, e.limits.DailyLossStop, e.state.TodayStartEquity, e.limits.MaxTradesPerDay):
		return false, BlockMaxTrades
	case e.cooldown.InCooldown:
		return false, BlockCooldown
	case e.streak.Locked(now):
		return false, BlockLockout
	}
	return true, BlockNone
}

// Size applies the configured limits, optionally overridden by an active policy.
func (e *Engine) Size(entry, stop, lotStep float64, p policy.Policy) float64 {
	riskFraction := e.limits.RiskPerTrade
	maxPos := e.limits.MaxPositionPct
	if p.Enabled {
		if p.RiskPerTrade > 0 {
			riskFraction = p.RiskPerTrade
		}
		if p.MaxPositionPct > 0 {
			maxPos = p.MaxPositionPct
		}
	}
	return SizePosition(SizeRequest{
		Equity:              e.state.CurrentEquity,
		Entry:               entry,
		Stop:                stop,
		RiskFraction:        riskFraction,
		LotStep:             lotStep,
		MaxPositionFraction: maxPos,
	})
}

func (e *Engine) RecordOpen() {
	e.state.TradesToday++
}

// RecordClose books a realized result and starts the cooldown at bar.
func (e *Engine) RecordClose(bar int64, pnl float64, at time.Time, lockout policy.LossLockout) {
	e.state.TodayRealizedPnL += pnl
	e.cooldown.RecordClose(bar)
	e.streak.Record(pnl, at, lockout)
	if e.streak.Locked(at) {
		log.Warnf("loss lockout active until %s", e.streak.LockedUntil.Format(time.RFC3339))
	}
}

// Drawdown returns the decline from peak as a percentage.
func (e *Engine) Drawdown() float64 {
	if e.state.PeakEquity <= 0 {
		return 0
	}
	return (e.state.PeakEquity - e.state.CurrentEquity) / e.state.PeakEquity * 100
}

func (s State) String() string {
	return fmt.Sprintf("equity=%.2f peak=%.2f day_start=%.2f pnl_today=%.2f trades_today=%d",
		s.CurrentEquity, s.PeakEquity, s.TodayStartEquity, s.TodayRealizedPnL, s.TradesToday)
}
