package trader

import (
	"context"
	"encoding/json"
	"sort"
)

// refreshSnapshot publishes a copy of the state for readers outside the actor.
func (t *Trader) refreshSnapshot() {
	st := t.state
	rs := st.Risk.State()
	cd := st.Risk.Cooldown()
	status := &Status{
		Mode:       t.cfg.Mode,
		Symbol:     t.cfg.Symbol,
		Interval:   t.cfg.Interval,
		KillSwitch: st.Kill,
		Risk: RiskSummary{
			Equity:           rs.CurrentEquity,
			PeakEquity:       rs.PeakEquity,
			DrawdownPct:      st.Risk.Drawdown(),
			TodayStartEquity: rs.TodayStartEquity,
			TodayRealizedPnL: rs.TodayRealizedPnL,
			TradesToday:      rs.TradesToday,
			InCooldown:       cd.InCooldown,
			BarsSinceClose:   cd.BarsSinceClose,
		},
		OpenTrades:      make([]Trade, 0, len(st.Open)),
		LastBarOpenTime: st.LastBarOpenTime,
		LastPrice:       st.LastPrice,
		PendingEntry:    st.PendingEntry,
		StartedAt:       st.StartedAt,
		UpdatedAt:       t.clock.Now(),
	}
	if st.Kill.TrippedAt != nil {
		at := *st.Kill.TrippedAt
		status.KillSwitch.TrippedAt = &at
	}
	if streak := st.Risk.Streak(); !streak.LockedUntil.IsZero() {
		until := streak.LockedUntil
		status.Risk.LockedUntil = &until
	}
	for _, tr := range st.Open {
		status.OpenTrades = append(status.OpenTrades, *tr)
	}
	sort.Slice(status.OpenTrades, func(i, j int) bool {
		return status.OpenTrades[i].OpenedAt.Before(status.OpenTrades[j].OpenedAt)
	})
	if st.LastClosed != nil {
		last := *st.LastClosed
		status.LastTrade = &last
	}
	if d := st.LastDecision; d != nil {
		status.LastSignal = &SignalSummary{
			Kind:        d.Signal.Kind,
			OpenTime:    d.Signal.OpenTime,
			StopPrice:   d.Signal.StopPrice,
			TargetPrice: d.Signal.TargetPrice,
			Failed:      append(d.Diagnostics.Failed[:0:0], d.Diagnostics.Failed...),
			Met:         d.Diagnostics.Met,
			Strength:    d.Diagnostics.Strength,
			Trend:       string(d.Diagnostics.Market.Trend),
			Volatility:  d.Diagnostics.Market.Volatility,
		}
	}
	t.stateSnapshot.Store(status)
}

// Resume clears the kill-switch latch. It returns ErrNotPaused when trading
// was not paused.
func (t *Trader) Resume(ctx context.Context, operator string) error {
	raw, _ := json.Marshal(ResumePayload{Operator: operator})
	return t.SendSync(ctx, EventEnvelope{
		ID:        newEventID("resume"),
		Type:      EvtResume,
		Payload:   raw,
		CreatedAt: t.clock.Now(),
		Symbol:    t.cfg.Symbol,
	})
}

// Pause latches the kill switch manually.
func (t *Trader) Pause(ctx context.Context, reason string) error {
	raw, _ := json.Marshal(PausePayload{Reason: reason})
	return t.SendSync(ctx, EventEnvelope{
		ID:        newEventID("pause"),
		Type:      EvtPause,
		Payload:   raw,
		CreatedAt: t.clock.Now(),
		Symbol:    t.cfg.Symbol,
	})
}
