package trader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"spotbot/internal/store"
	"spotbot/internal/store/model"
)

// KillSwitchLimits are the supervisor thresholds.
type KillSwitchLimits struct {
	DailyLossStop  float64
	MaxDrawdownPct float64
	MaxAPIFailures int
}

type KillSwitchInput struct {
	PeakEquity       float64
	CurrentEquity    float64
	TodayRealizedPnL float64
	APIFailures      int
}

// EvaluateKillSwitch returns the first tripped check, daily loss first.
func EvaluateKillSwitch(in KillSwitchInput, lim KillSwitchLimits) (bool, string) {
	if lim.DailyLossStop > 0 {
		limit := in.PeakEquity * lim.DailyLossStop
		if in.TodayRealizedPnL < -limit {
			return true, fmt.Sprintf("daily loss %.2f exceeds limit %.2f", in.TodayRealizedPnL, -limit)
		}
	}
	if lim.MaxDrawdownPct > 0 && in.PeakEquity > 0 {
		dd := (in.PeakEquity - in.CurrentEquity) / in.PeakEquity * 100
		if dd >= lim.MaxDrawdownPct {
			return true, fmt.Sprintf("drawdown %.2f%% reached limit %.2f%%", dd, lim.MaxDrawdownPct)
		}
	}
	if lim.MaxAPIFailures > 0 && in.APIFailures >= lim.MaxAPIFailures {
		return true, fmt.Sprintf("%d consecutive API failures (limit %d)", in.APIFailures, lim.MaxAPIFailures)
	}
	return false, ""
}

// runKillSwitchCheck evaluates the latch. An already paused bot is left alone
// so a trip produces exactly one alert and one notification.
func (t *Trader) runKillSwitchCheck(now time.Time) {
	st := t.state
	if st.Kill.Paused {
		ksLog.Debugf("already paused (%s), skip check", st.Kill.TripReason)
		return
	}
	rs := st.Risk.State()
	tripped, reason := EvaluateKillSwitch(KillSwitchInput{
		PeakEquity:       rs.PeakEquity,
		CurrentEquity:    rs.CurrentEquity,
		TodayRealizedPnL: rs.TodayRealizedPnL,
		APIFailures:      st.Health.Failures(),
	}, t.cfg.KillSwitch)
	if !tripped {
		ksLog.Debugf("ok: %s api_failures=%d", rs, st.Health.Failures())
		return
	}
	t.trip(reason, now)
}

// recordAPIFailure counts a failed gateway call and evaluates the latch the
// moment the count reaches the limit.
func (t *Trader) recordAPIFailure(err error, now time.Time) {
	st := t.state
	st.Health.RecordFailure(err)
	st.Kill.APIFailureCount = st.Health.Failures()
	if lim := t.cfg.KillSwitch.MaxAPIFailures; lim > 0 && st.Kill.APIFailureCount >= lim {
		t.runKillSwitchCheck(now)
	}
}

func (t *Trader) recordAPISuccess() {
	t.state.Health.RecordSuccess()
	t.state.Kill.APIFailureCount = 0
}

func (t *Trader) trip(reason string, now time.Time) {
	st := t.state
	at := now
	st.Kill.Paused = true
	st.Kill.TripReason = reason
	st.Kill.TrippedAt = &at
	ksLog.Warnf("TRIPPED: %s", reason)

	t.persistLatch(now)
	rs := st.Risk.State()
	t.alert(model.AlertWarn, "Kill switch tripped: "+reason, map[string]any{
		"reason":             reason,
		"equity":             rs.CurrentEquity,
		"peak_equity":        rs.PeakEquity,
		"today_realized_pnl": rs.TodayRealizedPnL,
		"api_failures":       st.Health.Failures(),
	}, now)
	t.notify(t.killSwitchMessage(now))
}

// resume is the explicit operator action. It is the only path that clears the latch.
func (t *Trader) resume(operator string, now time.Time) error {
	st := t.state
	if !st.Kill.Paused {
		return ErrNotPaused
	}
	prev := st.Kill.TripReason
	st.Kill = KillSwitchState{}
	st.Health.Reset()
	ksLog.Infof("resumed by %q (was: %s)", operator, prev)

	t.persistLatch(now)
	t.alert(model.AlertInfo, "Trading resumed", map[string]any{"operator": operator, "previous_reason": prev}, now)
	t.notify(t.resumeMessage(operator, prev, now))
	return nil
}

func (t *Trader) persistLatch(now time.Time) {
	if t.store == nil {
		return
	}
	ctx, cancel := t.storeContext()
	defer cancel()
	uow, err := t.store.Begin(ctx)
	if err != nil {
		ksLog.Errorf("persist latch: %v", err)
		return
	}
	settings := uow.Settings()
	if err := settings.Set(ctx, store.SettingPaused, strconv.FormatBool(t.state.Kill.Paused), now.UnixMilli()); err != nil {
		_ = uow.Rollback()
		ksLog.Errorf("persist latch: %v", err)
		return
	}
	raw, _ := json.Marshal(t.state.Kill)
	if err := settings.Set(ctx, settingKillSwitch, string(raw), now.UnixMilli()); err != nil {
		_ = uow.Rollback()
		ksLog.Errorf("persist latch: %v", err)
		return
	}
	if err := uow.Commit(); err != nil {
		ksLog.Errorf("persist latch: %v", err)
	}
}
