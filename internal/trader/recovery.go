package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"spotbot/internal/risk"
	"spotbot/internal/store"
)

// balanceRestorer is implemented by simulated gateways that keep balances in memory.
type balanceRestorer interface {
	Restore(quote, base float64)
}

// Recover rebuilds actor state from the store. It must run before Start.
// A latched kill switch stays latched across restarts.
func (t *Trader) Recover(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	st := t.state
	now := t.clock.Now()

	if raw, ok, err := t.store.Settings().Get(ctx, settingKillSwitch); err != nil {
		return fmt.Errorf("load kill switch: %w", err)
	} else if ok && raw != "" {
		var ks KillSwitchState
		if err := json.Unmarshal([]byte(raw), &ks); err != nil {
			log.Warnf("ignoring malformed kill switch state: %v", err)
		} else {
			st.Kill = ks
		}
	}
	if raw, ok, err := t.store.Settings().Get(ctx, store.SettingPaused); err != nil {
		return fmt.Errorf("load pause flag: %w", err)
	} else if ok {
		if paused, perr := strconv.ParseBool(raw); perr == nil && paused {
			st.Kill.Paused = true
			if st.Kill.TripReason == "" {
				st.Kill.TripReason = "paused before restart"
			}
		}
	}
	st.Health.Restore(st.Kill.APIFailureCount)

	open, err := t.store.Trades().ListOpen(ctx, t.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("load open trades: %w", err)
	}
	for _, m := range open {
		tr := tradeFromModel(m)
		st.Open[tr.ID] = tr
	}

	rs := st.Risk.State()
	peak, err := t.store.Equity().Max(ctx)
	if err != nil {
		return fmt.Errorf("load peak equity: %w", err)
	}
	if peak > rs.PeakEquity {
		rs.PeakEquity = peak
	}
	latest, err := t.store.Equity().Latest(ctx)
	if err != nil {
		return fmt.Errorf("load latest equity: %w", err)
	}
	if latest != nil && latest.Equity > 0 {
		rs.CurrentEquity = latest.Equity
		if gw, ok := t.gw.(balanceRestorer); ok {
			gw.Restore(latest.Quote, latest.Base)
		}
	}

	dayStart := store.StartOfDay(now, t.cfg.Location)
	metrics, err := store.TodayMetrics(ctx, t.store.Equity(), dayStart)
	if err != nil {
		return fmt.Errorf("load day metrics: %w", err)
	}
	rs.TodayStartEquity = rs.CurrentEquity
	if metrics.StartEquity > 0 {
		rs.TodayStartEquity = metrics.StartEquity
	}
	closedToday, err := t.store.Trades().ListClosedBetween(ctx, dayStart.UnixMilli(), now.UnixMilli()+1)
	if err != nil {
		return fmt.Errorf("load closed trades: %w", err)
	}
	rs.TodayRealizedPnL = 0
	for _, m := range closedToday {
		if m.PnLQuote != nil {
			rs.TodayRealizedPnL += *m.PnLQuote
		}
	}
	recent, err := t.store.Trades().ListRecent(ctx, 4*risk.DefaultMaxTradesPerDay)
	if err != nil {
		return fmt.Errorf("load recent trades: %w", err)
	}
	rs.TradesToday = 0
	for _, m := range recent {
		if m.OpenedAt >= dayStart.UnixMilli() {
			rs.TradesToday++
		}
	}
	rs.Day = dayStart.Format("2006-01-02")
	st.Risk.Restore(rs, st.Risk.Streak())

	if last, err := t.store.Trades().LastClosed(ctx, t.cfg.Symbol); err != nil {
		return fmt.Errorf("load last closed trade: %w", err)
	} else if last != nil {
		st.LastClosed = tradeFromModel(*last)
		if last.CloseBar != nil {
			st.Risk.RestoreCooldown(*last.CloseBar)
		}
	}

	log.Infof("recovered: open=%d paused=%v %s", len(st.Open), st.Kill.Paused, st.Risk.State())
	t.refreshSnapshot()
	return nil
}
