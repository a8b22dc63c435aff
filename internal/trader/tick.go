package trader

import (
	"encoding/json"
	"errors"
	"time"

	"spotbot/internal/analysis/indicator"
	"spotbot/internal/market"
	"spotbot/internal/strategy"
)

// onPoll runs one tick: exits on every poll, then entries only on a new bar.
func (t *Trader) onPoll(res PollResult) {
	st := t.state
	now := t.clock.Now()
	if res.Err != nil {
		t.recordAPIFailure(res.Err, now)
		if market.IsTimeout(res.Err) {
			log.Warnf("poll timed out (failures=%d): %v", st.Kill.APIFailureCount, res.Err)
		} else {
			log.Warnf("poll failed (failures=%d): %v", st.Kill.APIFailureCount, res.Err)
		}
		return
	}
	t.recordAPISuccess()
	if res.Price > 0 {
		st.LastPrice = res.Price
	}
	if res.Constraints.LotStep > 0 {
		st.Constraints = res.Constraints
	}

	t.checkExits(st.LastPrice, now)

	latest, ok := res.Bars.Last()
	if !ok || latest.OpenTime <= st.LastBarOpenTime {
		return
	}
	t.onNewBar(res.Bars, latest, now)
}

// checkExits tests every open trade that is not already being closed.
func (t *Trader) checkExits(price float64, now time.Time) {
	if price <= 0 {
		return
	}
	for id, tr := range t.state.Open {
		if t.state.Closing[id] {
			continue
		}
		prevRef := tr.TrailingRef
		decision, exit := tr.CheckExit(price)
		if tr.TrailingRef != prevRef {
			t.saveTrailingRef(tr)
		}
		if !exit {
			continue
		}
		log.Infof("exit %s trade=%s price=%.8f ref=%.8f", decision.Reason, id, price, decision.Price)
		t.state.Closing[id] = true
		t.dispatchClose(tr, decision, now)
	}
}

func (t *Trader) saveTrailingRef(tr *Trade) {
	if t.store == nil {
		return
	}
	ctx, cancel := t.storeContext()
	defer cancel()
	if err := t.store.Trades().UpdateTrailingRef(ctx, tr.ID, tr.TrailingRef); err != nil {
		log.Warnf("persist trailing ref trade=%s: %v", tr.ID, err)
	}
}

// onNewBar advances the bar clock and evaluates an entry.
func (t *Trader) onNewBar(bars market.Bars, latest market.Bar, now time.Time) {
	st := t.state
	st.LastBarOpenTime = latest.OpenTime
	st.BarIndex = t.barIndex(latest.OpenTime)
	st.Risk.OnBar(st.BarIndex)

	st.BarsSinceEquity++
	if st.BarsSinceEquity >= t.cfg.EquityRefreshBars {
		st.BarsSinceEquity = 0
		t.dispatchEquity("bar")
	}

	snap, err := indicator.Compute(bars, t.cfg.Indicator)
	if err != nil {
		var rej *indicator.RejectedError
		if errors.As(err, &rej) {
			log.Infof("bar %d skipped: %v", latest.OpenTime, err)
		} else {
			log.Warnf("indicator compute failed: %v", err)
		}
		st.LastDecision = nil
		return
	}

	pol := t.policy.Current()
	decision := strategy.Evaluate(strategy.Input{
		Snapshot: snap,
		At:       now.In(t.cfg.Location),
		Policy:   pol,
	}, t.cfg.Rule)
	st.LastDecision = &decision
	if !decision.Signal.IsLong() {
		log.Debugf("bar %d FLAT failed=%v", latest.OpenTime, decision.Diagnostics.Failed)
		return
	}
	t.tryEnter(decision, now)
}

func (t *Trader) tryEnter(decision strategy.Decision, now time.Time) {
	st := t.state
	sig := decision.Signal
	if len(st.Open) > 0 || st.PendingEntry {
		log.Debugf("LONG ignored: position open or entry pending")
		return
	}
	if ok, block := st.Risk.CanOpen(st.Kill.Paused, now); !ok {
		log.Infof("LONG blocked: %s", block)
		return
	}
	if st.Constraints.LotStep <= 0 {
		log.Warnf("LONG skipped: symbol constraints unknown")
		return
	}
	qty := st.Risk.Size(sig.EntryRefPrice, sig.StopPrice, st.Constraints.LotStep, t.policy.Current())
	if qty <= 0 || qty < st.Constraints.MinQty {
		log.Infof("LONG skipped: size %.8f below minimum %.8f", qty, st.Constraints.MinQty)
		return
	}
	diag, _ := json.Marshal(decision.Diagnostics)
	st.PendingEntry = true
	t.dispatchOrder(OrderResultPayload{
		RequestID:   newClientOrderID("open"),
		Action:      OrderActionOpen,
		Reason:      "signal_long",
		Symbol:      t.cfg.Symbol,
		Side:        market.SideBuy,
		Qty:         qty,
		RefPrice:    sig.EntryRefPrice,
		StopPrice:   sig.StopPrice,
		TargetPrice: sig.TargetPrice,
		Diagnostics: diag,
	})
}

// barIndex numbers bars from the epoch so cooldown survives restarts.
func (t *Trader) barIndex(openTime int64) int64 {
	ms := t.interval.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return openTime / ms
}
