package trader

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"spotbot/internal/market"
	"spotbot/internal/scheduler"
)

// Run starts the actor, the poll loop and the scheduled jobs, and blocks
// until ctx is cancelled. Results still in flight at that point are dropped.
func (t *Trader) Run(ctx context.Context) error {
	daily, err := scheduler.NewDailyScheduler(ctx, t.clock, t.cfg.DailyReportAt, t.cfg.Location)
	if err != nil {
		return err
	}
	daily.Name = "daily-report"

	t.Start()
	defer t.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Poll(gctx, t.clock, t.cfg.PollInterval, t.pollOnce)
		return nil
	})
	g.Go(func() error {
		ks := scheduler.NewAlignedScheduler(gctx, t.clock, t.cfg.KillSwitchEvery, 0)
		ks.Name = "killswitch"
		ks.Start(func() { t.runJob(gctx, EvtKillSwitchCheck) })
		return nil
	})
	g.Go(func() error {
		hb := scheduler.NewAlignedScheduler(gctx, t.clock, t.cfg.HeartbeatEvery, 0)
		hb.Name = "heartbeat"
		hb.Start(func() { t.runJob(gctx, EvtHeartbeat) })
		return nil
	})
	g.Go(func() error {
		daily.Start(func() { t.runJob(gctx, EvtDailyReport) })
		return nil
	})
	err = g.Wait()
	log.Infof("trader run loop exited")
	return err
}

// pollOnce fetches the bar window, price and trading rules concurrently.
// Any failure, including a timeout, is reported as one failed poll.
func (t *Trader) pollOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.GatewayTimeout)
	defer cancel()

	var res PollResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bars, err := t.gw.GetBars(gctx, t.cfg.Symbol, t.cfg.Interval, t.cfg.BarLimit)
		res.Bars = bars
		return market.WrapGatewayError("get_bars", err)
	})
	g.Go(func() error {
		price, err := t.gw.GetCurrentPrice(gctx, t.cfg.Symbol)
		res.Price = price
		return market.WrapGatewayError("get_price", err)
	})
	g.Go(func() error {
		c, err := t.gw.GetSymbolConstraints(gctx, t.cfg.Symbol)
		res.Constraints = c
		return market.WrapGatewayError("get_constraints", err)
	})
	res.Err = g.Wait()
	if ctx.Err() != nil && res.Err == nil {
		res.Err = ctx.Err()
	}
	res.FetchedAt = t.clock.Now()
	if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
		return
	}
	t.post(EventEnvelope{Type: EvtPollResult, Data: res})
}

// runJob probes equity outside the actor and hands the reading to it.
func (t *Trader) runJob(ctx context.Context, typ EventType) {
	if ctx.Err() != nil {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, t.cfg.GatewayTimeout)
	eq := t.probeEquity(probeCtx, string(typ))
	cancel()
	if ctx.Err() != nil {
		return
	}
	raw, err := json.Marshal(JobPayload{Equity: &eq})
	if err != nil {
		log.Errorf("encode %s payload: %v", typ, err)
		return
	}
	t.post(EventEnvelope{Type: typ, Payload: raw})
}
