package trader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotbot/internal/market"
	"spotbot/internal/store/model"
	"spotbot/internal/strategy"
)

func lastClosedOpen() int64 {
	return testNow.Truncate(time.Hour).Add(-time.Hour).UnixMilli()
}

func fallingBars(n int, lastOpen int64) market.Bars {
	out := risingBars(n, lastOpen)
	for i := range out {
		c := 300 - float64(i)
		out[i].Open, out[i].High, out[i].Low, out[i].Close = c+0.5, c+0.5, c-0.5, c
	}
	return out
}

func openViaSignal(t *testing.T, h *harness) Trade {
	t.Helper()
	h.gw.set(func(g *fakeGateway) {
		g.bars = risingBars(60, lastClosedOpen())
		g.price = 159
	})
	h.poll()
	snap := h.tr.Snapshot()
	require.Len(t, snap.OpenTrades, 1)
	return snap.OpenTrades[0]
}

func TestLongSignalOpensSizedTrade(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	tr := openViaSignal(t, h)

	assert.InDelta(t, 159.0, tr.EntryPrice, 1e-9)
	assert.InDelta(t, 156.3, tr.StopPrice, 1e-6)
	assert.InDelta(t, 161.25, tr.TargetPrice, 1e-6)
	assert.InDelta(t, 18.51, tr.Qty, 1e-9)
	assert.LessOrEqual(t, tr.Qty*tr.EntryPrice, 10000.0)
	assert.Equal(t, lastClosedOpen()/hourMs, tr.OpenBar)

	snap := h.tr.Snapshot()
	assert.False(t, snap.PendingEntry)
	assert.Equal(t, 1, snap.Risk.TradesToday)
	require.NotNil(t, snap.LastSignal)
	assert.Equal(t, strategy.Long, snap.LastSignal.Kind)

	require.Len(t, h.notes.Messages(), 1)
	assert.Contains(t, h.notes.Messages()[0], "Entry: SOLUSDT")

	rows, err := h.store.Trades().ListOpen(ctx, "SOLUSDT")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, tr.ID, rows[0].ID)
	assert.NotEmpty(t, rows[0].Diagnostics)

	orders, err := h.store.Orders().ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "BUY", orders[0].Side)
}

func TestSameBarIsNotReevaluated(t *testing.T) {
	h := newHarness(t, testConfig())
	openViaSignal(t, h)

	h.poll()
	h.poll()

	assert.Equal(t, 1, h.gw.orderCount())
	assert.Len(t, h.tr.Snapshot().OpenTrades, 1)
}

func TestStopLossClosesTradeAndStartsCooldown(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	opened := openViaSignal(t, h)

	h.gw.set(func(g *fakeGateway) { g.price = 150 })
	h.poll()

	snap := h.tr.Snapshot()
	require.Empty(t, snap.OpenTrades)
	require.NotNil(t, snap.LastTrade)
	closed := snap.LastTrade
	assert.Equal(t, opened.ID, closed.ID)
	assert.Equal(t, ExitStopLoss, closed.ExitReason)
	assert.InDelta(t, opened.StopPrice, closed.ExitPrice, 1e-9)
	assert.InDelta(t, (closed.ExitPrice-opened.EntryPrice)*opened.Qty, closed.PnLQuote, 1e-6)
	assert.Less(t, closed.PnLQuote, 0.0)
	assert.InDelta(t, closed.PnLQuote, snap.Risk.TodayRealizedPnL, 1e-9)
	assert.True(t, snap.Risk.InCooldown)

	require.Len(t, h.notes.Messages(), 2)
	assert.Contains(t, h.notes.Messages()[1], "Stop Loss")

	row, err := h.store.Trades().FindByID(ctx, opened.ID)
	require.NoError(t, err)
	require.NotNil(t, row.ClosedAt)
	assert.Equal(t, string(ExitStopLoss), row.ExitReason)

	// The next bar is still inside the two-bar cooldown.
	h.gw.set(func(g *fakeGateway) {
		g.bars = risingBars(60, lastClosedOpen()+hourMs)
		g.price = 159
	})
	h.poll()
	assert.Equal(t, 2, h.gw.orderCount())
	assert.True(t, h.tr.Snapshot().Risk.InCooldown)

	h.gw.set(func(g *fakeGateway) { g.bars = risingBars(60, lastClosedOpen()+2*hourMs) })
	h.poll()
	assert.Equal(t, 3, h.gw.orderCount())
	assert.Len(t, h.tr.Snapshot().OpenTrades, 1)
}

func TestExitsRunWhilePaused(t *testing.T) {
	h := newHarness(t, testConfig())
	openViaSignal(t, h)
	h.tr.trip("manual", h.clock.Now())

	h.gw.set(func(g *fakeGateway) { g.price = 170 })
	h.poll()

	snap := h.tr.Snapshot()
	assert.True(t, snap.KillSwitch.Paused)
	assert.Empty(t, snap.OpenTrades)
	require.NotNil(t, snap.LastTrade)
	assert.Equal(t, ExitTakeProfit, snap.LastTrade.ExitReason)
}

func TestFailedExitOrderIsRetried(t *testing.T) {
	h := newHarness(t, testConfig())
	openViaSignal(t, h)

	h.gw.set(func(g *fakeGateway) {
		g.price = 150
		g.placeErr = errors.New("venue unavailable")
	})
	h.poll()
	require.Len(t, h.tr.Snapshot().OpenTrades, 1)
	assert.Equal(t, 1, h.tr.Snapshot().KillSwitch.APIFailureCount)

	h.gw.set(func(g *fakeGateway) { g.placeErr = nil })
	h.poll()
	assert.Empty(t, h.tr.Snapshot().OpenTrades)
	assert.Equal(t, 3, h.gw.orderCount())
}

func TestRejectedEntryIsNotAnAPIFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gw.set(func(g *fakeGateway) {
		g.bars = risingBars(60, lastClosedOpen())
		g.placeErr = fmt.Errorf("buy 18.51 @ 159: %w", market.ErrInsufficientQty)
	})
	h.poll()

	snap := h.tr.Snapshot()
	assert.Equal(t, 1, h.gw.orderCount())
	assert.Empty(t, snap.OpenTrades)
	assert.Zero(t, snap.KillSwitch.APIFailureCount)
	assert.Zero(t, h.tr.state.Health.Failures())
	assert.False(t, h.tr.state.PendingEntry)
}

func TestRejectedExitsNeverTripAPIHealth(t *testing.T) {
	h := newHarness(t, testConfig())
	openViaSignal(t, h)

	h.gw.set(func(g *fakeGateway) {
		g.price = 150
		g.placeErr = fmt.Errorf("%w: -2010 insufficient balance", market.ErrOrderRejected)
	})
	for i := 0; i < 4; i++ {
		h.poll()
	}
	snap := h.tr.Snapshot()
	require.Len(t, snap.OpenTrades, 1)
	assert.Equal(t, 5, h.gw.orderCount())
	assert.Zero(t, snap.KillSwitch.APIFailureCount)
	assert.False(t, snap.KillSwitch.Paused)
}

func TestNewBarDetectionAndEquityThrottle(t *testing.T) {
	h := newHarness(t, testConfig())
	last := lastClosedOpen()
	h.gw.set(func(g *fakeGateway) { g.bars = fallingBars(60, last) })

	h.poll()
	h.poll()
	assert.Equal(t, last, h.tr.Snapshot().LastBarOpenTime)
	assert.Equal(t, 1, h.tr.state.BarsSinceEquity)

	h.gw.set(func(g *fakeGateway) { g.bars = fallingBars(60, last-hourMs) })
	h.poll()
	assert.Equal(t, last, h.tr.Snapshot().LastBarOpenTime)

	for i := int64(1); i <= 3; i++ {
		next := last + i*hourMs
		h.gw.set(func(g *fakeGateway) { g.bars = fallingBars(60, next) })
		h.poll()
	}
	assert.Equal(t, 0, h.tr.state.BarsSinceEquity)
	h.gw.mu.Lock()
	calls := h.gw.equityCalls
	h.gw.mu.Unlock()
	assert.Equal(t, 1, calls)

	snap := h.tr.Snapshot()
	require.NotNil(t, snap.LastSignal)
	assert.Equal(t, strategy.Flat, snap.LastSignal.Kind)
	assert.Contains(t, snap.LastSignal.Failed, strategy.CondCloseAboveEMA20)
	assert.Zero(t, h.gw.orderCount())
}

func TestShortWindowIsSkipped(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gw.set(func(g *fakeGateway) { g.bars = risingBars(30, lastClosedOpen()) })

	h.poll()

	assert.Equal(t, lastClosedOpen(), h.tr.Snapshot().LastBarOpenTime)
	assert.Nil(t, h.tr.Snapshot().LastSignal)
	assert.Zero(t, h.gw.orderCount())
}

func TestEventsAreJournaled(t *testing.T) {
	h := newHarness(t, testConfig())
	j := &recordingJournal{}
	h.tr.journal = j

	openViaSignal(t, h)
	h.handle(EvtKillSwitchCheck)

	j.mu.Lock()
	defer j.mu.Unlock()
	assert.Equal(t, []string{string(EvtOrderResult), string(EvtKillSwitchCheck)}, j.types)
}

func TestRecoverRestoresLatchAndOpenTrades(t *testing.T) {
	h := newHarness(t, testConfig())
	opened := openViaSignal(t, h)
	h.tr.trip("drawdown 12.00% reached limit 10.00%", h.clock.Now())

	h2 := newHarnessAt(t, testConfig(), h.dbPath, newFakeGateway())
	require.NoError(t, h2.tr.Recover(context.Background()))

	snap := h2.tr.Snapshot()
	assert.True(t, snap.KillSwitch.Paused)
	assert.Equal(t, "drawdown 12.00% reached limit 10.00%", snap.KillSwitch.TripReason)
	require.Len(t, snap.OpenTrades, 1)
	assert.Equal(t, opened.ID, snap.OpenTrades[0].ID)
	assert.Equal(t, 1, snap.Risk.TradesToday)
}

func TestRecoverRestoresCooldown(t *testing.T) {
	h := newHarness(t, testConfig())
	openViaSignal(t, h)
	h.gw.set(func(g *fakeGateway) { g.price = 150 })
	h.poll()
	require.NotNil(t, h.tr.Snapshot().LastTrade)

	h2 := newHarnessAt(t, testConfig(), h.dbPath, newFakeGateway())
	require.NoError(t, h2.tr.Recover(context.Background()))
	assert.False(t, h2.tr.Snapshot().KillSwitch.Paused)

	h2.gw.set(func(g *fakeGateway) { g.bars = risingBars(60, lastClosedOpen()+hourMs) })
	h2.poll()
	assert.Zero(t, h2.gw.orderCount())
	assert.True(t, h2.tr.Snapshot().Risk.InCooldown)
	assert.Less(t, h2.tr.Snapshot().Risk.TodayRealizedPnL, 0.0)
}

func TestStopDiscardsInflightResults(t *testing.T) {
	h := newHarness(t, testConfig())
	block, entered := make(chan struct{}), make(chan struct{})
	h.gw.set(func(g *fakeGateway) {
		g.bars = risingBars(60, lastClosedOpen())
		g.block, g.entered = block, entered
	})
	h.tr.Start()
	h.tr.pollOnce(context.Background())
	<-entered

	done := make(chan struct{})
	go func() {
		h.tr.Stop()
		close(done)
	}()
	require.Eventually(t, h.tr.stopped.Load, time.Second, 5*time.Millisecond)
	close(block)
	<-done

	assert.ErrorIs(t, h.tr.Send(EventEnvelope{Type: EvtHeartbeat}), ErrStopped)
	snap := h.tr.Snapshot()
	assert.True(t, snap.PendingEntry)
	assert.Empty(t, snap.OpenTrades)
	rows, err := h.store.Trades().ListOpen(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPauseAndResumeThroughActor(t *testing.T) {
	h := newHarness(t, testConfig())
	h.tr.Start()
	defer h.tr.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.ErrorIs(t, h.tr.Resume(ctx, "ops"), ErrNotPaused)

	require.NoError(t, h.tr.Pause(ctx, "maintenance"))
	snap := h.tr.Snapshot()
	assert.True(t, snap.KillSwitch.Paused)
	assert.Equal(t, "maintenance", snap.KillSwitch.TripReason)

	require.NoError(t, h.tr.Pause(ctx, "again"))
	assert.Equal(t, "maintenance", h.tr.Snapshot().KillSwitch.TripReason)

	require.NoError(t, h.tr.Resume(ctx, "ops"))
	assert.False(t, h.tr.Snapshot().KillSwitch.Paused)
	assert.Len(t, h.notes.Messages(), 2)
}

func TestHeartbeatAndDailyReport(t *testing.T) {
	h := newHarness(t, testConfig())
	openViaSignal(t, h)

	h.handle(EvtHeartbeat)
	msgs := h.notes.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1], "Heartbeat: SOLUSDT")
	assert.Contains(t, msgs[1], "Open trades: 1")
	assert.Contains(t, msgs[1], "Status: running")

	h.handle(EvtDailyReport)
	msgs = h.notes.Messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[2], "Daily report 2024-03-04: SOLUSDT")
	assert.Contains(t, msgs[2], "Trades opened: 1")
	assert.Contains(t, msgs[2], "Trades closed: 0")

	alerts, err := h.store.Alerts().ListRecent(context.Background(), 10)
	require.NoError(t, err)
	var found bool
	for _, a := range alerts {
		if a.Message == "Daily report" {
			found = true
			assert.Equal(t, model.AlertInfo, a.Level)
		}
	}
	assert.True(t, found)
}
