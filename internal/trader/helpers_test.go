package trader

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"spotbot/internal/market"
	"spotbot/internal/risk"
	"spotbot/internal/store/journal"
	"spotbot/internal/store/sqlite"
)

const hourMs = int64(time.Hour / time.Millisecond)

var testNow = time.Date(2024, 3, 4, 10, 0, 30, 0, time.UTC)

type fakeGateway struct {
	mu          sync.Mutex
	bars        market.Bars
	price       float64
	constraints market.SymbolConstraints
	barsErr     error
	placeErr    error
	equity      market.Equity
	equityCalls int
	orders      []market.OrderRequest

	// block, when set, holds PlaceOrder until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		price:       159,
		constraints: market.SymbolConstraints{Symbol: "SOLUSDT", LotStep: 0.01, MinQty: 0.01, TickSize: 0.01},
		equity:      market.Equity{Quote: 10000},
	}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) GetBars(context.Context, string, string, int) (market.Bars, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append(market.Bars(nil), g.bars...), g.barsErr
}

func (g *fakeGateway) GetCurrentPrice(context.Context, string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.price, nil
}

func (g *fakeGateway) GetSymbolConstraints(context.Context, string) (market.SymbolConstraints, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.constraints, nil
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, req market.OrderRequest) (market.OrderResult, error) {
	g.mu.Lock()
	block, entered := g.block, g.entered
	g.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, req)
	if g.placeErr != nil {
		return market.OrderResult{}, g.placeErr
	}
	return market.OrderResult{OrderID: req.ClientID + "-x", Status: "FILLED", FilledQty: req.Qty, AvgPrice: req.Price}, nil
}

func (g *fakeGateway) Equity(context.Context, string) (market.Equity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.equityCalls++
	return g.equity, nil
}

func (g *fakeGateway) set(fn func(g *fakeGateway)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

func (g *fakeGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Send(text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return true
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type recordingJournal struct {
	journal.Nop
	mu    sync.Mutex
	types []string
}

func (j *recordingJournal) Append(_ context.Context, evt journal.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.types = append(j.types, evt.Type)
	return nil
}

// risingBars is an hourly uptrend ending one bar before now.
func risingBars(n int, lastOpen int64) market.Bars {
	out := make(market.Bars, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		out[i] = market.Bar{
			OpenTime: lastOpen - int64(n-1-i)*hourMs,
			Open:     c - 0.5,
			High:     c + 0.5,
			Low:      c - 0.5,
			Close:    c,
			Volume:   1000,
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		Mode:             "paper",
		Symbol:           "SOLUSDT",
		Interval:         "1h",
		InitialEquity:    10000,
		TrailingFraction: 0,
		Limits: risk.Limits{
			RiskPerTrade:    0.005,
			DailyLossStop:   0.015,
			CooldownBars:    2,
			MaxTradesPerDay: 20,
		},
		KillSwitch: KillSwitchLimits{
			DailyLossStop:  0.015,
			MaxDrawdownPct: 10,
			MaxAPIFailures: 3,
		},
		GatewayTimeout: time.Second,
	}
}

type harness struct {
	tr     *Trader
	gw     *fakeGateway
	store  *sqlite.SqliteStore
	notes  *recordingNotifier
	clock  clockwork.FakeClock
	dbPath string
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "spotbot.db")
	return newHarnessAt(t, cfg, dbPath, newFakeGateway())
}

func newHarnessAt(t *testing.T, cfg Config, dbPath string, gw *fakeGateway) *harness {
	t.Helper()
	st, err := sqlite.NewSqliteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	clock := clockwork.NewFakeClockAt(testNow)
	notes := &recordingNotifier{}
	tr, err := NewTrader(cfg, Deps{
		Gateway:  gw,
		Store:    st,
		Notifier: notes,
		Clock:    clock,
	})
	require.NoError(t, err)
	return &harness{tr: tr, gw: gw, store: st, notes: notes, clock: clock, dbPath: dbPath}
}

// drain handles queued events on the test goroutine until no async work is left.
func (h *harness) drain() {
	for {
		h.tr.inflight.Wait()
		select {
		case evt := <-h.tr.msgCh:
			h.tr.handleEvent(evt)
		default:
			return
		}
	}
}

func (h *harness) poll() {
	h.tr.pollOnce(context.Background())
	h.drain()
}

func (h *harness) handle(typ EventType) {
	h.tr.handleEvent(EventEnvelope{ID: newEventID(string(typ)), Type: typ, CreatedAt: h.clock.Now()})
	h.drain()
}
