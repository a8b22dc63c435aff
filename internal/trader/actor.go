package trader

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"spotbot/internal/analysis/indicator"
	"spotbot/internal/gateway/notifier"
	"spotbot/internal/logger"
	"spotbot/internal/market"
	"spotbot/internal/pkg/circuit"
	"spotbot/internal/risk"
	"spotbot/internal/scheduler"
	"spotbot/internal/store"
	"spotbot/internal/store/journal"
	"spotbot/internal/strategy"
	"spotbot/internal/strategy/policy"
)

var (
	log   = logger.Component("trader")
	ksLog = logger.Component("killswitch")
)

var (
	ErrStopped   = errors.New("trader is stopped")
	ErrNotPaused = errors.New("trading is not paused")
)

const settingKillSwitch = "kill_switch"

// Config is the static configuration of one trading loop.
type Config struct {
	Mode              string
	Symbol            string
	Interval          string
	BarLimit          int
	OrderType         market.OrderType
	TrailingFraction  float64
	InitialEquity     float64
	Limits            risk.Limits
	KillSwitch        KillSwitchLimits
	Indicator         indicator.Settings
	Rule              strategy.Rule
	PollInterval      time.Duration
	GatewayTimeout    time.Duration
	EquityRefreshBars int
	KillSwitchEvery   time.Duration
	HeartbeatEvery    time.Duration
	DailyReportAt     string
	Location          *time.Location
}

func (c Config) withDefaults() Config {
	if c.BarLimit <= 0 {
		c.BarLimit = 100
	}
	if c.OrderType == "" {
		c.OrderType = market.OrderTypeMarket
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = 10 * time.Second
	}
	if c.EquityRefreshBars <= 0 {
		c.EquityRefreshBars = 4
	}
	if c.KillSwitchEvery <= 0 {
		c.KillSwitchEvery = 15 * time.Minute
	}
	if c.HeartbeatEvery <= 0 {
		c.HeartbeatEvery = 6 * time.Hour
	}
	if c.DailyReportAt == "" {
		c.DailyReportAt = "23:59"
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Indicator == (indicator.Settings{}) {
		c.Indicator = indicator.DefaultSettings()
	}
	if c.Rule == (strategy.Rule{}) {
		c.Rule = strategy.BaselineRule()
	}
	return c
}

// Deps are the collaborators of the trading loop.
type Deps struct {
	Gateway  market.Gateway
	Store    store.Store
	Journal  journal.Journal
	Notifier notifier.Notifier
	Policy   policy.Source
	Clock    clockwork.Clock
}

// State is owned by the actor goroutine and never touched elsewhere.
type State struct {
	Risk            *risk.Engine
	Kill            KillSwitchState
	Health          *circuit.CircuitBreaker
	Open            map[string]*Trade
	Closing         map[string]bool
	PendingEntry    bool
	Constraints     market.SymbolConstraints
	LastBarOpenTime int64
	BarIndex        int64
	BarsSinceEquity int
	LastPrice       float64
	LastDecision    *strategy.Decision
	LastClosed      *Trade
	StartedAt       time.Time
}

// Trader is the single owner of all mutable trading state. Timers and async
// gateway calls talk to it only through Send.
type Trader struct {
	cfg      Config
	gw       market.Gateway
	store    store.Store
	journal  journal.Journal
	notifier notifier.Notifier
	policy   policy.Source
	clock    clockwork.Clock
	interval time.Duration

	eventRegistry *HandlerRegistry

	msgCh    chan EventEnvelope
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	inflight sync.WaitGroup
	stopped  atomic.Bool

	runCtx    context.Context
	runCancel context.CancelFunc

	state *State

	stateSnapshot atomic.Value
}

func NewTrader(cfg Config, deps Deps) (*Trader, error) {
	cfg = cfg.withDefaults()
	if deps.Gateway == nil {
		return nil, fmt.Errorf("trader requires a gateway")
	}
	if cfg.Symbol == "" || cfg.Interval == "" {
		return nil, fmt.Errorf("trader requires symbol and interval")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifier.Nop{}
	}
	if deps.Journal == nil {
		deps.Journal = journal.Nop{}
	}
	if deps.Policy == nil {
		deps.Policy = policy.Static{}
	}
	interval, ok := scheduler.ParseIntervalDuration(cfg.Interval)
	if !ok {
		return nil, fmt.Errorf("invalid interval %q", cfg.Interval)
	}

	eventReg := NewHandlerRegistry()
	eventReg.RegisterDefaultHandlers()

	health := circuit.NewCircuitBreaker("gateway", cfg.KillSwitch.MaxAPIFailures, deps.Clock)
	health.SetStateChangeHandler(func(name string, from, to circuit.State) {
		ksLog.Warnf("%s health %s -> %s", name, from, to)
	})
	ctx, cancel := context.WithCancel(context.Background())
	tr := &Trader{
		cfg:           cfg,
		gw:            deps.Gateway,
		store:         deps.Store,
		journal:       deps.Journal,
		notifier:      deps.Notifier,
		policy:        deps.Policy,
		clock:         deps.Clock,
		interval:      interval,
		eventRegistry: eventReg,
		msgCh:         make(chan EventEnvelope, 100),
		stopCh:        make(chan struct{}),
		runCtx:        ctx,
		runCancel:     cancel,
		state: &State{
			Risk:      risk.NewEngine(cfg.Limits, cfg.InitialEquity, cfg.Location),
			Health:    health,
			Open:      make(map[string]*Trade),
			Closing:   make(map[string]bool),
			StartedAt: deps.Clock.Now(),
		},
	}
	tr.refreshSnapshot()
	return tr, nil
}

func (t *Trader) Config() Config { return t.cfg }

func (t *Trader) Start() {
	t.wg.Add(1)
	go t.runLoop()
}

// Stop halts the actor. Async calls still in flight finish, but their results
// are dropped because Send fails once stopped.
func (t *Trader) Stop() {
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		t.runCancel()
		close(t.stopCh)
		t.wg.Wait()
		t.inflight.Wait()
		if t.journal != nil {
			if err := t.journal.Close(); err != nil {
				log.Warnf("journal close failed: %v", err)
			}
		}
	})
}

func (t *Trader) Send(evt EventEnvelope) error {
	if t.stopped.Load() {
		return ErrStopped
	}
	select {
	case t.msgCh <- evt:
		return nil
	case <-t.stopCh:
		return ErrStopped
	}
}

func (t *Trader) SendSync(ctx context.Context, evt EventEnvelope) error {
	if evt.ReplyCh == nil {
		evt.ReplyCh = make(chan error, 1)
	}
	if err := t.Send(evt); err != nil {
		return err
	}
	select {
	case err := <-evt.ReplyCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopCh:
		return ErrStopped
	}
}

// Snapshot returns the latest published status.
func (t *Trader) Snapshot() Status {
	val := t.stateSnapshot.Load()
	if val == nil {
		return Status{}
	}
	return *val.(*Status)
}

func (t *Trader) runLoop() {
	defer t.wg.Done()
	log.Infof("actor started symbol=%s interval=%s mode=%s", t.cfg.Symbol, t.cfg.Interval, t.cfg.Mode)

	for {
		select {
		case evt := <-t.msgCh:
			t.handleEvent(evt)
		case <-t.stopCh:
			log.Infof("actor stopping")
			return
		}
	}
}

// handleEvent journals the event, dispatches it and publishes a new snapshot.
// A panicking handler is logged and does not take the loop down.
func (t *Trader) handleEvent(evt EventEnvelope) {
	var err error
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic handling event %s: %v\n%s", evt.Type, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
		if evt.ReplyCh != nil {
			evt.ReplyCh <- err
			close(evt.ReplyCh)
		}
		if dur := time.Since(start); dur > 100*time.Millisecond {
			log.Warnf("slow event %s took %v", evt.Type, dur)
		}
	}()

	if shouldPersistEvent(evt.Type) {
		t.persistEvent(evt)
	}

	handler, ok := t.eventRegistry.Get(evt.Type)
	if !ok {
		log.Warnf("no handler registered for event type: %s", evt.Type)
		return
	}
	t.state.Risk.Rollover(t.clock.Now())
	if err = handler.Handle(NewHandlerContext(t), evt); err != nil && !errors.Is(err, ErrNotPaused) {
		log.Errorf("handle %s failed: %v", evt.Type, err)
	}
	t.refreshSnapshot()
}

// post delivers an event built from a goroutine outside the actor.
func (t *Trader) post(evt EventEnvelope) {
	if evt.ID == "" {
		evt.ID = newEventID(string(evt.Type))
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = t.clock.Now()
	}
	if evt.Symbol == "" {
		evt.Symbol = t.cfg.Symbol
	}
	if err := t.Send(evt); err != nil {
		log.Debugf("discarding %s result: %v", evt.Type, err)
	}
}

// spawn runs fn outside the actor with a context that survives Stop, so
// calls already sent to the venue complete. fn must post its own result.
func (t *Trader) spawn(name string, fn func(ctx context.Context)) {
	if t.stopped.Load() {
		return
	}
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(t.runCtx), t.cfg.GatewayTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic in %s: %v", name, r)
			}
		}()
		fn(ctx)
	}()
}

func (t *Trader) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func newEventID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// newClientOrderID stays within the 36 character limit exchanges put on client ids.
func newClientOrderID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
