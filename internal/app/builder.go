package app

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	brcfg "spotbot/internal/config"
	"spotbot/internal/gateway/binance"
	"spotbot/internal/gateway/notifier"
	"spotbot/internal/gateway/paper"
	"spotbot/internal/logger"
	"spotbot/internal/market"
	"spotbot/internal/risk"
	"spotbot/internal/store/journal"
	"spotbot/internal/store/sqlite"
	"spotbot/internal/strategy/policy"
	"spotbot/internal/trader"
	opshttp "spotbot/internal/transport/http/ops"
)

const notifyTimeout = 30 * time.Second

func provideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

// provideGateway returns the Binance client in live mode. Paper mode reads
// public market data through the same client and simulates fills.
func provideGateway(cfg *brcfg.Config, clock clockwork.Clock) (market.Gateway, error) {
	ex := cfg.Exchange
	bcfg := binance.Config{
		RESTBaseURL:  ex.RESTBaseURL,
		HTTPTimeout:  time.Duration(ex.HTTPTimeoutSeconds) * time.Second,
		ProxyEnabled: ex.ProxyEnabled,
		RESTProxyURL: ex.ProxyURL,
	}
	if cfg.Trading.IsLive() {
		bcfg.APIKey = ex.APIKey
		bcfg.APISecret = ex.APISecret
	}
	live, err := binance.New(bcfg, clock)
	if err != nil {
		return nil, err
	}
	if cfg.Trading.IsLive() {
		return live, nil
	}
	return paper.New(live, cfg.Trading.InitialEquity, clock), nil
}

func provideStore(cfg *brcfg.Config) (*sqlite.SqliteStore, error) {
	return sqlite.NewSqliteStore(cfg.Store.Path)
}

func provideJournal(cfg *brcfg.Config) (journal.Journal, error) {
	switch cfg.Store.Journal {
	case brcfg.JournalSQLite:
		return journal.NewSQLiteJournal(cfg.Store.JournalPath)
	case brcfg.JournalFile:
		return journal.NewFileJournal(cfg.Store.JournalPath)
	default:
		return journal.Nop{}, nil
	}
}

// provideNotifier always returns a queue; without Telegram it accepts nothing.
func provideNotifier(cfg *brcfg.Config) *notifier.Queue {
	tg := cfg.Notify.Telegram
	if !tg.Enabled {
		return notifier.NewQueue(nil, tg.QueueSize, notifyTimeout)
	}
	return notifier.NewQueue(notifier.NewTelegram(tg.BotToken, tg.ChatID), tg.QueueSize, notifyTimeout)
}

func providePolicy(cfg *brcfg.Config) (policy.Source, error) {
	if !cfg.Policy.Enabled {
		return policy.Static(policy.Policy{}), nil
	}
	reg, err := policy.NewRegistry(cfg.Policy.Path, cfg.Policy.Watch)
	if err != nil {
		return nil, err
	}
	reg.OnChange(func(snap policy.Snapshot) {
		logger.Infof("policy reloaded: version=%d enabled=%v", snap.Version, snap.Policy.Enabled)
	})
	return reg, nil
}

func traderConfig(cfg *brcfg.Config) trader.Config {
	r := cfg.Risk
	s := cfg.Schedule
	return trader.Config{
		Mode:             cfg.Trading.Mode,
		Symbol:           cfg.Trading.Symbol,
		Interval:         cfg.Trading.Interval,
		BarLimit:         cfg.Trading.BarLimit,
		OrderType:        market.OrderType(strings.ToUpper(cfg.Trading.OrderType)),
		TrailingFraction: cfg.Trading.TrailingFraction,
		InitialEquity:    cfg.Trading.InitialEquity,
		Limits: risk.Limits{
			RiskPerTrade:    r.RiskPerTrade,
			DailyLossStop:   r.DailyLossStop,
			CooldownBars:    r.CooldownBars,
			MaxTradesPerDay: r.MaxTradesPerDay,
			MaxPositionPct:  r.MaxPositionPct,
		},
		KillSwitch: trader.KillSwitchLimits{
			DailyLossStop:  r.DailyLossStop,
			MaxDrawdownPct: r.MaxDrawdownPct,
			MaxAPIFailures: r.MaxAPIFailures,
		},
		PollInterval:      s.PollInterval(),
		GatewayTimeout:    s.GatewayTimeout(),
		EquityRefreshBars: s.EquityRefreshBars,
		KillSwitchEvery:   s.KillSwitchEvery(),
		HeartbeatEvery:    s.HeartbeatEvery(),
		DailyReportAt:     s.DailyReportAt,
		Location:          cfg.App.Location(),
	}
}

func provideTrader(cfg *brcfg.Config, gw market.Gateway, st *sqlite.SqliteStore, jr journal.Journal, q *notifier.Queue, pol policy.Source, clock clockwork.Clock) (*trader.Trader, error) {
	return trader.NewTrader(traderConfig(cfg), trader.Deps{
		Gateway:  gw,
		Store:    st,
		Journal:  jr,
		Notifier: q,
		Policy:   pol,
		Clock:    clock,
	})
}

func provideOpsServer(cfg *brcfg.Config, tr *trader.Trader) (*opshttp.Server, error) {
	return opshttp.NewServer(cfg.App.HTTPAddr, tr)
}
