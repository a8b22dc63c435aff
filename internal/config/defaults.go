package config

import "strings"

const (
	defaultAppEnv             = "dev"
	defaultAppLogLevel        = "info"
	defaultAppLogPath         = "data/logs/spotbot.log"
	defaultAppHTTPAddr        = ":9992"
	defaultAppTimezone        = "Asia/Dhaka"
	defaultTradingMode        = ModePaper
	defaultTradingSymbol      = "SOLUSDT"
	defaultTradingInterval    = "15m"
	defaultTradingBarLimit    = 100
	defaultTradingEquity      = 10000
	defaultTradingQuote       = "USDT"
	defaultTradingTrailing    = 0.02
	defaultTradingOrderType   = "market"
	defaultRiskPerTrade       = 0.005
	defaultRiskDailyLossStop  = 0.015
	defaultRiskCooldownBars   = 1
	defaultRiskMaxDrawdownPct = 12
	defaultRiskMaxAPIFailures = 5
	defaultRiskMaxTradesDay   = 20
	defaultRiskMaxPositionPct = 0.2
	defaultSchedulePoll       = 5
	defaultScheduleEquityBars = 4
	defaultScheduleKillSwitch = 15
	defaultScheduleHeartbeat  = 6
	defaultScheduleDaily      = "23:59"
	defaultScheduleTimeout    = 10
	defaultExchangeREST       = "https://api.binance.com"
	defaultExchangeTimeout    = 15
	defaultTelegramQueue      = 64
	defaultStorePath          = "data/db/spotbot.db"
	defaultStoreJournal       = JournalSQLite
	defaultStoreJournalPath   = "data/db/journal.db"
	defaultPolicyPath         = "configs/policy.yaml"
)

// applyDefaults fills fields the file left out. Keys present in the file are
// never overwritten, so an explicit zero reaches validation.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Notify.Telegram.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Policy.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.timezone", &a.Timezone, defaultAppTimezone),
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("trading.mode", &t.Mode, defaultTradingMode),
		stringFieldDefault("trading.symbol", &t.Symbol, defaultTradingSymbol),
		stringFieldDefault("trading.interval", &t.Interval, defaultTradingInterval),
		intFieldDefault("trading.bar_limit", &t.BarLimit, defaultTradingBarLimit),
		floatFieldDefault("trading.initial_equity", &t.InitialEquity, defaultTradingEquity),
		stringFieldDefault("trading.quote_asset", &t.QuoteAsset, defaultTradingQuote),
		floatFieldDefault("trading.trailing_fraction", &t.TrailingFraction, defaultTradingTrailing),
		stringFieldDefault("trading.order_type", &t.OrderType, defaultTradingOrderType),
	)
	t.Mode = strings.ToLower(strings.TrimSpace(t.Mode))
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.QuoteAsset = strings.ToUpper(strings.TrimSpace(t.QuoteAsset))
	t.Interval = strings.ToLower(strings.TrimSpace(t.Interval))
	t.OrderType = strings.ToLower(strings.TrimSpace(t.OrderType))
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("risk.risk_per_trade", &r.RiskPerTrade, defaultRiskPerTrade),
		floatFieldDefault("risk.daily_loss_stop", &r.DailyLossStop, defaultRiskDailyLossStop),
		intFieldDefault("risk.cooldown_bars", &r.CooldownBars, defaultRiskCooldownBars),
		floatFieldDefault("risk.max_drawdown_pct", &r.MaxDrawdownPct, defaultRiskMaxDrawdownPct),
		intFieldDefault("risk.max_api_failures", &r.MaxAPIFailures, defaultRiskMaxAPIFailures),
		intFieldDefault("risk.max_trades_per_day", &r.MaxTradesPerDay, defaultRiskMaxTradesDay),
		floatFieldDefault("risk.max_position_pct", &r.MaxPositionPct, defaultRiskMaxPositionPct),
	)
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("schedule.poll_seconds", &s.PollSeconds, defaultSchedulePoll),
		intFieldDefault("schedule.equity_refresh_bars", &s.EquityRefreshBars, defaultScheduleEquityBars),
		intFieldDefault("schedule.kill_switch_minutes", &s.KillSwitchMinutes, defaultScheduleKillSwitch),
		intFieldDefault("schedule.heartbeat_hours", &s.HeartbeatHours, defaultScheduleHeartbeat),
		stringFieldDefault("schedule.daily_report_at", &s.DailyReportAt, defaultScheduleDaily),
		intFieldDefault("schedule.gateway_timeout_seconds", &s.GatewayTimeoutSeconds, defaultScheduleTimeout),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.rest_base_url", &e.RESTBaseURL, defaultExchangeREST),
		intFieldDefault("exchange.http_timeout_seconds", &e.HTTPTimeoutSeconds, defaultExchangeTimeout),
	)
}

func (t *TelegramConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("notify.telegram.queue_size", &t.QueueSize, defaultTelegramQueue),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		stringFieldDefault("store.journal", &s.Journal, defaultStoreJournal),
		stringFieldDefault("store.journal_path", &s.JournalPath, defaultStoreJournalPath),
	)
	s.Journal = strings.ToLower(strings.TrimSpace(s.Journal))
}

func (p *PolicyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("policy.path", &p.Path, defaultPolicyPath),
		boolFieldDefault("policy.watch", &p.Watch, true),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target == 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target == 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault only applies when the key is absent from the file.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}
