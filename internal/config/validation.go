package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"spotbot/internal/pkg/symbol"
	"spotbot/internal/scheduler"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if c.Trading.IsLive() && (strings.TrimSpace(c.Exchange.APIKey) == "" || strings.TrimSpace(c.Exchange.APISecret) == "") {
		return invalidf("live mode requires BINANCE_API_KEY and BINANCE_API_SECRET")
	}
	if c.Exchange.ProxyEnabled && strings.TrimSpace(c.Exchange.ProxyURL) == "" {
		return invalidf("exchange.proxy_url is required when proxy_enabled = true")
	}
	if c.Policy.Enabled && strings.TrimSpace(c.Policy.Path) == "" {
		return invalidf("policy.path is required when policy is enabled")
	}
	return nil
}

func (a *AppConfig) validate() error {
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return invalidf("app.timezone %q: %v", a.Timezone, err)
	}
	return nil
}

func (t *TradingConfig) validate() error {
	switch t.Mode {
	case ModePaper, ModeLive:
	default:
		return invalidf("trading.mode must be paper or live, got %q", t.Mode)
	}
	if !symbol.IsValid(t.Symbol) {
		return invalidf("trading.symbol %q is not a spot pair", t.Symbol)
	}
	if _, ok := scheduler.ParseIntervalDuration(t.Interval); !ok {
		return invalidf("trading.interval %q is not a kline interval", t.Interval)
	}
	if t.BarLimit < 50 || t.BarLimit > 1000 {
		return invalidf("trading.bar_limit must be within [50,1000], got %d", t.BarLimit)
	}
	if t.InitialEquity <= 0 {
		return invalidf("trading.initial_equity must be > 0")
	}
	if t.TrailingFraction < 0 || t.TrailingFraction >= 1 {
		return invalidf("trading.trailing_fraction must be within [0,1)")
	}
	switch t.OrderType {
	case "market", "limit":
	default:
		return invalidf("trading.order_type must be market or limit, got %q", t.OrderType)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	for _, f := range []struct {
		key string
		val float64
	}{
		{"risk.risk_per_trade", r.RiskPerTrade},
		{"risk.daily_loss_stop", r.DailyLossStop},
		{"risk.max_position_pct", r.MaxPositionPct},
	} {
		if f.val <= 0 || f.val >= 1 {
			return invalidf("%s must be within (0,1), got %v", f.key, f.val)
		}
	}
	if r.CooldownBars < 0 {
		return invalidf("risk.cooldown_bars must be >= 0")
	}
	if r.MaxDrawdownPct <= 0 || r.MaxDrawdownPct > 100 {
		return invalidf("risk.max_drawdown_pct must be within (0,100], got %v", r.MaxDrawdownPct)
	}
	if r.MaxAPIFailures < 1 {
		return invalidf("risk.max_api_failures must be >= 1")
	}
	if r.MaxTradesPerDay < 1 {
		return invalidf("risk.max_trades_per_day must be >= 1")
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if s.PollSeconds <= 0 {
		return invalidf("schedule.poll_seconds must be > 0")
	}
	if s.EquityRefreshBars <= 0 {
		return invalidf("schedule.equity_refresh_bars must be > 0")
	}
	if s.KillSwitchMinutes <= 0 || s.HeartbeatHours <= 0 {
		return invalidf("schedule.kill_switch_minutes and heartbeat_hours must be > 0")
	}
	if s.GatewayTimeoutSeconds <= 0 {
		return invalidf("schedule.gateway_timeout_seconds must be > 0")
	}
	if _, _, err := scheduler.ParseClock(s.DailyReportAt); err != nil {
		return invalidf("schedule.daily_report_at: %v", err)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "" {
		return invalidf("notify.telegram enabled but bot_token/chat_id missing (TG_BOT_TOKEN, TG_CHAT_ID)")
	}
	if tg.QueueSize <= 0 {
		return invalidf("notify.telegram.queue_size must be > 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return invalidf("store.path is required")
	}
	switch s.Journal {
	case JournalSQLite, JournalFile:
		if strings.TrimSpace(s.JournalPath) == "" {
			return invalidf("store.journal_path is required for journal %q", s.Journal)
		}
	case JournalNone:
	default:
		return invalidf("store.journal must be sqlite, file or none, got %q", s.Journal)
	}
	return nil
}
