package config

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// Config is the whole process configuration.
type Config struct {
	App      AppConfig      `toml:"app"`
	Trading  TradingConfig  `toml:"trading"`
	Risk     RiskConfig     `toml:"risk"`
	Schedule ScheduleConfig `toml:"schedule"`
	Exchange ExchangeConfig `toml:"exchange"`
	Notify   NotifyConfig   `toml:"notify"`
	Store    StoreConfig    `toml:"store"`
	Policy   PolicyConfig   `toml:"policy"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
	Timezone string `toml:"timezone"`
}

// Location resolves Timezone; validation guarantees it parses.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

const (
	ModePaper = "paper"
	ModeLive  = "live"
)

type TradingConfig struct {
	Mode             string  `toml:"mode"`
	Symbol           string  `toml:"symbol"`
	Interval         string  `toml:"interval"`
	BarLimit         int     `toml:"bar_limit"`
	InitialEquity    float64 `toml:"initial_equity"`
	QuoteAsset       string  `toml:"quote_asset"`
	TrailingFraction float64 `toml:"trailing_fraction"`
	OrderType        string  `toml:"order_type"`
}

func (t TradingConfig) IsLive() bool {
	return strings.EqualFold(t.Mode, ModeLive)
}

// RiskConfig holds the entry guardrails and the kill-switch thresholds.
type RiskConfig struct {
	RiskPerTrade    float64 `toml:"risk_per_trade"`
	DailyLossStop   float64 `toml:"daily_loss_stop"`
	CooldownBars    int     `toml:"cooldown_bars"`
	MaxDrawdownPct  float64 `toml:"max_drawdown_pct"`
	MaxAPIFailures  int     `toml:"max_api_failures"`
	MaxTradesPerDay int     `toml:"max_trades_per_day"`
	MaxPositionPct  float64 `toml:"max_position_pct"`
}

type ScheduleConfig struct {
	PollSeconds           int    `toml:"poll_seconds"`
	EquityRefreshBars     int    `toml:"equity_refresh_bars"`
	KillSwitchMinutes     int    `toml:"kill_switch_minutes"`
	HeartbeatHours        int    `toml:"heartbeat_hours"`
	DailyReportAt         string `toml:"daily_report_at"`
	GatewayTimeoutSeconds int    `toml:"gateway_timeout_seconds"`
}

func (s ScheduleConfig) PollInterval() time.Duration {
	return time.Duration(s.PollSeconds) * time.Second
}

func (s ScheduleConfig) KillSwitchEvery() time.Duration {
	return time.Duration(s.KillSwitchMinutes) * time.Minute
}

func (s ScheduleConfig) HeartbeatEvery() time.Duration {
	return time.Duration(s.HeartbeatHours) * time.Hour
}

func (s ScheduleConfig) GatewayTimeout() time.Duration {
	return time.Duration(s.GatewayTimeoutSeconds) * time.Second
}

// ExchangeConfig configures the Binance spot REST client. Keys are normally
// supplied through the environment.
type ExchangeConfig struct {
	RESTBaseURL        string `toml:"rest_base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	APIKey             string `toml:"api_key"`
	APISecret          string `toml:"api_secret"`
	ProxyEnabled       bool   `toml:"proxy_enabled"`
	ProxyURL           string `toml:"proxy_url"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool   `toml:"enabled"`
	BotToken  string `toml:"bot_token"`
	ChatID    string `toml:"chat_id"`
	QueueSize int    `toml:"queue_size"`
}

const (
	JournalSQLite = "sqlite"
	JournalFile   = "file"
	JournalNone   = "none"
)

type StoreConfig struct {
	Path        string `toml:"path"`
	Journal     string `toml:"journal"`
	JournalPath string `toml:"journal_path"`
}

// PolicyConfig points at the optional enhanced entry policy.
type PolicyConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Watch   bool   `toml:"watch"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
