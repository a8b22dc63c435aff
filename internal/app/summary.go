package app

import (
	"fmt"
	"strings"

	brcfg "spotbot/internal/config"
	"spotbot/internal/logger"
)

// StartupSummary is logged once before the loop starts.
type StartupSummary struct {
	Mode     string
	Symbol   string
	Interval string
	Equity   float64
	Risk     brcfg.RiskConfig
	Schedule brcfg.ScheduleConfig
	Store    string
	Journal  string
	Telegram bool
	Policy   string
	HTTPAddr string
	Timezone string
}

func newStartupSummary(cfg *brcfg.Config) *StartupSummary {
	pol := "baseline"
	if cfg.Policy.Enabled {
		pol = cfg.Policy.Path
		if cfg.Policy.Watch {
			pol += " (watch)"
		}
	}
	return &StartupSummary{
		Mode:     cfg.Trading.Mode,
		Symbol:   cfg.Trading.Symbol,
		Interval: cfg.Trading.Interval,
		Equity:   cfg.Trading.InitialEquity,
		Risk:     cfg.Risk,
		Schedule: cfg.Schedule,
		Store:    cfg.Store.Path,
		Journal:  cfg.Store.Journal,
		Telegram: cfg.Notify.Telegram.Enabled,
		Policy:   pol,
		HTTPAddr: cfg.App.HTTPAddr,
		Timezone: cfg.App.Timezone,
	}
}

func (s *StartupSummary) String() string {
	lines := []string{
		strings.Repeat("=", 60),
		"STARTUP SUMMARY",
		strings.Repeat("=", 60),
		fmt.Sprintf("mode:        %s", s.Mode),
		fmt.Sprintf("market:      %s %s", s.Symbol, s.Interval),
		fmt.Sprintf("equity:      %.2f (paper start)", s.Equity),
		fmt.Sprintf("risk:        per_trade=%.4f daily_stop=%.4f cooldown=%d max_trades=%d",
			s.Risk.RiskPerTrade, s.Risk.DailyLossStop, s.Risk.CooldownBars, s.Risk.MaxTradesPerDay),
		fmt.Sprintf("killswitch:  drawdown=%.1f%% api_failures=%d every=%dm",
			s.Risk.MaxDrawdownPct, s.Risk.MaxAPIFailures, s.Schedule.KillSwitchMinutes),
		fmt.Sprintf("schedule:    poll=%ds equity_every=%d bars heartbeat=%dh report=%s",
			s.Schedule.PollSeconds, s.Schedule.EquityRefreshBars, s.Schedule.HeartbeatHours, s.Schedule.DailyReportAt),
		fmt.Sprintf("store:       %s journal=%s", s.Store, s.Journal),
		fmt.Sprintf("telegram:    %v", s.Telegram),
		fmt.Sprintf("policy:      %s", s.Policy),
		fmt.Sprintf("ops http:    %s", s.HTTPAddr),
		fmt.Sprintf("timezone:    %s", s.Timezone),
		strings.Repeat("=", 60),
	}
	return strings.Join(lines, "\n")
}

func (s *StartupSummary) Print() {
	logger.InfoBlock(s.String())
}
