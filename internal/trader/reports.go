package trader

import (
	"fmt"
	"time"

	"spotbot/internal/gateway/notifier"
	"spotbot/internal/store"
	"spotbot/internal/store/model"
)

func (t *Trader) entryMessage(tr *Trade) string {
	msg := notifier.StructuredMessage{
		Icon:  "🟢",
		Title: "Entry: " + tr.Symbol,
		Fields: []notifier.Field{
			notifier.F("Qty", "%.8g", tr.Qty),
			notifier.F("Entry", "%.8g", tr.EntryPrice),
			notifier.F("Stop", "%.8g", tr.StopPrice),
			notifier.F("Target", "%.8g", tr.TargetPrice),
		},
		Timestamp: tr.OpenedAt.In(t.cfg.Location),
	}
	if tr.TrailingFraction > 0 {
		msg.Fields = append(msg.Fields, notifier.F("Trailing", "%.2f%%", tr.TrailingFraction*100))
	}
	if d := t.state.LastDecision; d != nil {
		msg.Footer = fmt.Sprintf("Trend %s, volatility %s", d.Diagnostics.Market.Trend, d.Diagnostics.Market.Volatility)
	}
	return msg.RenderMarkdown()
}

func (t *Trader) closeMessage(tr *Trade) string {
	icon := "🔴"
	if tr.PnLQuote >= 0 {
		icon = "✅"
	}
	at := t.clock.Now()
	if tr.ClosedAt != nil {
		at = *tr.ClosedAt
	}
	msg := notifier.StructuredMessage{
		Icon:  icon,
		Title: fmt.Sprintf("Exit (%s): %s", tr.ExitReason, tr.Symbol),
		Fields: []notifier.Field{
			notifier.F("Qty", "%.8g", tr.Qty),
			notifier.F("Entry", "%.8g", tr.EntryPrice),
			notifier.F("Exit", "%.8g", tr.ExitPrice),
			notifier.F("PnL", "%+.2f (%+.2f%%)", tr.PnLQuote, tr.PnLPct*100),
			notifier.F("Held", "%s", at.Sub(tr.OpenedAt).Round(time.Minute)),
		},
		Timestamp: at.In(t.cfg.Location),
	}
	return msg.RenderMarkdown()
}

func (t *Trader) killSwitchMessage(now time.Time) string {
	rs := t.state.Risk.State()
	msg := notifier.StructuredMessage{
		Icon:  "🛑",
		Title: "Kill switch tripped",
		Fields: []notifier.Field{
			notifier.F("Reason", "%s", t.state.Kill.TripReason),
			notifier.F("Equity", "%.2f", rs.CurrentEquity),
			notifier.F("Peak", "%.2f", rs.PeakEquity),
			notifier.F("Drawdown", "%.2f%%", t.state.Risk.Drawdown()),
			notifier.F("PnL today", "%+.2f", rs.TodayRealizedPnL),
			notifier.F("API failures", "%d", t.state.Health.Failures()),
		},
		Footer:    "New entries are paused until an operator resumes trading. Open trades are still monitored.",
		Timestamp: now.In(t.cfg.Location),
	}
	return msg.RenderMarkdown()
}

func (t *Trader) resumeMessage(operator, prev string, now time.Time) string {
	if operator == "" {
		operator = "operator"
	}
	msg := notifier.StructuredMessage{
		Icon:  "▶️",
		Title: "Trading resumed",
		Fields: []notifier.Field{
			notifier.F("By", "%s", operator),
			notifier.F("Previous reason", "%s", prev),
		},
		Timestamp: now.In(t.cfg.Location),
	}
	return msg.RenderMarkdown()
}

func (t *Trader) heartbeatMessage(now time.Time) string {
	st := t.state
	rs := st.Risk.State()
	status := "running"
	if st.Kill.Paused {
		status = "paused: " + st.Kill.TripReason
	}
	msg := notifier.StructuredMessage{
		Icon:  "💓",
		Title: "Heartbeat: " + t.cfg.Symbol,
		Fields: []notifier.Field{
			notifier.F("Mode", "%s", t.cfg.Mode),
			notifier.F("Status", "%s", status),
			notifier.F("Uptime", "%s", now.Sub(st.StartedAt).Round(time.Minute)),
			notifier.F("Equity", "%.2f", rs.CurrentEquity),
			notifier.F("Peak", "%.2f", rs.PeakEquity),
			notifier.F("Drawdown", "%.2f%%", st.Risk.Drawdown()),
			notifier.F("Open trades", "%d", len(st.Open)),
			notifier.F("Last price", "%.8g", st.LastPrice),
			notifier.F("API failures", "%d", st.Health.Failures()),
		},
		Timestamp: now.In(t.cfg.Location),
	}
	if last := st.LastClosed; last != nil {
		msg.Sections = append(msg.Sections, notifier.MessageSection{
			Title: "Last trade",
			Lines: []string{fmt.Sprintf("%s %+.2f (%+.2f%%)", last.ExitReason, last.PnLQuote, last.PnLPct*100)},
		})
	}
	return msg.RenderMarkdown()
}

// dailyReport summarises the local day from the store and the risk book.
func (t *Trader) dailyReport(now time.Time) {
	st := t.state
	rs := st.Risk.State()
	dayStart := store.StartOfDay(now, t.cfg.Location)

	var closed []model.TradeModel
	var metrics store.DayMetrics
	if t.store != nil {
		ctx, cancel := t.storeContext()
		var err error
		closed, err = t.store.Trades().ListClosedBetween(ctx, dayStart.UnixMilli(), now.UnixMilli())
		if err != nil {
			log.Warnf("daily report: list trades: %v", err)
		}
		metrics, err = store.TodayMetrics(ctx, t.store.Equity(), dayStart)
		if err != nil {
			log.Warnf("daily report: equity metrics: %v", err)
		}
		cancel()
	}

	wins, losses := 0, 0
	var realized float64
	for _, m := range closed {
		if m.PnLQuote == nil {
			continue
		}
		realized += *m.PnLQuote
		if *m.PnLQuote >= 0 {
			wins++
		} else {
			losses++
		}
	}
	winRate := 0.0
	if n := wins + losses; n > 0 {
		winRate = float64(wins) / float64(n) * 100
	}

	msg := notifier.StructuredMessage{
		Icon:  "📊",
		Title: fmt.Sprintf("Daily report %s: %s", dayStart.Format("2006-01-02"), t.cfg.Symbol),
		Fields: []notifier.Field{
			notifier.F("Trades opened", "%d", rs.TradesToday),
			notifier.F("Trades closed", "%d (%d win / %d loss, %.0f%%)", len(closed), wins, losses, winRate),
			notifier.F("Realized PnL", "%+.2f", realized),
			notifier.F("Equity", "%.2f", rs.CurrentEquity),
			notifier.F("Peak", "%.2f", rs.PeakEquity),
			notifier.F("Drawdown", "%.2f%%", st.Risk.Drawdown()),
		},
		Timestamp: now.In(t.cfg.Location),
	}
	if metrics.StartEquity > 0 {
		msg.Fields = append(msg.Fields, notifier.F("Equity change", "%+.2f (%+.2f%%)", metrics.DailyPnL, metrics.DailyPnLPct))
	}
	if st.Kill.Paused {
		msg.Footer = "Kill switch active: " + st.Kill.TripReason
	}

	t.alert(model.AlertInfo, "Daily report", map[string]any{
		"day":           dayStart.Format("2006-01-02"),
		"trades_opened": rs.TradesToday,
		"trades_closed": len(closed),
		"wins":          wins,
		"losses":        losses,
		"realized_pnl":  realized,
		"equity":        rs.CurrentEquity,
		"drawdown_pct":  st.Risk.Drawdown(),
	}, now)
	t.notify(msg.RenderMarkdown())
}
