package trader

import (
	"encoding/json"
	"time"

	"spotbot/internal/market"
	"spotbot/internal/strategy"
)

// EventType names an actor message.
type EventType string

const (
	// EvtPollResult carries the bar window and price fetched by the poll loop.
	EvtPollResult EventType = "POLL_RESULT"
	// EvtOrderResult reports an async order placement.
	EvtOrderResult EventType = "ORDER_RESULT"
	// EvtEquityResult reports an async balance read.
	EvtEquityResult    EventType = "EQUITY_RESULT"
	EvtKillSwitchCheck EventType = "KILL_SWITCH_CHECK"
	EvtHeartbeat       EventType = "HEARTBEAT"
	EvtDailyReport     EventType = "DAILY_REPORT"
	// EvtResume is the operator action that clears the kill-switch latch.
	EvtResume EventType = "RESUME"
	EvtPause  EventType = "PAUSE"
)

const (
	OrderActionOpen  = "open"
	OrderActionClose = "close"
)

// Order error kinds. Only gateway errors count against API health.
const (
	OrderErrorGateway  = "gateway"
	OrderErrorRejected = "rejected"
)

// EventEnvelope is the message the actor receives. Payload is JSON and is
// journaled; Data carries in-process values that are never journaled.
type EventEnvelope struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	TradeID   string          `json:"trade_id,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`

	Data any `json:"-"`

	// ReplyCh receives the handler error for SendSync callers.
	ReplyCh chan error `json:"-"`
}

// PollResult is what one poll iteration fetched.
type PollResult struct {
	Bars        market.Bars
	Price       float64
	Constraints market.SymbolConstraints
	Err         error
	FetchedAt   time.Time
}

// OrderResultPayload carries the outcome of an async order.
type OrderResultPayload struct {
	RequestID   string          `json:"request_id"`
	Action      string          `json:"action"`
	Reason      string          `json:"reason,omitempty"`
	TradeID     string          `json:"trade_id,omitempty"`
	Symbol      string          `json:"symbol"`
	Side        market.Side     `json:"side"`
	Qty         float64         `json:"qty"`
	RefPrice    float64         `json:"ref_price"`
	StopPrice   float64         `json:"stop_price,omitempty"`
	TargetPrice float64         `json:"target_price,omitempty"`
	Diagnostics json.RawMessage `json:"diagnostics,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	Status      string          `json:"status,omitempty"`
	FillQty     float64         `json:"fill_qty,omitempty"`
	FillPrice   float64         `json:"fill_price,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// EquityPayload is one balance reading. Error is set when the read failed.
type EquityPayload struct {
	Purpose string  `json:"purpose"`
	Quote   float64 `json:"quote"`
	Base    float64 `json:"base"`
	Price   float64 `json:"price"`
	Total   float64 `json:"total"`
	Error   string  `json:"error,omitempty"`
}

// JobPayload is posted by the scheduled jobs with a fresh equity reading.
type JobPayload struct {
	Equity *EquityPayload `json:"equity,omitempty"`
}

type ResumePayload struct {
	Operator string `json:"operator,omitempty"`
}

type PausePayload struct {
	Reason string `json:"reason"`
}

// KillSwitchState is the global pause latch.
type KillSwitchState struct {
	Paused          bool       `json:"paused"`
	APIFailureCount int        `json:"api_failure_count"`
	TripReason      string     `json:"trip_reason,omitempty"`
	TrippedAt       *time.Time `json:"tripped_at,omitempty"`
}

// RiskSummary is the read-only view of the risk book.
type RiskSummary struct {
	Equity           float64    `json:"equity"`
	PeakEquity       float64    `json:"peak_equity"`
	DrawdownPct      float64    `json:"drawdown_pct"`
	TodayStartEquity float64    `json:"today_start_equity"`
	TodayRealizedPnL float64    `json:"today_realized_pnl"`
	TradesToday      int        `json:"trades_today"`
	InCooldown       bool       `json:"in_cooldown"`
	BarsSinceClose   int64      `json:"bars_since_close"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
}

// SignalSummary describes the last evaluated bar.
type SignalSummary struct {
	Kind        strategy.Kind        `json:"kind"`
	OpenTime    int64                `json:"open_time"`
	StopPrice   float64              `json:"stop_price,omitempty"`
	TargetPrice float64              `json:"target_price,omitempty"`
	Failed      []strategy.Condition `json:"failed,omitempty"`
	Met         int                  `json:"met"`
	Strength    float64              `json:"strength"`
	Trend       string               `json:"trend,omitempty"`
	Volatility  string               `json:"volatility,omitempty"`
}

// Status is the immutable snapshot served to readers outside the actor.
type Status struct {
	Mode            string          `json:"mode"`
	Symbol          string          `json:"symbol"`
	Interval        string          `json:"interval"`
	KillSwitch      KillSwitchState `json:"kill_switch"`
	Risk            RiskSummary     `json:"risk"`
	OpenTrades      []Trade         `json:"open_trades"`
	LastTrade       *Trade          `json:"last_trade,omitempty"`
	LastSignal      *SignalSummary  `json:"last_signal,omitempty"`
	LastBarOpenTime int64           `json:"last_bar_open_time"`
	LastPrice       float64         `json:"last_price"`
	PendingEntry    bool            `json:"pending_entry"`
	StartedAt       time.Time       `json:"started_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
