package trader

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"

	"spotbot/internal/store/model"
)

// ExitReason values are user-facing and persisted as-is.
type ExitReason string

const (
	ExitStopLoss     ExitReason = "Stop Loss"
	ExitTakeProfit   ExitReason = "Take Profit"
	ExitTrailingStop ExitReason = "Trailing Stop"
)

var ErrAlreadyClosed = errors.New("trade already closed")

// Trade is a long spot position from entry fill to exit fill.
type Trade struct {
	ID               string     `json:"id"`
	Symbol           string     `json:"symbol"`
	Qty              float64    `json:"qty"`
	EntryPrice       float64    `json:"entry_price"`
	StopPrice        float64    `json:"stop_price"`
	TargetPrice      float64    `json:"target_price"`
	TrailingFraction float64    `json:"trailing_fraction,omitempty"`
	TrailingRef      float64    `json:"trailing_ref,omitempty"`
	OpenBar          int64      `json:"open_bar"`
	OpenedAt         time.Time  `json:"opened_at"`
	EntryOrderID     string     `json:"entry_order_id,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CloseBar         int64      `json:"close_bar,omitempty"`
	ExitPrice        float64    `json:"exit_price,omitempty"`
	ExitReason       ExitReason `json:"exit_reason,omitempty"`
	ExitOrderID      string     `json:"exit_order_id,omitempty"`
	PnLQuote         float64    `json:"pnl_quote,omitempty"`
	PnLPct           float64    `json:"pnl_pct,omitempty"`
}

// OpenTrade starts a trade with the trailing reference at the entry price.
func OpenTrade(id, symbol string, qty, entry, stop, target, trailing float64, bar int64, at time.Time) *Trade {
	tr := &Trade{
		ID:               id,
		Symbol:           symbol,
		Qty:              qty,
		EntryPrice:       entry,
		StopPrice:        stop,
		TargetPrice:      target,
		TrailingFraction: trailing,
		OpenBar:          bar,
		OpenedAt:         at,
	}
	if trailing > 0 {
		tr.TrailingRef = entry
	}
	return tr
}

func (t *Trade) IsOpen() bool { return t != nil && t.ClosedAt == nil }

// TrailingStop is the current trailing trigger price, 0 when trailing is off.
func (t *Trade) TrailingStop() float64 {
	if t.TrailingFraction <= 0 {
		return 0
	}
	return trailingStopFor(t.TrailingRef, t.TrailingFraction)
}

// ObservePrice ratchets the trailing reference upward and reports whether it moved.
func (t *Trade) ObservePrice(price float64) bool {
	if !t.IsOpen() || t.TrailingFraction <= 0 || !shouldRaiseAnchor(price, t.TrailingRef) {
		return false
	}
	t.TrailingRef = price
	return true
}

// ExitDecision says whether and at which reference price a trade should close.
type ExitDecision struct {
	Reason ExitReason
	Price  float64
}

// CheckExit applies stop, target and trailing rules in that order. The
// trailing reference is ratcheted before the trailing test.
func (t *Trade) CheckExit(price float64) (ExitDecision, bool) {
	if !t.IsOpen() || price <= 0 {
		return ExitDecision{}, false
	}
	if hitStopLoss(price, t.StopPrice) {
		return ExitDecision{Reason: ExitStopLoss, Price: t.StopPrice}, true
	}
	if hitTarget(price, t.TargetPrice) {
		return ExitDecision{Reason: ExitTakeProfit, Price: t.TargetPrice}, true
	}
	t.ObservePrice(price)
	if stop := t.TrailingStop(); stop > 0 && hitStopLoss(price, stop) {
		return ExitDecision{Reason: ExitTrailingStop, Price: price}, true
	}
	return ExitDecision{}, false
}

// Close finalises the trade. It fails if the trade is already closed.
func (t *Trade) Close(exitPrice float64, reason ExitReason, bar int64, at time.Time) error {
	if t.ClosedAt != nil {
		return ErrAlreadyClosed
	}
	closedAt := at
	t.ClosedAt = &closedAt
	t.CloseBar = bar
	t.ExitPrice = exitPrice
	t.ExitReason = reason
	t.PnLQuote, t.PnLPct = pnl(t.EntryPrice, exitPrice, t.Qty)
	return nil
}

func (t *Trade) toModel(diag any) *model.TradeModel {
	m := &model.TradeModel{
		ID:               t.ID,
		Symbol:           t.Symbol,
		Status:           model.TradeStatusOpen,
		Qty:              t.Qty,
		EntryPrice:       t.EntryPrice,
		StopPrice:        t.StopPrice,
		TargetPrice:      t.TargetPrice,
		TrailingFraction: t.TrailingFraction,
		TrailingRef:      t.TrailingRef,
		OpenBar:          t.OpenBar,
		OpenedAt:         t.OpenedAt.UnixMilli(),
		EntryOrderID:     t.EntryOrderID,
	}
	if diag != nil {
		if raw, err := json.Marshal(diag); err == nil {
			m.Diagnostics = datatypes.JSON(raw)
		}
	}
	if t.ClosedAt != nil {
		closedAt := t.ClosedAt.UnixMilli()
		closeBar := t.CloseBar
		exit, pq, pp := t.ExitPrice, t.PnLQuote, t.PnLPct
		m.Status = model.TradeStatusClosed
		m.ClosedAt = &closedAt
		m.CloseBar = &closeBar
		m.ExitPrice = &exit
		m.ExitReason = string(t.ExitReason)
		m.ExitOrderID = t.ExitOrderID
		m.PnLQuote = &pq
		m.PnLPct = &pp
	}
	return m
}

func tradeFromModel(m model.TradeModel) *Trade {
	t := &Trade{
		ID:               m.ID,
		Symbol:           m.Symbol,
		Qty:              m.Qty,
		EntryPrice:       m.EntryPrice,
		StopPrice:        m.StopPrice,
		TargetPrice:      m.TargetPrice,
		TrailingFraction: m.TrailingFraction,
		TrailingRef:      m.TrailingRef,
		OpenBar:          m.OpenBar,
		OpenedAt:         time.UnixMilli(m.OpenedAt),
		EntryOrderID:     m.EntryOrderID,
		ExitReason:       ExitReason(m.ExitReason),
		ExitOrderID:      m.ExitOrderID,
	}
	if t.TrailingFraction > 0 && t.TrailingRef <= 0 {
		t.TrailingRef = t.EntryPrice
	}
	if m.ClosedAt != nil {
		at := time.UnixMilli(*m.ClosedAt)
		t.ClosedAt = &at
	}
	if m.CloseBar != nil {
		t.CloseBar = *m.CloseBar
	}
	if m.ExitPrice != nil {
		t.ExitPrice = *m.ExitPrice
	}
	if m.PnLQuote != nil {
		t.PnLQuote = *m.PnLQuote
	}
	if m.PnLPct != nil {
		t.PnLPct = *m.PnLPct
	}
	return t
}
