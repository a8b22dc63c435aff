package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"spotbot/internal/market"
	"spotbot/internal/store"
	"spotbot/internal/store/model"
)

// dispatchOrder places req outside the actor and posts the outcome back as
// an order result. The request fields travel with the result.
func (t *Trader) dispatchOrder(p OrderResultPayload) {
	req := market.OrderRequest{
		ClientID: p.RequestID,
		Symbol:   p.Symbol,
		Side:     p.Side,
		Type:     t.cfg.OrderType,
		Qty:      p.Qty,
		Price:    p.RefPrice,
	}
	log.Infof("order %s %s qty=%.8f ref=%.8f reason=%s", p.Action, req.Side, req.Qty, req.Price, p.Reason)
	t.spawn("order-"+p.Action, func(ctx context.Context) {
		res, err := t.gw.PlaceOrder(ctx, req)
		p.Timestamp = t.clock.Now()
		if err != nil {
			p.Error = market.WrapGatewayError("place_order", err).Error()
			p.ErrorKind = OrderErrorGateway
			if market.IsRejection(err) {
				p.ErrorKind = OrderErrorRejected
			}
			if market.IsTimeout(err) {
				p.Status = "TIMEOUT"
			}
		} else {
			p.OrderID = res.OrderID
			p.Status = res.Status
			p.FillQty = res.FilledQty
			p.FillPrice = res.FillPrice(req)
		}
		raw, err := json.Marshal(p)
		if err != nil {
			log.Errorf("encode order result: %v", err)
			return
		}
		t.post(EventEnvelope{
			ID:      newEventID("order-result"),
			Type:    EvtOrderResult,
			Payload: raw,
			TradeID: p.TradeID,
		})
	})
}

func (t *Trader) dispatchClose(tr *Trade, d ExitDecision, now time.Time) {
	t.dispatchOrder(OrderResultPayload{
		RequestID: newClientOrderID("close"),
		Action:    OrderActionClose,
		Reason:    string(d.Reason),
		TradeID:   tr.ID,
		Symbol:    tr.Symbol,
		Side:      market.SideSell,
		Qty:       tr.Qty,
		RefPrice:  d.Price,
		Timestamp: now,
	})
}

func (t *Trader) onOrderResult(p OrderResultPayload) error {
	t.saveOrder(p)
	switch p.Action {
	case OrderActionOpen:
		return t.onOpenResult(p)
	case OrderActionClose:
		return t.onCloseResult(p)
	default:
		return fmt.Errorf("unknown order action %q", p.Action)
	}
}

// recordOrderFailure feeds connectivity failures to the health counter.
// A rejected order reached the venue, so it leaves the counter alone.
func (t *Trader) recordOrderFailure(p OrderResultPayload, now time.Time) {
	if p.ErrorKind == OrderErrorRejected {
		log.Warnf("order %s %s rejected: %s", p.Action, p.RequestID, p.Error)
		return
	}
	t.recordAPIFailure(errors.New(p.Error), now)
}

func (t *Trader) onOpenResult(p OrderResultPayload) error {
	st := t.state
	now := t.clock.Now()
	st.PendingEntry = false
	if p.Error != "" {
		t.recordOrderFailure(p, now)
		t.alert(model.AlertWarn, "Entry order failed", map[string]any{"error": p.Error, "kind": p.ErrorKind, "qty": p.Qty}, now)
		return nil
	}
	t.recordAPISuccess()

	qty := p.FillQty
	if qty <= 0 {
		qty = p.Qty
	}
	tr := OpenTrade(uuid.NewString(), p.Symbol, qty, p.FillPrice, p.StopPrice, p.TargetPrice,
		t.cfg.TrailingFraction, st.BarIndex, now)
	tr.EntryOrderID = p.OrderID
	if t.store != nil {
		ctx, cancel := t.storeContext()
		defer cancel()
		m := tr.toModel(nil)
		if len(p.Diagnostics) > 0 {
			m.Diagnostics = datatypes.JSON(p.Diagnostics)
		}
		if err := t.store.Trades().Create(ctx, m); err != nil {
			log.Errorf("persist trade %s: %v", tr.ID, err)
		}
	}
	st.Open[tr.ID] = tr
	st.Risk.RecordOpen()
	log.Infof("trade opened id=%s qty=%.8f entry=%.8f stop=%.8f target=%.8f", tr.ID, tr.Qty, tr.EntryPrice, tr.StopPrice, tr.TargetPrice)

	t.alert(model.AlertInfo, "Trade opened", map[string]any{
		"trade_id": tr.ID,
		"qty":      tr.Qty,
		"entry":    tr.EntryPrice,
		"stop":     tr.StopPrice,
		"target":   tr.TargetPrice,
	}, now)
	t.notify(t.entryMessage(tr))
	return nil
}

func (t *Trader) onCloseResult(p OrderResultPayload) error {
	st := t.state
	now := t.clock.Now()
	delete(st.Closing, p.TradeID)
	tr, ok := st.Open[p.TradeID]
	if !ok {
		return fmt.Errorf("close result for unknown trade %s", p.TradeID)
	}
	if p.Error != "" {
		t.recordOrderFailure(p, now)
		log.Warnf("exit order for %s failed (%s), will retry: %s", tr.ID, p.ErrorKind, p.Error)
		return nil
	}
	t.recordAPISuccess()

	if err := tr.Close(p.FillPrice, ExitReason(p.Reason), st.BarIndex, now); err != nil {
		return err
	}
	tr.ExitOrderID = p.OrderID
	if t.store != nil {
		ctx, cancel := t.storeContext()
		defer cancel()
		if err := t.store.Trades().Close(ctx, tr.toModel(nil)); err != nil && !errors.Is(err, store.ErrTradeClosed) {
			log.Errorf("persist close %s: %v", tr.ID, err)
		}
	}
	delete(st.Open, tr.ID)
	st.LastClosed = tr

	pol := t.policy.Current()
	lockout := pol.LossLockout
	if !pol.Enabled {
		lockout.MaxConsecutiveLosses = 0
	}
	st.Risk.RecordClose(st.BarIndex, tr.PnLQuote, now, lockout)
	log.Infof("trade closed id=%s reason=%s exit=%.8f pnl=%.4f (%.2f%%)", tr.ID, tr.ExitReason, tr.ExitPrice, tr.PnLQuote, tr.PnLPct*100)

	t.alert(model.AlertInfo, "Trade closed: "+string(tr.ExitReason), map[string]any{
		"trade_id": tr.ID,
		"exit":     tr.ExitPrice,
		"pnl":      tr.PnLQuote,
		"pnl_pct":  tr.PnLPct,
	}, now)
	t.notify(t.closeMessage(tr))
	t.dispatchEquity("close")
	return nil
}

func (t *Trader) saveOrder(p OrderResultPayload) {
	if t.store == nil {
		return
	}
	ctx, cancel := t.storeContext()
	defer cancel()
	err := t.store.Orders().Save(ctx, &model.OrderModel{
		ClientID:  p.RequestID,
		OrderID:   p.OrderID,
		TradeID:   p.TradeID,
		Symbol:    p.Symbol,
		Side:      string(p.Side),
		Type:      string(t.cfg.OrderType),
		Qty:       p.Qty,
		RefPrice:  p.RefPrice,
		FilledQty: p.FillQty,
		AvgPrice:  p.FillPrice,
		Status:    p.Status,
		Error:     p.Error,
		CreatedAt: p.Timestamp.UnixMilli(),
	})
	if err != nil {
		log.Warnf("persist order %s: %v", p.RequestID, err)
	}
}

// probeEquity reads the balance; failures are reported in the payload.
func (t *Trader) probeEquity(ctx context.Context, purpose string) EquityPayload {
	eq, err := t.gw.Equity(ctx, t.cfg.Symbol)
	if err != nil {
		return EquityPayload{Purpose: purpose, Error: market.WrapGatewayError("equity", err).Error()}
	}
	return EquityPayload{Purpose: purpose, Quote: eq.Quote, Base: eq.Base, Price: eq.Price, Total: eq.Total()}
}

func (t *Trader) dispatchEquity(purpose string) {
	t.spawn("equity-"+purpose, func(ctx context.Context) {
		p := t.probeEquity(ctx, purpose)
		raw, err := json.Marshal(p)
		if err != nil {
			return
		}
		t.post(EventEnvelope{Type: EvtEquityResult, Payload: raw})
	})
}

// applyEquity books a reading into the risk engine and the snapshot table.
func (t *Trader) applyEquity(p EquityPayload, at time.Time) {
	st := t.state
	if at.IsZero() {
		at = t.clock.Now()
	}
	if p.Error != "" {
		t.recordAPIFailure(errors.New(p.Error), at)
		log.Warnf("equity read (%s) failed: %s", p.Purpose, p.Error)
		return
	}
	t.recordAPISuccess()
	if p.Total <= 0 {
		return
	}
	st.Risk.UpdateEquity(p.Total)
	if t.store == nil {
		return
	}
	ctx, cancel := t.storeContext()
	defer cancel()
	if err := t.store.Equity().Insert(ctx, &model.EquitySnapshotModel{
		Timestamp: at.UnixMilli(),
		Equity:    p.Total,
		Quote:     p.Quote,
		Base:      p.Base,
		Price:     p.Price,
	}); err != nil {
		log.Warnf("persist equity snapshot: %v", err)
	}
}

func (t *Trader) alert(level model.AlertLevel, msg string, details map[string]any, at time.Time) {
	if t.store == nil {
		return
	}
	rec := &model.AlertModel{Level: level, Message: msg, Timestamp: at.UnixMilli()}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			rec.Details = datatypes.JSON(raw)
		}
	}
	ctx, cancel := t.storeContext()
	defer cancel()
	if err := t.store.Alerts().Insert(ctx, rec); err != nil {
		log.Warnf("persist alert %q: %v", msg, err)
	}
}

func (t *Trader) notify(text string) {
	if text == "" {
		return
	}
	if !t.notifier.Send(text) {
		log.Debugf("notification not queued")
	}
}
