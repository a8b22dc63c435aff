package trader

import (
	"encoding/json"
	"fmt"
)

type PollResultHandler struct{}

func (h *PollResultHandler) Type() EventType { return EvtPollResult }

func (h *PollResultHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	res, ok := evt.Data.(PollResult)
	if !ok {
		return fmt.Errorf("poll result: unexpected data %T", evt.Data)
	}
	ctx.Trader().onPoll(res)
	return nil
}

type OrderResultHandler struct{}

func (h *OrderResultHandler) Type() EventType { return EvtOrderResult }

func (h *OrderResultHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	var p OrderResultPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("invalid payload for order_result: %w", err)
	}
	return ctx.Trader().onOrderResult(p)
}

type EquityResultHandler struct{}

func (h *EquityResultHandler) Type() EventType { return EvtEquityResult }

func (h *EquityResultHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	var p EquityPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return fmt.Errorf("invalid payload for equity_result: %w", err)
	}
	ctx.Trader().applyEquity(p, evt.CreatedAt)
	return nil
}

// KillSwitchCheckHandler applies the probed equity before evaluating the latch.
type KillSwitchCheckHandler struct{}

func (h *KillSwitchCheckHandler) Type() EventType { return EvtKillSwitchCheck }

func (h *KillSwitchCheckHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	t := ctx.Trader()
	p, err := decodeJob(evt)
	if err != nil {
		return err
	}
	if p.Equity != nil {
		t.applyEquity(*p.Equity, evt.CreatedAt)
	}
	t.runKillSwitchCheck(t.clock.Now())
	return nil
}

type HeartbeatHandler struct{}

func (h *HeartbeatHandler) Type() EventType { return EvtHeartbeat }

func (h *HeartbeatHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	t := ctx.Trader()
	p, err := decodeJob(evt)
	if err != nil {
		return err
	}
	if p.Equity != nil {
		t.applyEquity(*p.Equity, evt.CreatedAt)
	}
	t.notify(t.heartbeatMessage(t.clock.Now()))
	return nil
}

type DailyReportHandler struct{}

func (h *DailyReportHandler) Type() EventType { return EvtDailyReport }

func (h *DailyReportHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	t := ctx.Trader()
	p, err := decodeJob(evt)
	if err != nil {
		return err
	}
	if p.Equity != nil {
		t.applyEquity(*p.Equity, evt.CreatedAt)
	}
	t.dailyReport(t.clock.Now())
	return nil
}

type ResumeHandler struct{}

func (h *ResumeHandler) Type() EventType { return EvtResume }

func (h *ResumeHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	var p ResumePayload
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return fmt.Errorf("invalid payload for resume: %w", err)
		}
	}
	t := ctx.Trader()
	return t.resume(p.Operator, t.clock.Now())
}

// PauseHandler latches the kill switch on operator request.
type PauseHandler struct{}

func (h *PauseHandler) Type() EventType { return EvtPause }

func (h *PauseHandler) Handle(ctx *HandlerContext, evt EventEnvelope) error {
	var p PausePayload
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return fmt.Errorf("invalid payload for pause: %w", err)
		}
	}
	t := ctx.Trader()
	if t.state.Kill.Paused {
		return nil
	}
	reason := p.Reason
	if reason == "" {
		reason = "paused by operator"
	}
	t.trip(reason, t.clock.Now())
	return nil
}

func decodeJob(evt EventEnvelope) (JobPayload, error) {
	var p JobPayload
	if len(evt.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return p, fmt.Errorf("invalid payload for %s: %w", evt.Type, err)
	}
	return p, nil
}
