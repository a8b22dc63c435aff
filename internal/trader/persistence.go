package trader

import (
	"context"
	"time"

	"spotbot/internal/store/journal"
)

// shouldPersistEvent skips the high-frequency poll results; everything that
// changes trade or latch state is journaled.
func shouldPersistEvent(t EventType) bool {
	switch t {
	case EvtPollResult, EvtHeartbeat:
		return false
	default:
		return true
	}
}

func toJournalEvent(evt EventEnvelope) journal.Event {
	return journal.Event{
		ID:        evt.ID,
		Type:      string(evt.Type),
		Payload:   evt.Payload,
		CreatedAt: evt.CreatedAt,
		TradeID:   evt.TradeID,
		Symbol:    evt.Symbol,
	}
}

func (t *Trader) persistEvent(evt EventEnvelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.journal.Append(ctx, toJournalEvent(evt)); err != nil {
		log.Warnf("journal append %s failed: %v", evt.Type, err)
	}
}
