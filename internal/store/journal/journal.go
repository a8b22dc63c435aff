// Package journal appends actor events to a durable log before they are handled.
package journal

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one journaled actor message.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	TradeID   string          `json:"trade_id,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
}

type Journal interface {
	Append(ctx context.Context, evt Event) error
	LoadSince(ctx context.Context, since time.Time, limit int) ([]Event, error)
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Append(context.Context, Event) error { return nil }

func (Nop) LoadSince(context.Context, time.Time, int) ([]Event, error) { return nil, nil }

func (Nop) Close() error { return nil }
