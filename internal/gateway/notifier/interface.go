package notifier

import "context"

// TextNotifier delivers one message synchronously.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Notifier is the fire-and-forget surface used by the trading loop. Send
// reports whether the message was accepted for delivery.
type Notifier interface {
	Send(text string) bool
}

// Nop drops every message.
type Nop struct{}

func (Nop) Send(string) bool { return false }

func (Nop) SendText(context.Context, string) error { return nil }
