package trader

// EventHandler processes one event type inside the actor goroutine.
type EventHandler interface {
	Type() EventType

	// Handle may mutate trader state freely; it must not block on I/O
	// other than the local store.
	Handle(ctx *HandlerContext, evt EventEnvelope) error
}

// HandlerContext gives handlers access to the Trader without exporting its internals.
type HandlerContext struct {
	trader *Trader
}

func NewHandlerContext(t *Trader) *HandlerContext {
	return &HandlerContext{trader: t}
}

func (c *HandlerContext) Trader() *Trader {
	return c.trader
}
