package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Poll runs task immediately and then every interval until ctx is done.
// A slow task delays the next tick instead of overlapping with it.
func Poll(ctx context.Context, clock clockwork.Clock, interval time.Duration, task func(context.Context)) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		task(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
