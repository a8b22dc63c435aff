package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"spotbot/internal/logger"
)

// AlignedScheduler runs a task on interval boundaries (plus Offset), e.g. at
// :00, :15, :30 and :45 for a 15 minute interval.
type AlignedScheduler struct {
	Name           string
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	clock clockwork.Clock
}

func NewAlignedScheduler(ctx context.Context, clock clockwork.Clock, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		clock:    clock,
	}
}

// Start blocks until the context is cancelled.
func (s *AlignedScheduler) Start(task func()) {
	if s == nil {
		return
	}
	prefix := "AlignedScheduler"
	if s.Name != "" {
		prefix = prefix + "[" + s.Name + "]"
	}
	if task == nil {
		logger.Warnf("%s: task is nil, exit", prefix)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("%s: invalid interval=%s, exit", prefix, s.Interval)
		return
	}
	if s.Offset < 0 {
		logger.Warnf("%s: negative offset=%s, clamp to 0", prefix, s.Offset)
		s.Offset = 0
	}

	startAt := s.clock.Now().UTC()
	logger.Infof("%s: started interval=%s offset=%s run_immediately=%v at=%s",
		prefix, s.Interval, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		task()
	}

	for {
		now := s.clock.Now().UTC()
		wakeAt := NextAligned(now, s.Interval, s.Offset)
		logger.Debugf("%s: next run at %s (in %s)", prefix, wakeAt.Format(time.RFC3339), wakeAt.Sub(now).Truncate(time.Second))
		if !waitUntil(s.ctx, s.clock, wakeAt) {
			logger.Infof("%s: ctx done, exit", prefix)
			return
		}
		task()
	}
}

// NextAligned returns the first boundary + offset strictly after now.
func NextAligned(now time.Time, interval, offset time.Duration) time.Time {
	now = now.UTC()
	next := now.Truncate(interval).Add(offset)
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}

func waitUntil(ctx context.Context, clock clockwork.Clock, target time.Time) bool {
	wait := target.Sub(clock.Now())
	if wait <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := clock.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
