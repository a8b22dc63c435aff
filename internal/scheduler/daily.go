package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"spotbot/internal/logger"
)

// DailyScheduler runs a task once per day at a local wall-clock time.
type DailyScheduler struct {
	Name   string
	Hour   int
	Minute int
	Loc    *time.Location

	ctx   context.Context
	clock clockwork.Clock
}

func NewDailyScheduler(ctx context.Context, clock clockwork.Clock, at string, loc *time.Location) (*DailyScheduler, error) {
	h, m, err := ParseClock(at)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{Hour: h, Minute: m, Loc: loc, ctx: ctx, clock: clock}, nil
}

// Start blocks until the context is cancelled.
func (s *DailyScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	for {
		now := s.clock.Now()
		next := NextDailyAt(now, s.Hour, s.Minute, s.Loc)
		logger.Infof("DailyScheduler[%s]: next run at %s", s.Name, next.Format(time.RFC3339))
		if !waitUntil(s.ctx, s.clock, next) {
			return
		}
		task()
	}
}

// NextDailyAt returns the next hh:mm in loc strictly after now.
func NextDailyAt(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := now.In(loc)
	next := time.Date(lt.Year(), lt.Month(), lt.Day(), hour, minute, 0, 0, loc)
	if !next.After(lt) {
		next = time.Date(lt.Year(), lt.Month(), lt.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// ParseClock parses "HH:MM".
func ParseClock(v string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q, want HH:MM", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", v)
	}
	return h, m, nil
}
