package store

import (
	"context"
	"time"
)

// DayMetrics summarises equity movement for one local day.
type DayMetrics struct {
	StartEquity   float64
	CurrentEquity float64
	DailyPnL      float64
	DailyPnLPct   float64
}

// TodayMetrics reads the day's start equity as the first snapshot since dayStart,
// falling back to the latest snapshot before it.
func TodayMetrics(ctx context.Context, repo EquityRepository, dayStart time.Time) (DayMetrics, error) {
	var out DayMetrics
	latest, err := repo.Latest(ctx)
	if err != nil || latest == nil {
		return out, err
	}
	out.CurrentEquity = latest.Equity
	start, err := repo.FirstSince(ctx, dayStart.UnixMilli())
	if err != nil {
		return out, err
	}
	if start == nil {
		if start, err = repo.LatestBefore(ctx, dayStart.UnixMilli()); err != nil {
			return out, err
		}
	}
	if start == nil {
		start = latest
	}
	out.StartEquity = start.Equity
	out.DailyPnL = out.CurrentEquity - out.StartEquity
	if out.StartEquity > 0 {
		out.DailyPnLPct = out.DailyPnL / out.StartEquity * 100
	}
	return out, nil
}

// StartOfDay returns local midnight for t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
