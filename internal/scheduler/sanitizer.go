package scheduler

import (
	"time"

	"spotbot/internal/market"
)

const DefaultBinanceKlineGrace = 10 * time.Second

// DropUnclosedBinanceKline drops the last bar if it is still in progress at now.
// Binance returns the current, not-yet-closed kline as the last element.
func DropUnclosedBinanceKline(bars market.Bars, interval time.Duration, now time.Time) market.Bars {
	return dropUnclosedAt(bars, interval, now, DefaultBinanceKlineGrace)
}

func dropUnclosedAt(bars market.Bars, interval time.Duration, now time.Time, grace time.Duration) market.Bars {
	if len(bars) == 0 || interval <= 0 {
		return bars
	}
	if grace < 0 {
		grace = 0
	}
	last := bars[len(bars)-1]
	if last.OpenTime <= 0 {
		return bars
	}
	cutoffMs := last.OpenTime + interval.Milliseconds() + grace.Milliseconds()
	if now.UnixMilli() < cutoffMs {
		return bars[:len(bars)-1]
	}
	return bars
}
