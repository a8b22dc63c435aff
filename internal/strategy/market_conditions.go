package strategy

import "spotbot/internal/analysis/indicator"

type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
)

// MarketConditions is a coarse reading of the snapshot for reports.
type MarketConditions struct {
	Trend      Trend   `json:"trend"`
	Momentum   string  `json:"momentum"`
	Volatility string  `json:"volatility"`
	ATRPct     float64 `json:"atr_pct"`
	InChop     bool    `json:"in_chop"`
}

func AnalyzeMarket(snap indicator.Snapshot, rule Rule) MarketConditions {
	mc := MarketConditions{Trend: TrendSideways, Momentum: "neutral", Volatility: "normal"}
	if !snap.Valid() {
		return mc
	}
	switch {
	case snap.Close > snap.EMA20 && snap.EMA20 > snap.EMA50:
		mc.Trend = TrendUp
	case snap.Close < snap.EMA20 && snap.EMA20 < snap.EMA50:
		mc.Trend = TrendDown
	}
	switch {
	case snap.RSI14 >= 60:
		mc.Momentum = "bullish"
	case snap.RSI14 <= 40:
		mc.Momentum = "bearish"
	}
	mc.ATRPct = snap.ATR14 / snap.Close
	switch {
	case mc.ATRPct < 0.005:
		mc.Volatility = "low"
	case mc.ATRPct > 0.02:
		mc.Volatility = "high"
	}
	mc.InChop = IsChop(snap, rule)
	return mc
}
