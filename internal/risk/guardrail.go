package risk

// DefaultMaxTradesPerDay bounds entries per local day.
const DefaultMaxTradesPerDay = 20

// DailyGuardrailOK fails once today's realized loss exceeds the stop budget
// or the trade count reaches maxTrades.
func DailyGuardrailOK(tradesToday int, pnlToday, stopFraction, startEquity float64, maxTrades int) bool {
	if maxTrades <= 0 {
		maxTrades = DefaultMaxTradesPerDay
	}
	if pnlToday < -(startEquity * stopFraction) {
		return false
	}
	return tradesToday < maxTrades
}
