package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"spotbot/internal/market"
)

// Settings holds indicator periods. The zero value is replaced by DefaultSettings.
type Settings struct {
	FastEMA      int
	SlowEMA      int
	RSIPeriod    int
	ATRPeriod    int
	VolumePeriod int
	MinBars      int
}

func DefaultSettings() Settings {
	return Settings{
		FastEMA:      20,
		SlowEMA:      50,
		RSIPeriod:    14,
		ATRPeriod:    14,
		VolumePeriod: 20,
		MinBars:      50,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.FastEMA <= 0 {
		s.FastEMA = def.FastEMA
	}
	if s.SlowEMA <= 0 {
		s.SlowEMA = def.SlowEMA
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = def.RSIPeriod
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = def.ATRPeriod
	}
	if s.VolumePeriod <= 0 {
		s.VolumePeriod = def.VolumePeriod
	}
	need := maxInt(s.SlowEMA, s.RSIPeriod+1, s.ATRPeriod+1, s.VolumePeriod)
	if s.MinBars < need {
		s.MinBars = maxInt(need, def.MinBars)
	}
	return s
}

// Snapshot is the indicator state of the most recent bar in a window.
type Snapshot struct {
	OpenTime      int64   `json:"open_time"`
	Close         float64 `json:"close"`
	EMA20         float64 `json:"ema20"`
	EMA50         float64 `json:"ema50"`
	RSI14         float64 `json:"rsi14"`
	ATR14         float64 `json:"atr14"`
	TrendStrength float64 `json:"trend_strength"`
	Volume        float64 `json:"volume"`
	VolumeSMA     float64 `json:"volume_sma"`
}

// Valid reports whether every field the entry rule reads is a finite number.
func (s Snapshot) Valid() bool {
	for _, v := range []float64{s.Close, s.EMA20, s.EMA50, s.RSI14, s.ATR14, s.TrendStrength} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.Close > 0
}

type RejectKind string

const (
	InsufficientData RejectKind = "insufficient_data"
	InvalidData      RejectKind = "invalid_data"
)

var ErrRejected = errors.New("indicator window rejected")

// RejectedError explains why no snapshot could be produced.
type RejectedError struct {
	Kind   RejectKind
	Have   int
	Need   int
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Kind == InsufficientData {
		return fmt.Sprintf("%s: have %d bars, need %d", e.Kind, e.Have, e.Need)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// Compute derives the snapshot for the last bar of an ordered window.
func Compute(bars market.Bars, settings Settings) (Snapshot, error) {
	cfg := settings.withDefaults()
	if len(bars) < cfg.MinBars {
		return Snapshot{}, &RejectedError{Kind: InsufficientData, Have: len(bars), Need: cfg.MinBars}
	}
	if !bars.Ordered() {
		return Snapshot{}, &RejectedError{Kind: InvalidData, Detail: "bars are not ordered by open_time"}
	}
	for i, b := range bars {
		if !finite(b.High) || !finite(b.Low) || !finite(b.Close) {
			return Snapshot{}, &RejectedError{Kind: InvalidData, Detail: fmt.Sprintf("non-numeric price at index %d", i)}
		}
	}

	closes := bars.Closes()
	highs := bars.Highs()
	lows := bars.Lows()
	last := bars[len(bars)-1]

	snap := Snapshot{
		OpenTime: last.OpenTime,
		Close:    last.Close,
		EMA20:    lastValue(talib.Ema(closes, cfg.FastEMA)),
		EMA50:    lastValue(talib.Ema(closes, cfg.SlowEMA)),
		RSI14:    rsi(closes, cfg.RSIPeriod),
		ATR14:    lastValue(talib.Sma(talib.TRange(highs, lows, closes), cfg.ATRPeriod)),
		Volume:   last.Volume,
	}
	if volumes := bars.Volumes(); allFinite(volumes) {
		snap.VolumeSMA = lastValue(talib.Sma(volumes, cfg.VolumePeriod))
	}
	if snap.Close != 0 {
		snap.TrendStrength = math.Abs(snap.EMA20-snap.EMA50) / snap.Close
	} else {
		snap.TrendStrength = math.NaN()
	}
	return snap, nil
}

// rsi uses TA-Lib's Wilder smoothing. A window with no declines has a zero
// average loss and reads 100, which TA-Lib reports as 0 for a flat series.
func rsi(closes []float64, period int) float64 {
	if !hasDecline(closes) {
		return 100
	}
	return lastValue(talib.Rsi(closes, period))
}

func hasDecline(closes []float64) bool {
	for i := 1; i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			return true
		}
	}
	return false
}

func lastValue(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if !finite(v) {
			return false
		}
	}
	return true
}

func maxInt(vs ...int) int {
	out := 0
	for _, v := range vs {
		if v > out {
			out = v
		}
	}
	return out
}
