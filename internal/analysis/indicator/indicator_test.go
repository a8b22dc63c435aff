package indicator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotbot/internal/market"
)

func barsFromCloses(closes []float64, spread float64) market.Bars {
	out := make(market.Bars, len(closes))
	for i, c := range closes {
		out[i] = market.Bar{
			OpenTime: int64(i+1) * 60_000,
			Open:     c,
			High:     c + spread,
			Low:      c - spread,
			Close:    c,
			Volume:   100 + float64(i),
		}
	}
	return out
}

func refEMA(closes []float64, period int) float64 {
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	ema := sum / float64(period)
	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		ema = closes[i]*k + ema*(1-k)
	}
	return ema
}

func refRSI(closes []float64, period int) float64 {
	gain, loss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		gain = (gain*float64(period-1) + g) / float64(period)
		loss = (loss*float64(period-1) + l) / float64(period)
	}
	if loss == 0 {
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

func zigzag(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)*0.3 + 2*math.Sin(float64(i)/3)
	}
	return out
}

func TestComputeMatchesReferenceFormulas(t *testing.T) {
	closes := zigzag(80)
	snap, err := Compute(barsFromCloses(closes, 1), Settings{})
	require.NoError(t, err)

	assert.InDelta(t, refEMA(closes, 20), snap.EMA20, 1e-9)
	assert.InDelta(t, refEMA(closes, 50), snap.EMA50, 1e-9)
	assert.InDelta(t, refRSI(closes, 14), snap.RSI14, 1e-9)
	assert.Equal(t, closes[len(closes)-1], snap.Close)
	assert.InDelta(t, math.Abs(snap.EMA20-snap.EMA50)/snap.Close, snap.TrendStrength, 1e-12)
	assert.Equal(t, int64(80*60_000), snap.OpenTime)
	assert.True(t, snap.Valid())
}

func TestATRIsRollingMeanOfTrueRange(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50
	}
	snap, err := Compute(barsFromCloses(closes, 1), Settings{})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, snap.ATR14, 1e-12)
	assert.Equal(t, 100.0, snap.RSI14, "flat window has zero average loss")
	assert.InDelta(t, 0, snap.TrendStrength, 1e-12)
}

func TestRSIHundredWithoutLosses(t *testing.T) {
	closes := make([]float64, 55)
	for i := range closes {
		closes[i] = 10 + float64(i)
	}
	snap, err := Compute(barsFromCloses(closes, 0.5), Settings{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, snap.RSI14)
}

func TestVolumeSMA(t *testing.T) {
	snap, err := Compute(barsFromCloses(zigzag(60), 1), Settings{})
	require.NoError(t, err)
	// volumes are 100+i, the last 20 are 140..159
	assert.InDelta(t, 149.5, snap.VolumeSMA, 1e-9)
	assert.Equal(t, 159.0, snap.Volume)
}

func TestComputeRejectsShortWindow(t *testing.T) {
	_, err := Compute(barsFromCloses(zigzag(49), 1), Settings{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, InsufficientData, rej.Kind)
	assert.Equal(t, 49, rej.Have)
	assert.Equal(t, 50, rej.Need)
}

func TestComputeRejectsNonNumericBars(t *testing.T) {
	bars := barsFromCloses(zigzag(60), 1)
	bars[10].Close = math.NaN()
	_, err := Compute(bars, Settings{})
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, InvalidData, rej.Kind)
}

func TestComputeRejectsUnorderedBars(t *testing.T) {
	bars := barsFromCloses(zigzag(60), 1)
	bars[20].OpenTime = bars[19].OpenTime
	_, err := Compute(bars, Settings{})
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, InvalidData, rej.Kind)
}

func TestComputeIsDeterministic(t *testing.T) {
	bars := barsFromCloses(zigzag(100), 1.5)
	a, errA := Compute(bars, Settings{})
	b, errB := Compute(bars, Settings{})
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestSnapshotValid(t *testing.T) {
	s := Snapshot{Close: 10, EMA20: 9, EMA50: 8, RSI14: 55, ATR14: 1, TrendStrength: 0.1}
	assert.True(t, s.Valid())
	s.ATR14 = math.NaN()
	assert.False(t, s.Valid())
	s.ATR14 = 1
	s.Close = 0
	assert.False(t, s.Valid())
}
