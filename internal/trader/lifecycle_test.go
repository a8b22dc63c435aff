package trader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpenedAt = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func TestTradeRoundTripPnL(t *testing.T) {
	tr := OpenTrade("t1", "SOLUSDT", 10, 150, 145, 170, 0, 100, testOpenedAt)
	require.True(t, tr.IsOpen())

	require.NoError(t, tr.Close(160, ExitTakeProfit, 105, testOpenedAt.Add(time.Hour)))
	assert.False(t, tr.IsOpen())
	assert.InDelta(t, 100.0, tr.PnLQuote, 1e-9)
	assert.InDelta(t, 0.0667, tr.PnLPct, 1e-4)
	assert.Equal(t, int64(105), tr.CloseBar)
}

func TestTradeCloseIsOneShot(t *testing.T) {
	tr := OpenTrade("t1", "SOLUSDT", 10, 150, 145, 170, 0, 100, testOpenedAt)
	require.NoError(t, tr.Close(160, ExitTakeProfit, 105, testOpenedAt))

	err := tr.Close(140, ExitStopLoss, 106, testOpenedAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.Equal(t, 160.0, tr.ExitPrice)
	assert.Equal(t, ExitTakeProfit, tr.ExitReason)
}

func TestCheckExitPriority(t *testing.T) {
	cases := []struct {
		name   string
		price  float64
		exit   bool
		reason ExitReason
		fill   float64
	}{
		{"stop loss at stop", 95, true, ExitStopLoss, 95},
		{"stop loss below stop", 90, true, ExitStopLoss, 95},
		{"take profit", 110, true, ExitTakeProfit, 110},
		{"inside band", 100, false, "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := OpenTrade("t1", "SOLUSDT", 1, 100, 95, 110, 0.2, 1, testOpenedAt)
			d, ok := tr.CheckExit(tc.price)
			assert.Equal(t, tc.exit, ok)
			assert.Equal(t, tc.reason, d.Reason)
			assert.Equal(t, tc.fill, d.Price)
		})
	}
}

func TestTrailingReferenceOnlyRatchetsUp(t *testing.T) {
	tr := OpenTrade("t1", "SOLUSDT", 1, 100, 80, 200, 0.05, 1, testOpenedAt)
	assert.Equal(t, 100.0, tr.TrailingRef)

	_, exit := tr.CheckExit(110)
	assert.False(t, exit)
	assert.Equal(t, 110.0, tr.TrailingRef)

	_, exit = tr.CheckExit(105)
	assert.False(t, exit)
	assert.Equal(t, 110.0, tr.TrailingRef)

	d, exit := tr.CheckExit(104)
	require.True(t, exit)
	assert.Equal(t, ExitTrailingStop, d.Reason)
	assert.Equal(t, 104.0, d.Price)
	assert.Equal(t, 110.0, tr.TrailingRef)
}

func TestNoTrailingWithoutFraction(t *testing.T) {
	tr := OpenTrade("t1", "SOLUSDT", 1, 100, 80, 200, 0, 1, testOpenedAt)
	tr.CheckExit(150)
	_, exit := tr.CheckExit(100)
	assert.False(t, exit)
	assert.Zero(t, tr.TrailingStop())
}

func TestTradeModelRoundTrip(t *testing.T) {
	tr := OpenTrade("t1", "SOLUSDT", 2, 100, 95, 110, 0.02, 7, testOpenedAt)
	require.NoError(t, tr.Close(108, ExitTrailingStop, 9, testOpenedAt.Add(2*time.Hour)))

	back := tradeFromModel(*tr.toModel(nil))
	assert.Equal(t, tr.ID, back.ID)
	assert.Equal(t, tr.ExitReason, back.ExitReason)
	assert.Equal(t, tr.CloseBar, back.CloseBar)
	assert.InDelta(t, tr.PnLQuote, back.PnLQuote, 1e-9)
	require.NotNil(t, back.ClosedAt)
	assert.True(t, tr.ClosedAt.Equal(*back.ClosedAt))
}
