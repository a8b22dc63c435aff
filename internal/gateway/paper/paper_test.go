package paper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotbot/internal/market"
)

type staticData struct {
	price float64
	err   error
}

func (s *staticData) GetBars(context.Context, string, string, int) (market.Bars, error) {
	return market.Bars{{OpenTime: 1, Close: s.price}}, s.err
}

func (s *staticData) GetCurrentPrice(context.Context, string) (float64, error) {
	return s.price, s.err
}

func (s *staticData) GetSymbolConstraints(context.Context, string) (market.SymbolConstraints, error) {
	return market.SymbolConstraints{Symbol: "SOLUSDT", LotStep: 0.01}, s.err
}

func TestPaperRoundTrip(t *testing.T) {
	data := &staticData{price: 150}
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	g := New(data, 10000, clockwork.NewFakeClockAt(now))
	ctx := context.Background()

	res, err := g.PlaceOrder(ctx, market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideBuy, Type: market.OrderTypeMarket, Qty: 10, Price: 150})
	require.NoError(t, err)
	assert.Equal(t, "FILLED", res.Status)
	assert.Equal(t, 150.0, res.AvgPrice)
	assert.Equal(t, now, res.At)
	assert.NotEmpty(t, res.OrderID)

	eq, err := g.Equity(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, 8500.0, eq.Quote)
	assert.Equal(t, 10.0, eq.Base)
	assert.Equal(t, 10000.0, eq.Total())

	data.price = 160
	_, err = g.PlaceOrder(ctx, market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideSell, Qty: 10})
	require.NoError(t, err)
	eq, err = g.Equity(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, 10100.0, eq.Total())
	assert.Zero(t, eq.Base)
}

func TestPaperRejectsOverspend(t *testing.T) {
	g := New(&staticData{price: 150}, 1000, nil)
	_, err := g.PlaceOrder(context.Background(), market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideBuy, Qty: 10, Price: 150})
	assert.ErrorIs(t, err, market.ErrInsufficientQty)

	_, err = g.PlaceOrder(context.Background(), market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideSell, Qty: 1, Price: 150})
	assert.ErrorIs(t, err, market.ErrInsufficientQty)

	_, err = g.PlaceOrder(context.Background(), market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideBuy, Qty: 0})
	assert.Error(t, err)
}

func TestPaperPropagatesMarketDataErrors(t *testing.T) {
	boom := errors.New("boom")
	g := New(&staticData{err: boom}, 1000, nil)
	_, err := g.PlaceOrder(context.Background(), market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideBuy, Qty: 1})
	assert.ErrorIs(t, err, boom)

	g.Restore(0, 1)
	_, err = g.Equity(context.Background(), "SOLUSDT")
	assert.ErrorIs(t, err, boom)
}
