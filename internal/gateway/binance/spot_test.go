package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotbot/internal/market"
)

func newTestGateway(t *testing.T, handler http.Handler, now time.Time) *Gateway {
	t.Helper()
	return newGatewayWithConfig(t, handler, now, Config{})
}

func newGatewayWithConfig(t *testing.T, handler http.Handler, now time.Time, cfg Config) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.RESTBaseURL = srv.URL
	cfg.HTTPTimeout = time.Second
	g, err := New(cfg, clockwork.NewFakeClockAt(now))
	require.NoError(t, err)
	return g
}

const solExchangeInfo = `{"symbols":[{"symbol":"SOLUSDT","baseAsset":"SOL","quoteAsset":"USDT","filters":[
	{"filterType":"PRICE_FILTER","minPrice":"0.01000000","maxPrice":"10000.00000000","tickSize":"0.01000000"},
	{"filterType":"LOT_SIZE","minQty":"0.01000000","maxQty":"9000.00000000","stepSize":"0.01000000"}]}]}`

func orderMux(t *testing.T, order http.HandlerFunc) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, solExchangeInfo)
	})
	mux.HandleFunc("/api/v3/order", order)
	return mux
}

func kline(open time.Time, o, h, l, c string) string {
	return fmt.Sprintf(`[%d,"%s","%s","%s","%s","100.0",%d,"15000.0",42,"50.0","7500.0","0"]`,
		open.UnixMilli(), o, h, l, c, open.Add(15*time.Minute).UnixMilli()-1)
}

func TestGetBarsDropsInProgressKline(t *testing.T) {
	t0 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		fmt.Fprintf(w, "[%s,%s]", kline(t0, "100", "102", "99", "101"), kline(t0.Add(15*time.Minute), "101", "103", "100", "102"))
	})
	g := newTestGateway(t, mux, t0.Add(20*time.Minute))

	bars, err := g.GetBars(context.Background(), "SOL/USDT", "15m", 100)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, t0.UnixMilli(), bars[0].OpenTime)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 102.0, bars[0].High)
	assert.EqualValues(t, 42, bars[0].Trades)
}

func TestGetCurrentPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"SOLUSDT","price":"151.25000000"}`)
	})
	g := newTestGateway(t, mux, time.Now())

	price, err := g.GetCurrentPrice(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, 151.25, price)
}

func TestSymbolConstraintsAreCached(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"symbols":[{"symbol":"SOLUSDT","baseAsset":"SOL","quoteAsset":"USDT","filters":[
			{"filterType":"PRICE_FILTER","minPrice":"0.01000000","maxPrice":"10000.00000000","tickSize":"0.01000000"},
			{"filterType":"LOT_SIZE","minQty":"0.00100000","maxQty":"9000.00000000","stepSize":"0.00100000"}]}]}`)
	})
	g := newTestGateway(t, mux, time.Now())

	for i := 0; i < 2; i++ {
		c, err := g.GetSymbolConstraints(context.Background(), "SOLUSDT")
		require.NoError(t, err)
		assert.Equal(t, 0.001, c.LotStep)
		assert.Equal(t, 0.001, c.MinQty)
		assert.Equal(t, 0.01, c.TickSize)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestGatewayErrorsAreWrapped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"code":-1000,"msg":"unknown"}`)
	})
	g := newTestGateway(t, mux, time.Now())

	_, err := g.GetCurrentPrice(context.Background(), "SOLUSDT")
	require.Error(t, err)
	var ge *market.GatewayError
	assert.ErrorAs(t, err, &ge)
	assert.Equal(t, "get_price", ge.Op)
}

func TestSignedCallsNeedCredentials(t *testing.T) {
	g := newTestGateway(t, http.NewServeMux(), time.Now())
	_, err := g.PlaceOrder(context.Background(), market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideBuy, Qty: 1})
	assert.Error(t, err)
	_, err = g.Equity(context.Background(), "SOLUSDT")
	assert.Error(t, err)
}

func TestFormatStep(t *testing.T) {
	assert.Equal(t, "10.12", FormatStep(10.129, 0.01))
	assert.Equal(t, "3", FormatStep(3.9, 1))
	assert.Equal(t, "0.001", FormatStep(0.0019, 0.001))
	assert.Equal(t, "1.5", FormatStep(1.5, 0))
}

func TestPlaceOrderNetsBaseAssetCommission(t *testing.T) {
	mux := orderMux(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"symbol":"SOLUSDT","orderId":28,"clientOrderId":"open-1","transactTime":1709546400000,
			"price":"0.00000000","origQty":"10.00","executedQty":"10.00","cummulativeQuoteQty":"1500.00",
			"status":"FILLED","timeInForce":"GTC","type":"MARKET","side":"BUY","fills":[
			{"price":"150.00","qty":"6.00","commission":"0.006","commissionAsset":"SOL","tradeId":1},
			{"price":"150.00","qty":"4.00","commission":"0.004","commissionAsset":"SOL","tradeId":2}]}`)
	})
	g := newGatewayWithConfig(t, mux, time.Now(), Config{APIKey: "key", APISecret: "secret"})

	res, err := g.PlaceOrder(context.Background(), market.OrderRequest{
		ClientID: "open-1", Symbol: "SOLUSDT", Side: market.SideBuy, Type: market.OrderTypeMarket, Qty: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "28", res.OrderID)
	assert.InDelta(t, 9.99, res.FilledQty, 1e-9)
	assert.InDelta(t, 150.0, res.AvgPrice, 1e-9)
}

func TestPlaceOrderKeepsQtyWhenCommissionInQuote(t *testing.T) {
	mux := orderMux(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"SOLUSDT","orderId":29,"clientOrderId":"close-1","transactTime":1709546400000,
			"price":"0.00000000","origQty":"9.99","executedQty":"9.99","cummulativeQuoteQty":"1528.47",
			"status":"FILLED","timeInForce":"GTC","type":"MARKET","side":"SELL","fills":[
			{"price":"153.00","qty":"9.99","commission":"1.528","commissionAsset":"USDT","tradeId":3}]}`)
	})
	g := newGatewayWithConfig(t, mux, time.Now(), Config{APIKey: "key", APISecret: "secret"})

	res, err := g.PlaceOrder(context.Background(), market.OrderRequest{
		ClientID: "close-1", Symbol: "SOLUSDT", Side: market.SideSell, Type: market.OrderTypeMarket, Qty: 9.99,
	})
	require.NoError(t, err)
	assert.Equal(t, 9.99, res.FilledQty)
	assert.InDelta(t, 153.0, res.AvgPrice, 1e-9)
}

func TestPlaceOrderRejectionIsTagged(t *testing.T) {
	mux := orderMux(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-2010,"msg":"Account has insufficient balance for requested action."}`)
	})
	g := newGatewayWithConfig(t, mux, time.Now(), Config{APIKey: "key", APISecret: "secret"})

	_, err := g.PlaceOrder(context.Background(), market.OrderRequest{Symbol: "SOLUSDT", Side: market.SideSell, Qty: 10})
	require.Error(t, err)
	assert.True(t, market.IsRejection(err))
	assert.ErrorIs(t, err, market.ErrOrderRejected)
}
