// Package paper simulates order fills against live market data.
package paper

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"spotbot/internal/logger"
	"spotbot/internal/market"
)

var log = logger.Component("paper")

// MarketData is the read-only half of a gateway.
type MarketData interface {
	GetBars(ctx context.Context, symbol, interval string, limit int) (market.Bars, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetSymbolConstraints(ctx context.Context, symbol string) (market.SymbolConstraints, error)
}

// Gateway fills every order immediately at its reference price.
type Gateway struct {
	data  MarketData
	clock clockwork.Clock

	mu    sync.Mutex
	quote float64
	base  float64
}

var _ market.Gateway = (*Gateway)(nil)

func New(data MarketData, initialQuote float64, clock clockwork.Clock) *Gateway {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gateway{data: data, clock: clock, quote: initialQuote}
}

func (g *Gateway) Name() string { return "paper" }

func (g *Gateway) GetBars(ctx context.Context, symbol, interval string, limit int) (market.Bars, error) {
	return g.data.GetBars(ctx, symbol, interval, limit)
}

func (g *Gateway) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return g.data.GetCurrentPrice(ctx, symbol)
}

func (g *Gateway) GetSymbolConstraints(ctx context.Context, symbol string) (market.SymbolConstraints, error) {
	return g.data.GetSymbolConstraints(ctx, symbol)
}

func (g *Gateway) PlaceOrder(ctx context.Context, req market.OrderRequest) (market.OrderResult, error) {
	if req.Qty <= 0 {
		return market.OrderResult{}, fmt.Errorf("paper order qty must be positive, got %v", req.Qty)
	}
	price := req.Price
	if price <= 0 {
		p, err := g.data.GetCurrentPrice(ctx, req.Symbol)
		if err != nil {
			return market.OrderResult{}, err
		}
		price = p
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	notional := req.Qty * price
	switch req.Side {
	case market.SideBuy:
		if notional > g.quote {
			return market.OrderResult{}, fmt.Errorf("buy %.8f @ %.8f needs %.2f, have %.2f: %w", req.Qty, price, notional, g.quote, market.ErrInsufficientQty)
		}
		g.quote -= notional
		g.base += req.Qty
	case market.SideSell:
		if req.Qty > g.base+1e-12 {
			return market.OrderResult{}, fmt.Errorf("sell %.8f, hold %.8f: %w", req.Qty, g.base, market.ErrInsufficientQty)
		}
		g.base -= req.Qty
		if g.base < 1e-12 {
			g.base = 0
		}
		g.quote += notional
	default:
		return market.OrderResult{}, fmt.Errorf("unknown side %q", req.Side)
	}
	res := market.OrderResult{
		OrderID:   uuid.NewString(),
		Status:    "FILLED",
		FilledQty: req.Qty,
		AvgPrice:  price,
		At:        g.clock.Now(),
	}
	log.Infof("filled %s %s qty=%.8f @ %.8f quote=%.2f base=%.8f", req.Side, req.Symbol, req.Qty, price, g.quote, g.base)
	return res, nil
}

func (g *Gateway) Equity(ctx context.Context, symbol string) (market.Equity, error) {
	g.mu.Lock()
	out := market.Equity{Quote: g.quote, Base: g.base}
	g.mu.Unlock()
	if out.Base > 0 {
		price, err := g.data.GetCurrentPrice(ctx, symbol)
		if err != nil {
			return market.Equity{}, err
		}
		out.Price = price
	}
	return out, nil
}

// Restore sets balances, e.g. from the last equity snapshot.
func (g *Gateway) Restore(quote, base float64) {
	g.mu.Lock()
	g.quote, g.base = quote, base
	g.mu.Unlock()
}
