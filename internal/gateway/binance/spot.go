package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"spotbot/internal/logger"
	"spotbot/internal/market"
	symbolpkg "spotbot/internal/pkg/symbol"
	"spotbot/internal/scheduler"
)

const maxHistoryLimit = 1000

// orderRejectCodes are API answers where the venue was reachable but refused
// the order itself (balance, filters, precision).
var orderRejectCodes = map[int64]bool{
	-1013: true,
	-1111: true,
	-2010: true,
}

var log = logger.Component("binance")

// Gateway talks to the Binance spot REST API.
type Gateway struct {
	cfg    Config
	client *binance.Client
	clock  clockwork.Clock

	mu          sync.Mutex
	constraints map[string]market.SymbolConstraints
}

var _ market.Gateway = (*Gateway)(nil)

func New(cfg Config, clock clockwork.Clock) (*Gateway, error) {
	final := cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	client := binance.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Gateway{
		cfg:         final,
		client:      client,
		clock:       clock,
		constraints: make(map[string]market.SymbolConstraints),
	}, nil
}

func (g *Gateway) Name() string { return "binance" }

// GetBars returns closed klines only, oldest first.
func (g *Gateway) GetBars(ctx context.Context, symbol, interval string, limit int) (market.Bars, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	clean, err := exchangeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := g.client.NewKlinesService().Symbol(clean).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, market.WrapGatewayError("get_bars", err)
	}
	out := make(market.Bars, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Bar{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	if dur, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = scheduler.DropUnclosedBinanceKline(out, dur, g.clock.Now())
	}
	if len(out) == 0 {
		return nil, market.WrapGatewayError("get_bars", market.ErrNoBars)
	}
	return out, nil
}

func (g *Gateway) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	clean, err := exchangeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	prices, err := g.client.NewListPricesService().Symbol(clean).Do(ctx)
	if err != nil {
		return 0, market.WrapGatewayError("get_price", err)
	}
	for _, p := range prices {
		if p != nil && p.Symbol == clean {
			if v := parseFloat(p.Price); v > 0 {
				return v, nil
			}
		}
	}
	return 0, market.WrapGatewayError("get_price", fmt.Errorf("no price for %s", clean))
}

// GetSymbolConstraints reads LOT_SIZE and PRICE_FILTER once per symbol.
func (g *Gateway) GetSymbolConstraints(ctx context.Context, symbol string) (market.SymbolConstraints, error) {
	clean, err := exchangeSymbol(symbol)
	if err != nil {
		return market.SymbolConstraints{}, err
	}
	g.mu.Lock()
	cached, ok := g.constraints[clean]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}

	info, err := g.client.NewExchangeInfoService().Symbol(clean).Do(ctx)
	if err != nil {
		return market.SymbolConstraints{}, market.WrapGatewayError("exchange_info", err)
	}
	for i := range info.Symbols {
		sym := &info.Symbols[i]
		if sym.Symbol != clean {
			continue
		}
		out := market.SymbolConstraints{Symbol: clean}
		if lot := sym.LotSizeFilter(); lot != nil {
			out.LotStep = parseFloat(lot.StepSize)
			out.MinQty = parseFloat(lot.MinQuantity)
		}
		if pf := sym.PriceFilter(); pf != nil {
			out.TickSize = parseFloat(pf.TickSize)
		}
		if out.LotStep <= 0 {
			return market.SymbolConstraints{}, market.WrapGatewayError("exchange_info", fmt.Errorf("%s has no LOT_SIZE step", clean))
		}
		g.mu.Lock()
		g.constraints[clean] = out
		g.mu.Unlock()
		return out, nil
	}
	return market.SymbolConstraints{}, market.WrapGatewayError("exchange_info", fmt.Errorf("symbol %s not listed", clean))
}

func (g *Gateway) PlaceOrder(ctx context.Context, req market.OrderRequest) (market.OrderResult, error) {
	if !g.cfg.HasCredentials() {
		return market.OrderResult{}, fmt.Errorf("binance api key/secret are required for live orders")
	}
	clean, err := exchangeSymbol(req.Symbol)
	if err != nil {
		return market.OrderResult{}, err
	}
	cons, err := g.GetSymbolConstraints(ctx, clean)
	if err != nil {
		return market.OrderResult{}, err
	}
	qty := FormatStep(req.Qty, cons.LotStep)
	svc := g.client.NewCreateOrderService().
		Symbol(clean).
		Side(binance.SideType(req.Side)).
		Quantity(qty)
	if req.ClientID != "" {
		svc = svc.NewClientOrderID(req.ClientID)
	}
	switch req.Type {
	case market.OrderTypeLimit:
		svc = svc.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(FormatStep(req.Price, cons.TickSize))
	default:
		svc = svc.Type(binance.OrderTypeMarket)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && orderRejectCodes[apiErr.Code] {
			err = fmt.Errorf("%w: %v", market.ErrOrderRejected, apiErr)
		}
		return market.OrderResult{}, market.WrapGatewayError("place_order", err)
	}
	executed := parseFloat(resp.ExecutedQuantity)
	out := market.OrderResult{
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		Status:    string(resp.Status),
		FilledQty: netFilledQty(resp, symbolpkg.Parse(clean).Base, cons.LotStep),
		At:        time.UnixMilli(resp.TransactTime),
	}
	if quote := parseFloat(resp.CummulativeQuoteQuantity); quote > 0 && executed > 0 {
		out.AvgPrice = quote / executed
	}
	log.Infof("order %s %s %s qty=%s status=%s avg=%.8f", out.OrderID, req.Side, clean, qty, out.Status, out.AvgPrice)
	return out, nil
}

// Equity values free+locked balances of the pair's assets in the quote asset.
func (g *Gateway) Equity(ctx context.Context, symbol string) (market.Equity, error) {
	if !g.cfg.HasCredentials() {
		return market.Equity{}, fmt.Errorf("binance api key/secret are required for balances")
	}
	sym := symbolpkg.Parse(symbol)
	if sym.Base == "" {
		return market.Equity{}, fmt.Errorf("cannot parse symbol %q", symbol)
	}
	acct, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return market.Equity{}, market.WrapGatewayError("account", err)
	}
	var out market.Equity
	for _, b := range acct.Balances {
		total := parseFloat(b.Free) + parseFloat(b.Locked)
		switch b.Asset {
		case sym.Quote:
			out.Quote = total
		case sym.Base:
			out.Base = total
		}
	}
	if out.Base > 0 {
		price, err := g.GetCurrentPrice(ctx, symbol)
		if err != nil {
			return market.Equity{}, err
		}
		out.Price = price
	}
	return out, nil
}

// FormatStep floors v to step and prints it with the step's precision.
func FormatStep(v, step float64) string {
	if step <= 0 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	d := decimal.NewFromFloat(step)
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return decimal.NewFromFloat(v).Div(d).Floor().Mul(d).StringFixed(places)
}

// netFilledQty is the executed quantity less any commission charged in the
// base asset, floored to the lot step. It is what the account actually holds.
func netFilledQty(resp *binance.CreateOrderResponse, base string, step float64) float64 {
	net, err := decimal.NewFromString(strings.TrimSpace(resp.ExecutedQuantity))
	if err != nil {
		return 0
	}
	fee := decimal.Zero
	for _, f := range resp.Fills {
		if f == nil || base == "" || !strings.EqualFold(f.CommissionAsset, base) {
			continue
		}
		c, err := decimal.NewFromString(strings.TrimSpace(f.Commission))
		if err != nil {
			continue
		}
		fee = fee.Add(c)
	}
	if fee.IsZero() {
		return net.InexactFloat64()
	}
	net = net.Sub(fee)
	if step > 0 {
		d := decimal.NewFromFloat(step)
		net = net.Div(d).Floor().Mul(d)
	}
	if net.IsNegative() {
		return 0
	}
	return net.InexactFloat64()
}

func exchangeSymbol(symbol string) (string, error) {
	clean := symbolpkg.Exchange(symbol)
	if clean == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return clean, nil
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
