package market

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderRequest is a spot order. Price is the reference price for market
// orders and the limit price for limit orders.
type OrderRequest struct {
	ClientID string    `json:"client_id"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Type     OrderType `json:"type"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price,omitempty"`
}

type OrderResult struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	FilledQty float64   `json:"filled_qty"`
	AvgPrice  float64   `json:"avg_price"`
	At        time.Time `json:"at"`
}

// FillPrice falls back to the requested price when the venue did not report an average.
func (r OrderResult) FillPrice(req OrderRequest) float64 {
	if r.AvgPrice > 0 {
		return r.AvgPrice
	}
	return req.Price
}
