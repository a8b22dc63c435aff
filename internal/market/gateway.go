package market

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoBars          = errors.New("gateway returned no bars")
	ErrInsufficientQty = errors.New("insufficient balance for order")
	ErrOrderRejected   = errors.New("order rejected by venue")
)

// SymbolConstraints are the exchange trading rules the sizing engine needs.
type SymbolConstraints struct {
	Symbol   string  `json:"symbol"`
	LotStep  float64 `json:"lot_step"`
	MinQty   float64 `json:"min_qty"`
	TickSize float64 `json:"tick_size"`
}

// Equity values the account in the quote asset.
type Equity struct {
	Quote float64 `json:"quote"`
	Base  float64 `json:"base"`
	Price float64 `json:"price"`
}

func (e Equity) Total() float64 {
	return e.Quote + e.Base*e.Price
}

// Gateway is the market-data and order venue. Every method may fail with a
// network or HTTP error; callers count failures rather than propagate them.
type Gateway interface {
	Name() string
	GetBars(ctx context.Context, symbol, interval string, limit int) (Bars, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetSymbolConstraints(ctx context.Context, symbol string) (SymbolConstraints, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	Equity(ctx context.Context, symbol string) (Equity, error)
}

// GatewayError tags a failed call with its operation name.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func WrapGatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}

// IsRejection reports whether the venue answered but refused the order.
// Rejections are not connectivity failures.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOrderRejected) || errors.Is(err, ErrInsufficientQty)
}

// IsTimeout reports whether the call ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
