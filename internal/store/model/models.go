package model

import (
	"gorm.io/datatypes"
)

type TradeStatus int

const (
	TradeStatusOpen   TradeStatus = 1
	TradeStatusClosed TradeStatus = 2
)

// TradeModel maps to the 'trades' table. Timestamps are unix milliseconds.
type TradeModel struct {
	ID               string         `gorm:"column:id;primaryKey"`
	Symbol           string         `gorm:"column:symbol;index:idx_trades_symbol_status,priority:1"`
	Status           TradeStatus    `gorm:"column:status;index:idx_trades_symbol_status,priority:2"`
	Qty              float64        `gorm:"column:qty"`
	EntryPrice       float64        `gorm:"column:entry_price"`
	StopPrice        float64        `gorm:"column:stop_price"`
	TargetPrice      float64        `gorm:"column:target_price"`
	TrailingFraction float64        `gorm:"column:trailing_fraction"`
	TrailingRef      float64        `gorm:"column:trailing_ref"`
	OpenBar          int64          `gorm:"column:open_bar"`
	OpenedAt         int64          `gorm:"column:opened_at;index"`
	EntryOrderID     string         `gorm:"column:entry_order_id"`
	ClosedAt         *int64         `gorm:"column:closed_at;index"`
	CloseBar         *int64         `gorm:"column:close_bar"`
	ExitPrice        *float64       `gorm:"column:exit_price"`
	ExitReason       string         `gorm:"column:exit_reason"`
	ExitOrderID      string         `gorm:"column:exit_order_id"`
	PnLQuote         *float64       `gorm:"column:pnl_quote"`
	PnLPct           *float64       `gorm:"column:pnl_pct"`
	Diagnostics      datatypes.JSON `gorm:"column:diagnostics;type:TEXT"`
}

func (TradeModel) TableName() string { return "trades" }

// EquitySnapshotModel maps to 'equity_snapshots'.
type EquitySnapshotModel struct {
	ID        int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp int64   `gorm:"column:ts;index"`
	Equity    float64 `gorm:"column:equity"`
	Quote     float64 `gorm:"column:quote_balance"`
	Base      float64 `gorm:"column:base_balance"`
	Price     float64 `gorm:"column:price"`
}

func (EquitySnapshotModel) TableName() string { return "equity_snapshots" }

// SettingModel is a key/value row in 'settings'.
type SettingModel struct {
	Key       string `gorm:"column:name;primaryKey"`
	Value     string `gorm:"column:value"`
	UpdatedAt int64  `gorm:"column:updated_at"`
}

func (SettingModel) TableName() string { return "settings" }

// OrderModel records every order sent to the gateway and its outcome.
type OrderModel struct {
	ID        int64   `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID  string  `gorm:"column:client_id;uniqueIndex"`
	OrderID   string  `gorm:"column:order_id"`
	TradeID   string  `gorm:"column:trade_id;index"`
	Symbol    string  `gorm:"column:symbol"`
	Side      string  `gorm:"column:side"`
	Type      string  `gorm:"column:type"`
	Qty       float64 `gorm:"column:qty"`
	RefPrice  float64 `gorm:"column:ref_price"`
	FilledQty float64 `gorm:"column:filled_qty"`
	AvgPrice  float64 `gorm:"column:avg_price"`
	Status    string  `gorm:"column:status"`
	Error     string  `gorm:"column:error"`
	CreatedAt int64   `gorm:"column:created_at;index"`
}

func (OrderModel) TableName() string { return "orders" }
