package store

import (
	"context"
	"errors"

	"spotbot/internal/store/model"
)

var (
	// ErrTradeClosed is returned when closing a trade whose closed_at is already set.
	ErrTradeClosed = errors.New("trade already closed")
	ErrNotFound    = errors.New("record not found")
)

const SettingPaused = "is_paused"

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	Trades() TradeRepository
	Orders() OrderRepository
	Alerts() AlertRepository
	Settings() SettingsRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)

	Trades() TradeRepository
	Equity() EquityRepository
	Alerts() AlertRepository
	Settings() SettingsRepository
	Orders() OrderRepository

	Close() error
}

// TradeRepository persists trades. Close is the only mutation of a trade's
// outcome and refuses rows that are already closed.
type TradeRepository interface {
	Create(ctx context.Context, trade *model.TradeModel) error
	Close(ctx context.Context, trade *model.TradeModel) error
	UpdateTrailingRef(ctx context.Context, id string, ref float64) error
	FindByID(ctx context.Context, id string) (*model.TradeModel, error)
	ListOpen(ctx context.Context, symbol string) ([]model.TradeModel, error)
	ListRecent(ctx context.Context, limit int) ([]model.TradeModel, error)
	ListClosedBetween(ctx context.Context, fromMs, toMs int64) ([]model.TradeModel, error)
	LastClosed(ctx context.Context, symbol string) (*model.TradeModel, error)
}

type EquityRepository interface {
	Insert(ctx context.Context, snap *model.EquitySnapshotModel) error
	Latest(ctx context.Context) (*model.EquitySnapshotModel, error)
	Max(ctx context.Context) (float64, error)
	FirstSince(ctx context.Context, fromMs int64) (*model.EquitySnapshotModel, error)
	LatestBefore(ctx context.Context, beforeMs int64) (*model.EquitySnapshotModel, error)
}

type AlertRepository interface {
	Insert(ctx context.Context, alert *model.AlertModel) error
	ListRecent(ctx context.Context, limit int) ([]model.AlertModel, error)
}

type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, atMs int64) error
}

type OrderRepository interface {
	Save(ctx context.Context, order *model.OrderModel) error
	ListRecent(ctx context.Context, limit int) ([]model.OrderModel, error)
}
