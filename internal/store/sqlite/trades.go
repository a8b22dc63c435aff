package sqlite

import (
	"context"
	"errors"
	"fmt"

	"spotbot/internal/store"
	"spotbot/internal/store/model"

	"gorm.io/gorm"
)

type tradeRepository struct {
	db *gorm.DB
}

func NewTradeRepo(db *gorm.DB) *tradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Create(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil || trade.ID == "" {
		return errors.New("trade must have an id")
	}
	if trade.Status == 0 {
		trade.Status = model.TradeStatusOpen
	}
	return r.db.WithContext(ctx).Create(trade).Error
}

// Close writes the exit fields only while closed_at is still null.
func (r *tradeRepository) Close(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil || trade.ClosedAt == nil {
		return errors.New("close requires closed_at")
	}
	res := r.db.WithContext(ctx).
		Model(&model.TradeModel{}).
		Where("id = ? AND closed_at IS NULL", trade.ID).
		Updates(map[string]any{
			"status":        model.TradeStatusClosed,
			"closed_at":     *trade.ClosedAt,
			"close_bar":     trade.CloseBar,
			"exit_price":    trade.ExitPrice,
			"exit_reason":   trade.ExitReason,
			"exit_order_id": trade.ExitOrderID,
			"pnl_quote":     trade.PnLQuote,
			"pnl_pct":       trade.PnLPct,
			"trailing_ref":  trade.TrailingRef,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", trade.ID, store.ErrTradeClosed)
	}
	trade.Status = model.TradeStatusClosed
	return nil
}

func (r *tradeRepository) UpdateTrailingRef(ctx context.Context, id string, ref float64) error {
	return r.db.WithContext(ctx).
		Model(&model.TradeModel{}).
		Where("id = ? AND closed_at IS NULL", id).
		Update("trailing_ref", ref).Error
}

func (r *tradeRepository) FindByID(ctx context.Context, id string) (*model.TradeModel, error) {
	var trade model.TradeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

func (r *tradeRepository) ListOpen(ctx context.Context, symbol string) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	q := r.db.WithContext(ctx).Where("closed_at IS NULL")
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if err := q.Order("opened_at ASC").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *tradeRepository) ListRecent(ctx context.Context, limit int) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	if limit <= 0 {
		limit = 20
	}
	if err := r.db.WithContext(ctx).
		Order("COALESCE(closed_at, opened_at) DESC").
		Limit(limit).
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// ListClosedBetween returns trades closed in [fromMs, toMs).
func (r *tradeRepository) ListClosedBetween(ctx context.Context, fromMs, toMs int64) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	if err := r.db.WithContext(ctx).
		Where("closed_at >= ? AND closed_at < ?", fromMs, toMs).
		Order("closed_at ASC").
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *tradeRepository) LastClosed(ctx context.Context, symbol string) (*model.TradeModel, error) {
	var trade model.TradeModel
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND closed_at IS NOT NULL", symbol).
		Order("closed_at DESC").
		First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}
