package sqlite

import (
	"context"

	"spotbot/internal/store/model"

	"gorm.io/gorm"
)

type alertRepo struct {
	db *gorm.DB
}

func NewAlertRepo(db *gorm.DB) *alertRepo {
	return &alertRepo{db: db}
}

func (r *alertRepo) Insert(ctx context.Context, alert *model.AlertModel) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *alertRepo) ListRecent(ctx context.Context, limit int) ([]model.AlertModel, error) {
	var alerts []model.AlertModel
	q := r.db.WithContext(ctx).Order("ts DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}
