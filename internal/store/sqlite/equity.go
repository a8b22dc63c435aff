package sqlite

import (
	"context"
	"errors"

	"spotbot/internal/store/model"

	"gorm.io/gorm"
)

type equityRepository struct {
	db *gorm.DB
}

func NewEquityRepo(db *gorm.DB) *equityRepository {
	return &equityRepository{db: db}
}

func (r *equityRepository) Insert(ctx context.Context, snap *model.EquitySnapshotModel) error {
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}
	return r.db.WithContext(ctx).Create(snap).Error
}

func (r *equityRepository) Latest(ctx context.Context) (*model.EquitySnapshotModel, error) {
	return r.first(r.db.WithContext(ctx).Order("ts DESC, id DESC"))
}

func (r *equityRepository) Max(ctx context.Context) (float64, error) {
	var out struct{ Peak *float64 }
	if err := r.db.WithContext(ctx).
		Model(&model.EquitySnapshotModel{}).
		Select("MAX(equity) AS peak").
		Scan(&out).Error; err != nil {
		return 0, err
	}
	if out.Peak == nil {
		return 0, nil
	}
	return *out.Peak, nil
}

func (r *equityRepository) FirstSince(ctx context.Context, fromMs int64) (*model.EquitySnapshotModel, error) {
	return r.first(r.db.WithContext(ctx).Where("ts >= ?", fromMs).Order("ts ASC, id ASC"))
}

func (r *equityRepository) LatestBefore(ctx context.Context, beforeMs int64) (*model.EquitySnapshotModel, error) {
	return r.first(r.db.WithContext(ctx).Where("ts < ?", beforeMs).Order("ts DESC, id DESC"))
}

// first returns nil, nil when nothing matches.
func (r *equityRepository) first(q *gorm.DB) (*model.EquitySnapshotModel, error) {
	var snap model.EquitySnapshotModel
	err := q.First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
