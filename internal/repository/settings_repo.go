package repository

import (
	"context"

	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	Get(ctx context.Context, restaurantID uuid.UUID) (*model.Settings, error)
	Upsert(ctx context.Context, s *model.Settings) error
}

type settingsRepo struct{ db *gorm.DB }

func NewSettingsRepository(db *gorm.DB) SettingsRepository { return &settingsRepo{db: db} }

func (r *settingsRepo) Get(ctx context.Context, restaurantID uuid.UUID) (*model.Settings, error) {
	var s model.Settings
	if err := r.db.WithContext(ctx).First(&s, "restaurant_id = ?", restaurantID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) Upsert(ctx context.Context, s *model.Settings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "restaurant_id"}},
			UpdateAll: true,
		}).
		Create(s).Error
}
