package repository

import (
	"context"

	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TableRepository interface {
	Create(ctx context.Context, t *model.Table) error
	FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Table, error)
	List(ctx context.Context, restaurantID uuid.UUID) ([]model.Table, error)
	Update(ctx context.Context, t *model.Table) error
	SoftDelete(ctx context.Context, restaurantID, id uuid.UUID) error
}

type tableRepo struct{ db *gorm.DB }

func NewTableRepository(db *gorm.DB) TableRepository { return &tableRepo{db: db} }

func (r *tableRepo) Create(ctx context.Context, t *model.Table) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tableRepo) FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Table, error) {
	var t model.Table
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ? AND active = true", id, restaurantID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tableRepo) List(ctx context.Context, restaurantID uuid.UUID) ([]model.Table, error) {
	var list []model.Table
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND active = true", restaurantID).
		Order("name asc").
		Find(&list).Error
	return list, err
}

func (r *tableRepo) Update(ctx context.Context, t *model.Table) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *tableRepo) SoftDelete(ctx context.Context, restaurantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Table{}).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Update("active", false).Error
}
