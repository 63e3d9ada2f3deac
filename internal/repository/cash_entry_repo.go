package repository

import (
	"context"

	"tablepos/internal/dto"
	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CashEntryRepository interface {
	Create(ctx context.Context, e *model.CashEntry) error
	FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.CashEntry, error)
	List(ctx context.Context, restaurantID uuid.UUID, filter dto.CashEntryFilter) ([]model.CashEntry, int64, error)
	Update(ctx context.Context, e *model.CashEntry) error
	Delete(ctx context.Context, restaurantID, id uuid.UUID) error
}

type cashEntryRepo struct{ db *gorm.DB }

func NewCashEntryRepository(db *gorm.DB) CashEntryRepository { return &cashEntryRepo{db: db} }

func (r *cashEntryRepo) Create(ctx context.Context, e *model.CashEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *cashEntryRepo) FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.CashEntry, error) {
	var e model.CashEntry
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *cashEntryRepo) List(ctx context.Context, restaurantID uuid.UUID, filter dto.CashEntryFilter) ([]model.CashEntry, int64, error) {
	var list []model.CashEntry
	var total int64

	q := r.db.WithContext(ctx).Model(&model.CashEntry{}).Where("restaurant_id = ?", restaurantID)
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.From != "" {
		q = q.Where("entry_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("entry_date <= ?", filter.To)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("entry_date DESC, created_at DESC")
	if filter.Limit > 0 {
		q = q.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}
	err := q.Find(&list).Error
	return list, total, err
}

func (r *cashEntryRepo) Update(ctx context.Context, e *model.CashEntry) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *cashEntryRepo) Delete(ctx context.Context, restaurantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Delete(&model.CashEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
