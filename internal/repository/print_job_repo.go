package repository

import (
	"context"

	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrintJobRepository interface {
	Create(ctx context.Context, j *model.PrintJob) error
	ListByRef(ctx context.Context, restaurantID, refID uuid.UUID) ([]model.PrintJob, error)
}

type printJobRepo struct{ db *gorm.DB }

func NewPrintJobRepository(db *gorm.DB) PrintJobRepository {
	return &printJobRepo{db: db}
}

func (r *printJobRepo) Create(ctx context.Context, j *model.PrintJob) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *printJobRepo) ListByRef(ctx context.Context, restaurantID, refID uuid.UUID) ([]model.PrintJob, error) {
	var jobs []model.PrintJob
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND ref_id = ?", restaurantID, refID).
		Order("created_at desc").
		Find(&jobs).Error
	return jobs, err
}
