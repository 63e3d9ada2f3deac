package repository

import (
	"context"

	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffRepository interface {
	Create(ctx context.Context, s *model.Staff) error
	FindByUsername(ctx context.Context, username string) (*model.Staff, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Staff, error)
	List(ctx context.Context, restaurantID uuid.UUID, includeInactive bool) ([]model.Staff, error)
	Update(ctx context.Context, s *model.Staff) error
	SoftDelete(ctx context.Context, restaurantID, id uuid.UUID) error
}

type staffRepo struct{ db *gorm.DB }

func NewStaffRepository(db *gorm.DB) StaffRepository { return &staffRepo{db: db} }

func (r *staffRepo) Create(ctx context.Context, s *model.Staff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *staffRepo) FindByUsername(ctx context.Context, username string) (*model.Staff, error) {
	var s model.Staff
	// login by username or email
	err := r.db.WithContext(ctx).
		Where("(username = ? OR LOWER(email) = LOWER(?)) AND active = true", username, username).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *staffRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	var s model.Staff
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *staffRepo) List(ctx context.Context, restaurantID uuid.UUID, includeInactive bool) ([]model.Staff, error) {
	var list []model.Staff
	q := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if !includeInactive {
		q = q.Where("active = true")
	}
	err := q.Order("name asc").Find(&list).Error
	return list, err
}

func (r *staffRepo) Update(ctx context.Context, s *model.Staff) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *staffRepo) SoftDelete(ctx context.Context, restaurantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Staff{}).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Update("active", false).Error
}
