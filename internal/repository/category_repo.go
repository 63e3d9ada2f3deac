package repository

import (
	"context"

	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRepository defines CRUD operations for Category.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	List(ctx context.Context, restaurantID uuid.UUID) ([]model.Category, error)
	FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Category, error)
	FindByName(ctx context.Context, restaurantID uuid.UUID, name string) (*model.Category, error)
	Update(ctx context.Context, c *model.Category) error
	Deactivate(ctx context.Context, restaurantID, id uuid.UUID) error
}

type categoryRepository struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoryRepository) List(ctx context.Context, restaurantID uuid.UUID) ([]model.Category, error) {
	var list []model.Category
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND active = true", restaurantID).
		Order("sort_order asc, name asc").
		Find(&list).Error
	return list, err
}

func (r *categoryRepository) FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).First(&c, "id = ? AND restaurant_id = ?", id, restaurantID).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, restaurantID uuid.UUID, name string) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND lower(name) = lower(?)", restaurantID, name).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) Update(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *categoryRepository) Deactivate(ctx context.Context, restaurantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Category{}).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Update("active", false).Error
}
