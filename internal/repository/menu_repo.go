package repository

import (
	"context"

	"tablepos/internal/dto"
	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MenuRepository defines the data access contract for menu items.
type MenuRepository interface {
	Create(ctx context.Context, m *model.MenuItem) error
	FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.MenuItem, error)
	List(ctx context.Context, restaurantID uuid.UUID, filter dto.MenuFilter) ([]model.MenuItem, int64, error)
	Update(ctx context.Context, m *model.MenuItem) error
	SoftDelete(ctx context.Context, restaurantID, id uuid.UUID) error
	RenameCategory(ctx context.Context, restaurantID uuid.UUID, from, to string) error
}

type menuRepo struct{ db *gorm.DB }

func NewMenuRepository(db *gorm.DB) MenuRepository { return &menuRepo{db: db} }

func (r *menuRepo) Create(ctx context.Context, m *model.MenuItem) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *menuRepo) FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.MenuItem, error) {
	var m model.MenuItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ? AND active = true", id, restaurantID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *menuRepo) List(ctx context.Context, restaurantID uuid.UUID, filter dto.MenuFilter) ([]model.MenuItem, int64, error) {
	var items []model.MenuItem
	var total int64

	q := r.db.WithContext(ctx).Model(&model.MenuItem{}).
		Where("restaurant_id = ? AND active = true", restaurantID)

	// Available: "true" = only available, "false" = only hidden, anything else = all
	switch filter.Available {
	case "true":
		q = q.Where("is_available = true")
	case "false":
		q = q.Where("is_available = false")
	}
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("category ASC, name ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset((filter.Page - 1) * filter.Limit)
	}
	err := q.Find(&items).Error
	return items, total, err
}

func (r *menuRepo) Update(ctx context.Context, m *model.MenuItem) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *menuRepo) SoftDelete(ctx context.Context, restaurantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.MenuItem{}).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Update("active", false).Error
}

// RenameCategory moves every item of category from onto to.
func (r *menuRepo) RenameCategory(ctx context.Context, restaurantID uuid.UUID, from, to string) error {
	return r.db.WithContext(ctx).Model(&model.MenuItem{}).
		Where("restaurant_id = ? AND category = ?", restaurantID, from).
		Update("category", to).Error
}
