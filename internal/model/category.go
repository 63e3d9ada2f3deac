package model

import (
	"time"

	"github.com/google/uuid"
)

// Category groups menu items on the ordering screen.
type Category struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_category_restaurant_name"`
	Name         string    `gorm:"not null;uniqueIndex:idx_category_restaurant_name"`
	SortOrder    int       `gorm:"not null;default:0"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Category) TableName() string { return "categories" }
