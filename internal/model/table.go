package model

import (
	"time"

	"github.com/google/uuid"
)

// Table is a dine-in table (or a counter/parcel slot).
type Table struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_table_restaurant_name"`
	Name         string    `gorm:"not null;uniqueIndex:idx_table_restaurant_name"`
	Capacity     int       `gorm:"not null;default:4"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Table) TableName() string { return "dining_tables" }
