package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is one orderable dish. Category holds the category name as shown
// on the menu; IsAvailable hides the dish for the day without deleting it.
type MenuItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name         string          `gorm:"index;not null"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Category     string          `gorm:"index;not null"`
	IsAvailable  bool            `gorm:"not null;default:true"`
	Active       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (MenuItem) TableName() string { return "menu_items" }
