package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings is the per-restaurant configuration: receipt header, printer and
// tax rates. One row per restaurant.
// PrinterWidth: "2-inch" | "3-inch"; PrinterMode: "raster" | "text"
type Settings struct {
	RestaurantID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name             string    `gorm:"not null"`
	Address          string
	Phone            string
	GSTIN            string `gorm:"column:gstin"`
	Footer           string
	PrinterWidth     string          `gorm:"type:varchar(10);not null;default:'3-inch'"`
	PrinterMode      string          `gorm:"type:varchar(10);not null;default:'raster'"`
	BridgeDeviceMac  string          `gorm:"type:varchar(32)"`
	BridgeDeviceName string          `gorm:"type:varchar(100)"`
	CGSTRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0;column:cgst_rate"`
	SGSTRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0;column:sgst_rate"`
	UpdatedAt        time.Time
}

func (Settings) TableName() string { return "settings" }
