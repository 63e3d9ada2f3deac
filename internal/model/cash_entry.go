package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cash entry kinds.
const (
	CashExpense = "expense"
	CashIncome  = "income"
)

// CashEntry is a manual money movement outside bill sales: a supplier
// payment, petty cash, a catering advance. Amount is always positive; Kind
// carries the direction.
type CashEntry struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index:idx_cash_restaurant_date"`
	Kind         string          `gorm:"type:varchar(10);not null"`
	Category     string          `gorm:"type:varchar(50);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Note         string
	EntryDate    time.Time `gorm:"type:date;not null;index:idx_cash_restaurant_date"`
	StaffID      uuid.UUID `gorm:"type:uuid"`
	StaffName    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Signed returns Amount with expenses negated.
func (e CashEntry) Signed() decimal.Decimal {
	if e.Kind == CashExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}
