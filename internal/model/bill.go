package model

import (
	"encoding/json"
	"time"

	"tablepos/internal/billing"
	"tablepos/internal/cart"
	"tablepos/internal/kot"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	BillOpen  = "open"
	BillSaved = "saved"
)

// Bill is the order of one table visit. While Status is "open" its Items are
// the live cart; saving assigns BillNumber and freezes the money fields.
// A table has at most one open bill.
type Bill struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestaurantID uuid.UUID `gorm:"type:uuid;index;not null"`
	TableID      uuid.UUID `gorm:"type:uuid;index;not null"`
	TableLabel   string    `gorm:"column:table_name;not null"`
	Persons      int       `gorm:"not null;default:0"`
	StaffID      uuid.UUID `gorm:"type:uuid;not null"`
	StaffName    string

	// Items is []cart.Item; AdditionalCharges is []billing.Charge
	Items             datatypes.JSON `gorm:"type:jsonb;not null"`
	AdditionalCharges datatypes.JSON `gorm:"type:jsonb"`

	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CGST            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;column:cgst"`
	SGST            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;column:sgst"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	AdditionalTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	GrandTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	BillNumber         *string    `gorm:"type:varchar(20);uniqueIndex"`
	Status             string     `gorm:"type:varchar(10);not null;default:'open';index"`
	OriginalBillID     *uuid.UUID `gorm:"type:uuid"`
	OriginalBillNumber *string    `gorm:"type:varchar(20)"`
	CustomerEmail      *string
	SavedAt            *time.Time `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	KOTs []KOT `gorm:"foreignKey:BillID"`
}

func (Bill) TableName() string { return "bills" }

// CartItems decodes Items.
func (b *Bill) CartItems() ([]cart.Item, error) {
	var items []cart.Item
	if len(b.Items) == 0 {
		return items, nil
	}
	err := json.Unmarshal(b.Items, &items)
	return items, err
}

// SetCartItems encodes items into Items.
func (b *Bill) SetCartItems(items []cart.Item) error {
	if items == nil {
		items = []cart.Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	b.Items = datatypes.JSON(raw)
	return nil
}

// Charges decodes AdditionalCharges.
func (b *Bill) Charges() ([]billing.Charge, error) {
	var charges []billing.Charge
	if len(b.AdditionalCharges) == 0 {
		return charges, nil
	}
	err := json.Unmarshal(b.AdditionalCharges, &charges)
	return charges, err
}

// SetCharges encodes charges into AdditionalCharges.
func (b *Bill) SetCharges(charges []billing.Charge) error {
	if charges == nil {
		charges = []billing.Charge{}
	}
	raw, err := json.Marshal(charges)
	if err != nil {
		return err
	}
	b.AdditionalCharges = datatypes.JSON(raw)
	return nil
}

// ApplyTotals copies the computed money fields onto the bill.
func (b *Bill) ApplyTotals(t billing.Totals) {
	b.DiscountAmount = t.DiscountAmount
	b.CGST = t.CGST
	b.SGST = t.SGST
	b.Subtotal = t.Subtotal
	b.AdditionalTotal = t.AdditionalTotal
	b.GrandTotal = t.GrandTotal
}

// KOT is the stored form of a kot.Ticket. Rows are append-only; only Items
// (reductions before print) and the printed flag change after insert.
type KOT struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	BillID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_kot_bill_number"`
	Number    int            `gorm:"not null;uniqueIndex:idx_kot_bill_number"`
	Items     datatypes.JSON `gorm:"type:jsonb;not null"`
	Printed   bool           `gorm:"not null;default:false;index"`
	PrintedAt *time.Time
	CreatedAt time.Time
}

func (KOT) TableName() string { return "kots" }

// Ticket converts the row into the tracker's value type.
func (k *KOT) Ticket() (kot.Ticket, error) {
	var items []cart.Item
	if len(k.Items) > 0 {
		if err := json.Unmarshal(k.Items, &items); err != nil {
			return kot.Ticket{}, err
		}
	}
	return kot.Ticket{
		ID:        k.ID,
		Number:    k.Number,
		Items:     items,
		CreatedAt: k.CreatedAt,
		Printed:   k.Printed,
		PrintedAt: k.PrintedAt,
	}, nil
}

// KOTFromTicket builds the row for t under billID.
func KOTFromTicket(billID uuid.UUID, t kot.Ticket) (KOT, error) {
	items := t.Items
	if items == nil {
		items = []cart.Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return KOT{}, err
	}
	return KOT{
		ID:        t.ID,
		BillID:    billID,
		Number:    t.Number,
		Items:     datatypes.JSON(raw),
		Printed:   t.Printed,
		PrintedAt: t.PrintedAt,
		CreatedAt: t.CreatedAt,
	}, nil
}

// Tickets converts rows, oldest first as stored.
func Tickets(rows []KOT) ([]kot.Ticket, error) {
	out := make([]kot.Ticket, 0, len(rows))
	for i := range rows {
		t, err := rows[i].Ticket()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
