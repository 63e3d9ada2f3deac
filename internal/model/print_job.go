package model

import (
	"time"

	"github.com/google/uuid"
)

// PrintJob is the audit record of one dispatch attempt.
// Kind: "bill" | "kot"; Status: "sent" | "failed" | "cancelled"
type PrintJob struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestaurantID uuid.UUID `gorm:"type:uuid;index;not null"`
	Kind         string    `gorm:"type:varchar(10);not null"`
	// RefID is the bill id for both kinds; KOTIDs lists the tickets of a run
	RefID     uuid.UUID `gorm:"type:uuid;index;not null"`
	KOTIDs    *string   `gorm:"column:kot_ids"`
	Target    string    `gorm:"type:varchar(20);not null"`
	Status    string    `gorm:"type:varchar(10);not null"`
	Bytes     int       `gorm:"not null;default:0"`
	LastError *string
	StaffID   uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

func (PrintJob) TableName() string { return "print_jobs" }
