package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is the authenticated caller of one request. It is built from the
// JWT claims by the handler layer and passed explicitly into every call.
type Session struct {
	RestaurantID uuid.UUID
	UserID       uuid.UUID
	Username     string
	Name         string
	Role         string
	// Bridge is set when the client runs inside the mobile host app that can
	// reach the paired Bluetooth printer.
	Bridge bool
}

// ── Errors ────────────────────────────────────────────────────────────────────

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrSelfDeactivate     = errors.New("cannot deactivate your own account")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryExists     = errors.New("a category with that name already exists")
	ErrUnknownCategory    = errors.New("category does not exist")
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrMenuItemHidden     = errors.New("menu item is not available")
	ErrNegativePrice      = errors.New("price must not be negative")
	ErrTableNotFound      = errors.New("table not found")
	ErrTableExists        = errors.New("a table with that name already exists")
	ErrTableOccupied      = errors.New("table has an open bill")
	ErrItemNotInCart      = errors.New("item is not in the cart")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNoOpenBill         = errors.New("table has no open bill")
	ErrBillNotFound       = errors.New("bill not found")
	ErrBillNotSaved       = errors.New("bill is not saved")
	ErrNothingToPrint     = errors.New("no KOTs waiting to print")
	ErrDiscountTooLarge   = errors.New("discount exceeds bill amount")
	ErrCashEntryNotFound  = errors.New("cash entry not found")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidDateRange   = errors.New("from date is after to date")
)

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
