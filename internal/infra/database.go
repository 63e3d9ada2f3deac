package infra

import (
	"fmt"

	"tablepos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that
// GORM tags cannot express (partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Staff{},
		&model.Category{},
		&model.MenuItem{},
		&model.Table{},
		&model.Settings{},
		&model.Bill{},
		&model.KOT{},
		&model.PrintJob{},
		&model.CashEntry{},
	}
}

// RunMigrations creates or updates the schema. Integration tests call it
// directly on a fresh container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each statement uses IF NOT EXISTS semantics so re-running
// on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// at most one open bill per table
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bills_open_table
		    ON bills (table_id) WHERE status = 'open'`,
		// KOT print queue lookups
		`CREATE INDEX IF NOT EXISTS idx_kots_unprinted
		    ON kots (bill_id, created_at) WHERE printed = false`,
		// bill history screen sorts by saved date
		`CREATE INDEX IF NOT EXISTS idx_bills_restaurant_saved
		    ON bills (restaurant_id, saved_at DESC) WHERE status = 'saved'`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
