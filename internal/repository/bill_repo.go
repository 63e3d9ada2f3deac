package repository

import (
	"context"
	"time"

	"tablepos/internal/dto"
	"tablepos/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BillRepository stores bills and their KOTs. Methods taking a tx run on it
// when non-nil so the service can group writes into one transaction.
type BillRepository interface {
	Create(ctx context.Context, tx *gorm.DB, b *model.Bill) error
	Update(ctx context.Context, tx *gorm.DB, b *model.Bill) error
	FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Bill, error)
	FindOpenByTable(ctx context.Context, restaurantID, tableID uuid.UUID) (*model.Bill, error)
	ListOpen(ctx context.Context, restaurantID uuid.UUID) ([]model.Bill, error)
	List(ctx context.Context, restaurantID uuid.UUID, filter dto.BillFilter) ([]model.Bill, int64, error)

	ListKOTs(ctx context.Context, billID uuid.UUID) ([]model.KOT, error)
	CreateKOT(ctx context.Context, tx *gorm.DB, k *model.KOT) error
	UpdateKOTItems(ctx context.Context, tx *gorm.DB, id uuid.UUID, items datatypes.JSON) error
	// MarkKOTsPrinted flips printed on the given rows that are still unprinted
	// and returns how many changed.
	MarkKOTsPrinted(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type billRepo struct{ db *gorm.DB }

func NewBillRepository(db *gorm.DB) BillRepository { return &billRepo{db: db} }

func (r *billRepo) DB() *gorm.DB { return r.db }

func (r *billRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *billRepo) Create(ctx context.Context, tx *gorm.DB, b *model.Bill) error {
	return r.conn(ctx, tx).Omit("KOTs").Create(b).Error
}

func (r *billRepo) Update(ctx context.Context, tx *gorm.DB, b *model.Bill) error {
	return r.conn(ctx, tx).Omit("KOTs").Save(b).Error
}

func (r *billRepo) FindByID(ctx context.Context, restaurantID, id uuid.UUID) (*model.Bill, error) {
	var b model.Bill
	err := r.db.WithContext(ctx).
		Preload("KOTs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, number ASC") }).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billRepo) FindOpenByTable(ctx context.Context, restaurantID, tableID uuid.UUID) (*model.Bill, error) {
	var b model.Bill
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND table_id = ? AND status = ?", restaurantID, tableID, model.BillOpen).
		Order("created_at DESC").
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billRepo) ListOpen(ctx context.Context, restaurantID uuid.UUID) ([]model.Bill, error) {
	var bills []model.Bill
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND status = ?", restaurantID, model.BillOpen).
		Find(&bills).Error
	return bills, err
}

func (r *billRepo) List(ctx context.Context, restaurantID uuid.UUID, filter dto.BillFilter) ([]model.Bill, int64, error) {
	var bills []model.Bill
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Bill{}).Where("restaurant_id = ?", restaurantID)

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TableID != "" {
		q = q.Where("table_id = ?", filter.TableID)
	}
	if filter.From != "" {
		q = q.Where("DATE(COALESCE(saved_at, created_at)) >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("DATE(COALESCE(saved_at, created_at)) <= ?", filter.To)
	}
	if filter.Search != "" {
		q = q.Where("bill_number LIKE ? OR table_name ILIKE ?", filter.Search+"%", "%"+filter.Search+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("COALESCE(saved_at, created_at) DESC")
	if filter.Limit > 0 {
		q = q.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}
	err := q.Find(&bills).Error
	return bills, total, err
}

func (r *billRepo) ListKOTs(ctx context.Context, billID uuid.UUID) ([]model.KOT, error) {
	var rows []model.KOT
	err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("created_at ASC, number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *billRepo) CreateKOT(ctx context.Context, tx *gorm.DB, k *model.KOT) error {
	return r.conn(ctx, tx).Create(k).Error
}

func (r *billRepo) UpdateKOTItems(ctx context.Context, tx *gorm.DB, id uuid.UUID, items datatypes.JSON) error {
	// printed tickets are immutable
	return r.conn(ctx, tx).Model(&model.KOT{}).
		Where("id = ? AND printed = false", id).
		Update("items", items).Error
}

func (r *billRepo) MarkKOTsPrinted(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.KOT{}).
		Where("id IN ? AND printed = false", ids).
		Updates(map[string]interface{}{"printed": true, "printed_at": at})
	return res.RowsAffected, res.Error
}
