package service

import (
	"context"
	"strings"
	"time"

	"tablepos/internal/dto"
	"tablepos/internal/model"
	"tablepos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// CashService records expenses and income that do not come from bills.
type CashService interface {
	Create(ctx context.Context, sess Session, req dto.CashEntryRequest) (*dto.CashEntryResponse, error)
	List(ctx context.Context, sess Session, filter dto.CashEntryFilter) (*dto.CashEntryListResponse, error)
	Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateCashEntryRequest) (*dto.CashEntryResponse, error)
	Delete(ctx context.Context, sess Session, id uuid.UUID) error
}

type cashService struct {
	repo repository.CashEntryRepository
	now  func() time.Time
}

func NewCashService(repo repository.CashEntryRepository, now func() time.Time) CashService {
	if now == nil {
		now = time.Now
	}
	return &cashService{repo: repo, now: now}
}

func mapCashEntry(e *model.CashEntry) dto.CashEntryResponse {
	return dto.CashEntryResponse{
		ID:        e.ID.String(),
		Kind:      e.Kind,
		Category:  e.Category,
		Amount:    e.Amount,
		Note:      e.Note,
		Date:      e.EntryDate.Format(dateLayout),
		StaffName: e.StaffName,
	}
}

// entryDate parses a YYYY-MM-DD date, defaulting to today.
func (s *cashService) entryDate(v string) (time.Time, error) {
	if v == "" {
		y, m, d := s.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(dateLayout, v)
}

func (s *cashService) Create(ctx context.Context, sess Session, req dto.CashEntryRequest) (*dto.CashEntryResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	day, err := s.entryDate(req.Date)
	if err != nil {
		return nil, err
	}
	e := &model.CashEntry{
		RestaurantID: sess.RestaurantID,
		Kind:         req.Kind,
		Category:     strings.TrimSpace(req.Category),
		Amount:       req.Amount.Round(2),
		Note:         strings.TrimSpace(req.Note),
		EntryDate:    day,
		StaffID:      sess.UserID,
		StaffName:    sess.Name,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	resp := mapCashEntry(e)
	return &resp, nil
}

// List returns one page of entries plus the income and expense totals of
// the whole filtered range.
func (s *cashService) List(ctx context.Context, sess Session, filter dto.CashEntryFilter) (*dto.CashEntryListResponse, error) {
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return nil, ErrInvalidDateRange
	}
	rows, total, err := s.repo.List(ctx, sess.RestaurantID, filter)
	if err != nil {
		return nil, err
	}
	income, expense, err := cashTotals(ctx, s.repo, sess.RestaurantID, filter.From, filter.To)
	if err != nil {
		return nil, err
	}
	resp := &dto.CashEntryListResponse{
		Data:    make([]dto.CashEntryResponse, len(rows)),
		Total:   total,
		Page:    filter.Page,
		Income:  income,
		Expense: expense,
	}
	for i := range rows {
		resp.Data[i] = mapCashEntry(&rows[i])
	}
	return resp, nil
}

func (s *cashService) Update(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateCashEntryRequest) (*dto.CashEntryResponse, error) {
	e, err := s.repo.FindByID(ctx, sess.RestaurantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCashEntryNotFound
		}
		return nil, err
	}
	if req.Kind != nil {
		e.Kind = *req.Kind
	}
	if req.Category != nil {
		e.Category = strings.TrimSpace(*req.Category)
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		e.Amount = req.Amount.Round(2)
	}
	if req.Note != nil {
		e.Note = strings.TrimSpace(*req.Note)
	}
	if req.Date != nil {
		day, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			return nil, err
		}
		e.EntryDate = day
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	resp := mapCashEntry(e)
	return &resp, nil
}

func (s *cashService) Delete(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, sess.RestaurantID, id); err != nil {
		if isNotFound(err) {
			return ErrCashEntryNotFound
		}
		return err
	}
	return nil
}

// cashEntries pages through every entry in the date range.
func cashEntries(ctx context.Context, repo repository.CashEntryRepository, restaurantID uuid.UUID, from, to string) ([]model.CashEntry, error) {
	filter := dto.CashEntryFilter{From: from, To: to, Limit: reportPage}
	var out []model.CashEntry
	for page := 1; ; page++ {
		filter.Page = page
		rows, total, err := repo.List(ctx, restaurantID, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < reportPage || int64(len(out)) >= total {
			return out, nil
		}
	}
}

func cashTotals(ctx context.Context, repo repository.CashEntryRepository, restaurantID uuid.UUID, from, to string) (income, expense decimal.Decimal, err error) {
	rows, err := cashEntries(ctx, repo, restaurantID, from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	for _, e := range rows {
		if e.Kind == model.CashExpense {
			expense = expense.Add(e.Amount)
		} else {
			income = income.Add(e.Amount)
		}
	}
	return income, expense, nil
}
