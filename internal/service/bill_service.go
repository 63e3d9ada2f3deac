package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablepos/internal/billing"
	"tablepos/internal/dto"
	"tablepos/internal/kot"
	"tablepos/internal/model"
	"tablepos/internal/printing"
	"tablepos/internal/repository"
	"tablepos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// BillService finalises, lists, re-opens and prints bills.
type BillService interface {
	Preview(ctx context.Context, sess Session, tableID uuid.UUID, req dto.BillRequest) (*dto.BillResponse, error)
	Save(ctx context.Context, sess Session, tableID uuid.UUID, req dto.BillRequest) (*dto.BillResponse, error)
	List(ctx context.Context, sess Session, filter dto.BillFilter) (*dto.BillListResponse, error)
	Get(ctx context.Context, sess Session, id uuid.UUID) (*dto.BillResponse, error)
	Reopen(ctx context.Context, sess Session, id uuid.UUID) (*dto.BillResponse, error)
	Print(ctx context.Context, sess Session, id uuid.UUID, req dto.PrintRequest, window printing.WindowOpener) (*dto.PrintResponse, printing.Result, error)
	// Receipt serves the bill_archive worker.
	Receipt(ctx context.Context, restaurantID, billID uuid.UUID) (*worker.Receipt, error)
}

// JobQueue is satisfied by worker.Dispatcher.
type JobQueue interface {
	EnqueueBillArchive(ctx context.Context, payload worker.BillArchivePayload) error
}

type BillDeps struct {
	Bills    repository.BillRepository
	Tables   repository.TableRepository
	Settings SettingsService
	Printer  *Printer
	Jobs     JobQueue
	Cache    Cache
	Now      func() time.Time
}

type billService struct {
	bills    repository.BillRepository
	tables   repository.TableRepository
	settings SettingsService
	printer  *Printer
	jobs     JobQueue
	cache    Cache
	now      func() time.Time
}

func NewBillService(d BillDeps) BillService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &billService{
		bills:    d.Bills,
		tables:   d.Tables,
		settings: d.Settings,
		printer:  d.Printer,
		jobs:     d.Jobs,
		cache:    orNoCache(d.Cache),
		now:      d.Now,
	}
}

const billNumberAttempts = 5

// BillNumber derives the bill number from the save time:
// YYYYMMDDHHMMSS followed by milliseconds.
func BillNumber(t time.Time) string {
	return t.Format("20060102150405") + fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// billTotals recomputes the totals of a stored bill from its own fields.
func billTotals(b *model.Bill) (billing.Totals, error) {
	items, err := b.CartItems()
	if err != nil {
		return billing.Totals{}, err
	}
	charges, err := b.Charges()
	if err != nil {
		return billing.Totals{}, err
	}
	return billing.Calculate(billing.Input{
		Items:             items,
		AdditionalCharges: charges,
		DiscountAmount:    b.DiscountAmount,
		CGST:              b.CGST,
		SGST:              b.SGST,
	}), nil
}

func mapBill(b *model.Bill) (*dto.BillResponse, error) {
	items, err := b.CartItems()
	if err != nil {
		return nil, err
	}
	totals, err := billTotals(b)
	if err != nil {
		return nil, err
	}
	resp := &dto.BillResponse{
		ID:                 b.ID.String(),
		BillNumber:         b.BillNumber,
		TableID:            b.TableID.String(),
		TableName:          b.TableLabel,
		Persons:            b.Persons,
		StaffName:          b.StaffName,
		Status:             b.Status,
		Items:              items,
		Totals:             totals,
		OriginalBillNumber: b.OriginalBillNumber,
		SavedAt:            b.SavedAt,
		CreatedAt:          b.CreatedAt,
	}
	if b.OriginalBillID != nil {
		id := b.OriginalBillID.String()
		resp.OriginalBillID = &id
	}
	return resp, nil
}

// applyRequest fills the bill-level fields of the open bill from req and
// recomputes its totals. Omitted taxes come from the restaurant rates.
func applyRequest(b *model.Bill, req dto.BillRequest, st model.Settings) error {
	items, err := b.CartItems()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrEmptyCart
	}

	charges := make([]billing.Charge, 0, len(req.AdditionalCharges))
	for _, c := range req.AdditionalCharges {
		charges = append(charges, billing.Charge{Name: c.Name, Amount: c.Amount})
	}
	in := billing.Input{Items: items, AdditionalCharges: charges, DiscountAmount: req.DiscountAmount}

	gross := billing.Calculate(in)
	if req.DiscountAmount.GreaterThan(gross.Subtotal.Add(gross.AdditionalTotal)) {
		return ErrDiscountTooLarge
	}
	cgst, sgst := billing.TaxFromRates(gross.TaxableBase(), st.CGSTRate, st.SGSTRate)
	if req.CGST != nil {
		cgst = *req.CGST
	}
	if req.SGST != nil {
		sgst = *req.SGST
	}
	in.CGST, in.SGST = cgst, sgst

	if err := b.SetCharges(charges); err != nil {
		return err
	}
	b.Persons = req.Persons
	b.ApplyTotals(billing.Calculate(in))
	return nil
}

func (s *billService) openBill(ctx context.Context, sess Session, tableID uuid.UUID) (*model.Bill, error) {
	if _, err := s.tables.FindByID(ctx, sess.RestaurantID, tableID); err != nil {
		if isNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	b, err := s.bills.FindOpenByTable(ctx, sess.RestaurantID, tableID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	return b, nil
}

func (s *billService) find(ctx context.Context, sess Session, id uuid.UUID) (*model.Bill, error) {
	b, err := s.bills.FindByID(ctx, sess.RestaurantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return b, nil
}

// ── Save ──────────────────────────────────────────────────────────────────────

func (s *billService) Preview(ctx context.Context, sess Session, tableID uuid.UUID, req dto.BillRequest) (*dto.BillResponse, error) {
	b, err := s.openBill(ctx, sess, tableID)
	if err != nil {
		return nil, err
	}
	if err := applyRequest(b, req, s.settings.Load(ctx, sess)); err != nil {
		return nil, err
	}
	return mapBill(b)
}

// Save finalises the open bill in one transaction, then queues the receipt
// archive. A failed enqueue does not undo the save.
func (s *billService) Save(ctx context.Context, sess Session, tableID uuid.UUID, req dto.BillRequest) (*dto.BillResponse, error) {
	b, err := s.openBill(ctx, sess, tableID)
	if err != nil {
		return nil, err
	}
	if err := applyRequest(b, req, s.settings.Load(ctx, sess)); err != nil {
		return nil, err
	}

	b.Status = model.BillSaved
	b.CustomerEmail = req.CustomerEmail
	if b.StaffName == "" {
		b.StaffID, b.StaffName = sess.UserID, sess.Name
	}

	// Two saves in the same millisecond get the same number; the later one
	// moves forward a millisecond and tries again.
	now := s.now()
	var number string
	for attempt := 1; ; attempt++ {
		number = BillNumber(now)
		savedAt := now
		b.BillNumber = &number
		b.SavedAt = &savedAt
		err = runTx(ctx, s.bills.DB(), func(tx *gorm.DB) error {
			return s.bills.Update(ctx, tx, b)
		})
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == billNumberAttempts {
			break
		}
		log.Warn().Str("bill_number", number).Int("attempt", attempt).Msg("bill: number taken, retrying")
		now = now.Add(time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("save bill: %w", err)
	}
	log.Info().
		Str("bill_id", b.ID.String()).
		Str("bill_number", number).
		Str("grand_total", b.GrandTotal.StringFixed(2)).
		Msg("bill: saved")

	invalidate(ctx, s.cache, mirrorKey(sess, draftKey(tableID)))
	if s.jobs != nil {
		job := worker.BillArchivePayload{
			RestaurantID:  sess.RestaurantID.String(),
			BillID:        b.ID.String(),
			CustomerEmail: req.CustomerEmail,
		}
		if err := s.jobs.EnqueueBillArchive(ctx, job); err != nil {
			log.Error().Err(err).Str("bill_id", b.ID.String()).Msg("bill: failed to enqueue archive job")
		}
	}
	return mapBill(b)
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *billService) List(ctx context.Context, sess Session, filter dto.BillFilter) (*dto.BillListResponse, error) {
	rows, total, err := s.bills.List(ctx, sess.RestaurantID, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.BillListResponse{Bills: make([]dto.BillResponse, 0, len(rows)), Total: total}
	for i := range rows {
		r, err := mapBill(&rows[i])
		if err != nil {
			return nil, err
		}
		out.Bills = append(out.Bills, *r)
	}
	return out, nil
}

func (s *billService) Get(ctx context.Context, sess Session, id uuid.UUID) (*dto.BillResponse, error) {
	b, err := s.find(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return mapBill(b)
}

// ── Reopen ────────────────────────────────────────────────────────────────────

// Reopen starts a new open bill on the same table holding the saved bill's
// lines, charges and discount. The saved bill stays as issued. Its KOTs are
// copied as already printed so the kitchen is not asked again.
func (s *billService) Reopen(ctx context.Context, sess Session, id uuid.UUID) (*dto.BillResponse, error) {
	orig, err := s.find(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if orig.Status != model.BillSaved {
		return nil, ErrBillNotSaved
	}
	if _, err := s.bills.FindOpenByTable(ctx, sess.RestaurantID, orig.TableID); err == nil {
		return nil, ErrTableOccupied
	} else if !isNotFound(err) {
		return nil, err
	}

	origID := orig.ID
	fresh := &model.Bill{
		ID:                 uuid.New(),
		RestaurantID:       orig.RestaurantID,
		TableID:            orig.TableID,
		TableLabel:         orig.TableLabel,
		Persons:            orig.Persons,
		StaffID:            sess.UserID,
		StaffName:          sess.Name,
		Items:              orig.Items,
		AdditionalCharges:  orig.AdditionalCharges,
		DiscountAmount:     orig.DiscountAmount,
		Status:             model.BillOpen,
		OriginalBillID:     &origID,
		OriginalBillNumber: orig.BillNumber,
	}
	totals, err := billTotals(fresh)
	if err != nil {
		return nil, err
	}
	fresh.ApplyTotals(totals)

	tickets, err := model.Tickets(orig.KOTs)
	if err != nil {
		return nil, err
	}
	now := s.now()
	err = runTx(ctx, s.bills.DB(), func(tx *gorm.DB) error {
		if err := s.bills.Create(ctx, tx, fresh); err != nil {
			return err
		}
		for _, t := range tickets {
			row, err := model.KOTFromTicket(fresh.ID, copyPrinted(t, now))
			if err != nil {
				return err
			}
			if err := s.bills.CreateKOT(ctx, tx, &row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reopen bill: %w", err)
	}
	log.Info().
		Str("bill_id", fresh.ID.String()).
		Str("original_bill_id", orig.ID.String()).
		Msg("bill: reopened")
	return mapBill(fresh)
}

func copyPrinted(t kot.Ticket, now time.Time) kot.Ticket {
	t.ID = uuid.New()
	if !t.Printed || t.PrintedAt == nil {
		t.Printed = true
		t.PrintedAt = &now
	}
	return t
}

// ── Printing ──────────────────────────────────────────────────────────────────

func (s *billService) receiptDocuments(b *model.Bill, st model.Settings) (printing.Document, printing.Document, billing.Totals, error) {
	totals, err := billTotals(b)
	if err != nil {
		return printing.Document{}, printing.Document{}, billing.Totals{}, err
	}
	view := printing.BillView{
		Header:    receiptHeader(st),
		TableName: b.TableLabel,
		Persons:   b.Persons,
		Staff:     b.StaffName,
		Totals:    totals,
	}
	if b.BillNumber != nil {
		view.BillNumber = *b.BillNumber
	}
	if b.SavedAt != nil {
		view.Date = *b.SavedAt
	}
	return printing.BuildBillDocument(view, billing.FormatFixed),
		printing.BuildBillDocument(view, billing.FormatCompact),
		totals, nil
}

func (s *billService) Print(ctx context.Context, sess Session, id uuid.UUID, req dto.PrintRequest, window printing.WindowOpener) (*dto.PrintResponse, printing.Result, error) {
	b, err := s.find(ctx, sess, id)
	if err != nil {
		return nil, printing.Result{}, err
	}
	if b.Status != model.BillSaved {
		return nil, printing.Result{}, ErrBillNotSaved
	}
	st := s.settings.Load(ctx, sess)
	doc, text, _, err := s.receiptDocuments(b, st)
	if err != nil {
		return nil, printing.Result{}, err
	}
	res, err := s.printer.Print(ctx, sess, PrintJob{
		Kind:         PrintKindBill,
		RefID:        b.ID,
		Document:     doc,
		TextDocument: &text,
		Settings:     st,
		Request:      req,
		Window:       window,
	})
	if err != nil {
		return nil, res, err
	}
	return &dto.PrintResponse{Target: string(res.Target), Bytes: res.Bytes, PrintedAt: s.now()}, res, nil
}

func (s *billService) Receipt(ctx context.Context, restaurantID, billID uuid.UUID) (*worker.Receipt, error) {
	sess := Session{RestaurantID: restaurantID}
	b, err := s.find(ctx, sess, billID)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BillSaved || b.BillNumber == nil {
		return nil, ErrBillNotSaved
	}
	st := s.settings.Load(ctx, sess)
	doc, _, totals, err := s.receiptDocuments(b, st)
	if err != nil {
		return nil, err
	}
	return &worker.Receipt{
		BillNumber: *b.BillNumber,
		Restaurant: st.Name,
		GrandTotal: billing.FormatFixed(totals.GrandTotal),
		Document:   doc,
		Profile:    s.printer.Profile(st),
	}, nil
}

var _ worker.ReceiptSource = (*billService)(nil)
