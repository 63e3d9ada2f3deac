package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tablepos/internal/billing"
	"tablepos/internal/cart"
	"tablepos/internal/dto"
	"tablepos/internal/infra"
	"tablepos/internal/kot"
	"tablepos/internal/model"
	"tablepos/internal/printing"
	"tablepos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderService runs the table order: the cart of the open bill and the KOTs
// cut from it.
type OrderService interface {
	GetCart(ctx context.Context, sess Session, tableID uuid.UUID) (*dto.CartResponse, error)
	AddItem(ctx context.Context, sess Session, tableID uuid.UUID, req dto.AddItemRequest) (*dto.CartResponse, error)
	UpdateItem(ctx context.Context, sess Session, tableID uuid.UUID, itemID string, req dto.UpdateItemRequest) (*dto.CartResponse, error)
	RemoveItem(ctx context.Context, sess Session, tableID uuid.UUID, itemID string) (*dto.CartResponse, error)

	CutKOT(ctx context.Context, sess Session, tableID uuid.UUID) (*kot.Ticket, error)
	ListKOTs(ctx context.Context, sess Session, tableID uuid.UUID) ([]kot.Ticket, error)
	PrintKOTs(ctx context.Context, sess Session, tableID uuid.UUID, req dto.PrintRequest, window printing.WindowOpener) (*KOTPrintOutcome, error)
}

// KitchenFeed receives printed tickets; infra.KitchenPublisher implements it.
type KitchenFeed interface {
	PublishKOTPrinted(ctx context.Context, ev infra.KOTPrintedEvent) error
}

type OrderDeps struct {
	Bills    repository.BillRepository
	Tables   repository.TableRepository
	Menu     repository.MenuRepository
	Settings SettingsService
	Printer  *Printer
	Kitchen  KitchenFeed
	Cache    Cache
	Now      func() time.Time
}

type orderService struct {
	bills    repository.BillRepository
	tables   repository.TableRepository
	menu     repository.MenuRepository
	settings SettingsService
	printer  *Printer
	kitchen  KitchenFeed
	cache    Cache
	now      func() time.Time
}

func NewOrderService(d OrderDeps) OrderService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &orderService{
		bills:    d.Bills,
		tables:   d.Tables,
		menu:     d.Menu,
		settings: d.Settings,
		printer:  d.Printer,
		kitchen:  d.Kitchen,
		cache:    orNoCache(d.Cache),
		now:      d.Now,
	}
}

// ── Loading ───────────────────────────────────────────────────────────────────

// tableOrder is the open bill of a table as loaded for one operation.
type tableOrder struct {
	table *model.Table
	bill  *model.Bill
	fresh bool // bill not yet persisted
	cart  *cart.Cart
}

func (s *orderService) table(ctx context.Context, sess Session, tableID uuid.UUID) (*model.Table, error) {
	t, err := s.tables.FindByID(ctx, sess.RestaurantID, tableID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return t, nil
}

// load fetches the open bill of tableID. With create set a missing bill is
// started in memory; otherwise ErrNoOpenBill is returned.
func (s *orderService) load(ctx context.Context, sess Session, tableID uuid.UUID, create bool) (*tableOrder, error) {
	t, err := s.table(ctx, sess, tableID)
	if err != nil {
		return nil, err
	}
	b, err := s.bills.FindOpenByTable(ctx, sess.RestaurantID, tableID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if b == nil {
		if !create {
			return nil, ErrNoOpenBill
		}
		b = &model.Bill{
			ID:           uuid.New(),
			RestaurantID: sess.RestaurantID,
			TableID:      t.ID,
			TableLabel:   t.Name,
			StaffID:      sess.UserID,
			StaffName:    sess.Name,
			Status:       model.BillOpen,
		}
		_ = b.SetCharges(nil)
		return &tableOrder{table: t, bill: b, fresh: true, cart: cart.New(nil)}, nil
	}
	items, err := b.CartItems()
	if err != nil {
		return nil, fmt.Errorf("decode cart of bill %s: %w", b.ID, err)
	}
	return &tableOrder{table: t, bill: b, cart: cart.New(items)}, nil
}

func (s *orderService) tickets(ctx context.Context, billID uuid.UUID) ([]kot.Ticket, error) {
	rows, err := s.bills.ListKOTs(ctx, billID)
	if err != nil {
		return nil, err
	}
	return model.Tickets(rows)
}

// ── Cart ──────────────────────────────────────────────────────────────────────

func (s *orderService) GetCart(ctx context.Context, sess Session, tableID uuid.UUID) (*dto.CartResponse, error) {
	t, err := s.table(ctx, sess, tableID)
	if err != nil {
		if errors.Is(err, ErrTableNotFound) {
			return nil, err
		}
		return s.draft(ctx, sess, tableID, err)
	}
	b, err := s.bills.FindOpenByTable(ctx, sess.RestaurantID, tableID)
	if err != nil {
		if isNotFound(err) {
			return s.emptyCart(ctx, sess, t), nil
		}
		return s.draft(ctx, sess, tableID, err)
	}
	items, err := b.CartItems()
	if err != nil {
		return nil, err
	}
	order := &tableOrder{table: t, bill: b, cart: cart.New(items)}
	tickets, err := s.tickets(ctx, b.ID)
	if err != nil {
		return s.draft(ctx, sess, tableID, err)
	}
	return s.cartResponse(ctx, sess, order, tickets), nil
}

// draft serves the Redis copy of the cart when the database read failed.
func (s *orderService) draft(ctx context.Context, sess Session, tableID uuid.UUID, cause error) (*dto.CartResponse, error) {
	var resp dto.CartResponse
	ok, err := s.cache.GetJSON(ctx, mirrorKey(sess, draftKey(tableID)), &resp)
	if err != nil || !ok {
		return nil, cause
	}
	log.Warn().Err(cause).Str("table_id", tableID.String()).Msg("cart: serving cached draft")
	resp.Cached = true
	return &resp, nil
}

func (s *orderService) emptyCart(ctx context.Context, sess Session, t *model.Table) *dto.CartResponse {
	st := s.settings.Load(ctx, sess)
	return &dto.CartResponse{
		TableID:   t.ID.String(),
		TableName: t.Name,
		Items:     []cart.Item{},
		Totals:    liveTotals(nil, nil, st),
	}
}

func (s *orderService) cartResponse(ctx context.Context, sess Session, o *tableOrder, tickets []kot.Ticket) *dto.CartResponse {
	st := s.settings.Load(ctx, sess)
	charges, _ := o.bill.Charges()
	items := o.cart.Items()
	return &dto.CartResponse{
		BillID:        o.bill.ID.String(),
		TableID:       o.table.ID.String(),
		TableName:     o.table.Name,
		Persons:       o.bill.Persons,
		Items:         items,
		Totals:        liveTotals(items, charges, st),
		UnprintedKOTs: len(kot.Unprinted(tickets)),
	}
}

// liveTotals is the running bill shown while ordering: no bill discount, tax
// from the configured rates.
func liveTotals(items []cart.Item, charges []billing.Charge, st model.Settings) billing.Totals {
	in := billing.Input{Items: items, AdditionalCharges: charges}
	base := billing.Calculate(in).TaxableBase()
	in.CGST, in.SGST = billing.TaxFromRates(base, st.CGSTRate, st.SGSTRate)
	return billing.Calculate(in)
}

func (s *orderService) AddItem(ctx context.Context, sess Session, tableID uuid.UUID, req dto.AddItemRequest) (*dto.CartResponse, error) {
	menuID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		return nil, ErrMenuItemNotFound
	}
	m, err := s.menu.FindByID(ctx, sess.RestaurantID, menuID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMenuItemNotFound
		}
		return nil, err
	}
	if !m.IsAvailable {
		return nil, ErrMenuItemHidden
	}

	o, err := s.load(ctx, sess, tableID, true)
	if err != nil {
		return nil, err
	}
	o.cart.AddItem(cart.MenuItem{ID: m.ID.String(), Name: m.Name, Price: m.Price})
	return s.save(ctx, sess, o, false)
}

// UpdateItem applies a quantity delta and line options. A delta on a line
// that is not in the cart changes nothing and returns the current cart, since
// a repeated tap may arrive after the line is gone; option edits on a missing
// line fail with ErrItemNotInCart.
func (s *orderService) UpdateItem(ctx context.Context, sess Session, tableID uuid.UUID, itemID string, req dto.UpdateItemRequest) (*dto.CartResponse, error) {
	edits := hasOptionEdits(req)
	o, err := s.load(ctx, sess, tableID, false)
	if err != nil {
		if errors.Is(err, ErrNoOpenBill) {
			if edits {
				return nil, ErrItemNotInCart
			}
			return s.GetCart(ctx, sess, tableID)
		}
		return nil, err
	}
	if o.cart.Quantity(itemID) == 0 {
		if edits {
			return nil, ErrItemNotInCart
		}
		return s.current(ctx, sess, o)
	}

	opts := cart.Options{
		Note:           req.Note,
		SpicePercent:   req.SpicePercent,
		IsJain:         req.IsJain,
		DiscountAmount: req.DiscountAmount,
	}
	if opts.SpicePercent == nil && req.SpiceLevel != nil {
		pct := cart.SpicePercentFromLevel(*req.SpiceLevel)
		opts.SpicePercent = &pct
	}
	if _, err := o.cart.SetOptions(itemID, opts); err != nil {
		return nil, err
	}

	reduced := false
	if req.Delta != nil && *req.Delta != 0 {
		o.cart.UpdateQuantity(itemID, *req.Delta)
		reduced = *req.Delta < 0
	}
	return s.save(ctx, sess, o, reduced)
}

// RemoveItem drops a line. Removing a line that is not there is a no-op.
func (s *orderService) RemoveItem(ctx context.Context, sess Session, tableID uuid.UUID, itemID string) (*dto.CartResponse, error) {
	o, err := s.load(ctx, sess, tableID, false)
	if err != nil {
		if errors.Is(err, ErrNoOpenBill) {
			return s.GetCart(ctx, sess, tableID)
		}
		return nil, err
	}
	if o.cart.Quantity(itemID) == 0 {
		return s.current(ctx, sess, o)
	}
	o.cart.RemoveItem(itemID)
	return s.save(ctx, sess, o, true)
}

// current answers with the loaded cart unchanged.
func (s *orderService) current(ctx context.Context, sess Session, o *tableOrder) (*dto.CartResponse, error) {
	tickets, err := s.tickets(ctx, o.bill.ID)
	if err != nil {
		return nil, err
	}
	return s.cartResponse(ctx, sess, o, tickets), nil
}

func hasOptionEdits(req dto.UpdateItemRequest) bool {
	return req.Note != nil || req.SpicePercent != nil || req.SpiceLevel != nil ||
		req.IsJain != nil || req.DiscountAmount != nil
}

// save persists the cart. When lines were reduced, unprinted KOTs are cut
// down in the same transaction so the kitchen copy matches the cart.
func (s *orderService) save(ctx context.Context, sess Session, o *tableOrder, reduced bool) (*dto.CartResponse, error) {
	items := o.cart.Items()
	if err := o.bill.SetCartItems(items); err != nil {
		return nil, err
	}
	charges, _ := o.bill.Charges()
	o.bill.ApplyTotals(billing.Calculate(billing.Input{
		Items:             items,
		AdditionalCharges: charges,
		DiscountAmount:    o.bill.DiscountAmount,
	}))

	var tickets []kot.Ticket
	if !o.fresh {
		var err error
		if tickets, err = s.tickets(ctx, o.bill.ID); err != nil {
			return nil, err
		}
	}
	var changed []uuid.UUID
	if reduced && len(tickets) > 0 {
		tickets, changed = kot.ApplyReduction(tickets, items)
	}

	err := runTx(ctx, s.bills.DB(), func(tx *gorm.DB) error {
		if o.fresh {
			if err := s.bills.Create(ctx, tx, o.bill); err != nil {
				return err
			}
		} else if err := s.bills.Update(ctx, tx, o.bill); err != nil {
			return err
		}
		for _, id := range changed {
			raw, err := ticketItemsJSON(tickets, id)
			if err != nil {
				return err
			}
			if err := s.bills.UpdateKOTItems(ctx, tx, id, raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	o.fresh = false

	resp := s.cartResponse(ctx, sess, o, tickets)
	if err := s.cache.SetJSON(ctx, mirrorKey(sess, draftKey(o.table.ID)), resp); err != nil {
		log.Warn().Err(err).Msg("cart: draft mirror failed")
	}
	return resp, nil
}

func ticketItemsJSON(tickets []kot.Ticket, id uuid.UUID) (datatypes.JSON, error) {
	for _, t := range tickets {
		if t.ID == id {
			raw, err := json.Marshal(t.Items)
			return datatypes.JSON(raw), err
		}
	}
	return nil, fmt.Errorf("ticket %s not loaded", id)
}
