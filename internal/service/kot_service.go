package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablepos/internal/dto"
	"tablepos/internal/infra"
	"tablepos/internal/kot"
	"tablepos/internal/model"
	"tablepos/internal/printing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// KOTPrintOutcome is the result of one KOT print run. Result carries the
// HTML page when the run went to a browser window.
type KOTPrintOutcome struct {
	Response dto.PrintResponse
	Result   printing.Result
}

func (s *orderService) CutKOT(ctx context.Context, sess Session, tableID uuid.UUID) (*kot.Ticket, error) {
	o, err := s.load(ctx, sess, tableID, false)
	if err != nil {
		if errors.Is(err, ErrNoOpenBill) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	prior, err := s.tickets(ctx, o.bill.ID)
	if err != nil {
		return nil, err
	}
	t, err := kot.Cut(prior, o.cart.Items(), s.now())
	if err != nil {
		return nil, err
	}
	row, err := model.KOTFromTicket(o.bill.ID, t)
	if err != nil {
		return nil, err
	}
	if err := s.bills.CreateKOT(ctx, nil, &row); err != nil {
		return nil, fmt.Errorf("store KOT: %w", err)
	}
	log.Info().
		Str("bill_id", o.bill.ID.String()).
		Int("number", t.Number).
		Int("lines", len(t.Items)).
		Msg("kot: cut")
	return &t, nil
}

func (s *orderService) ListKOTs(ctx context.Context, sess Session, tableID uuid.UUID) ([]kot.Ticket, error) {
	o, err := s.load(ctx, sess, tableID, false)
	if err != nil {
		if errors.Is(err, ErrNoOpenBill) {
			return []kot.Ticket{}, nil
		}
		return nil, err
	}
	return s.tickets(ctx, o.bill.ID)
}

// PrintKOTs sends every unprinted ticket of the table as one run. Tickets are
// marked printed only after the dispatcher accepted the run; a run whose
// tickets were all reduced to nothing is marked without printing.
func (s *orderService) PrintKOTs(ctx context.Context, sess Session, tableID uuid.UUID, req dto.PrintRequest, window printing.WindowOpener) (*KOTPrintOutcome, error) {
	o, err := s.load(ctx, sess, tableID, false)
	if err != nil {
		if errors.Is(err, ErrNoOpenBill) {
			return nil, ErrNothingToPrint
		}
		return nil, err
	}
	all, err := s.tickets(ctx, o.bill.ID)
	if err != nil {
		return nil, err
	}

	batch := kot.NewBatch(kot.Unprinted(all))
	if batch.Empty() {
		if req.Again {
			return s.reprint(ctx, sess, o, all, req, window)
		}
		return nil, ErrNothingToPrint
	}

	st := s.settings.Load(ctx, sess)
	var res printing.Result
	if batch.NeedsDispatch() {
		doc := printing.BuildKOTDocument(printing.KOTView{
			Restaurant: st.Name,
			TableName:  o.table.Name,
			Staff:      sess.Name,
			Tickets:    batch.Render,
		})
		res, err = s.printer.Print(ctx, sess, PrintJob{
			Kind:     PrintKindKOT,
			RefID:    o.bill.ID,
			KOTIDs:   batch.IDs,
			Document: doc,
			Settings: st,
			Request:  req,
			Window:   window,
		})
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	marked, err := s.bills.MarkKOTsPrinted(ctx, batch.IDs, now)
	if err != nil {
		return nil, fmt.Errorf("mark KOTs printed: %w", err)
	}
	all, flipped := kot.MarkPrinted(all, batch.IDs, now)
	if int64(flipped) != marked {
		log.Warn().
			Str("bill_id", o.bill.ID.String()).
			Int("expected", flipped).
			Int64("marked", marked).
			Msg("kot: printed concurrently by another device")
	}
	log.Info().
		Str("bill_id", o.bill.ID.String()).
		Str("target", string(res.Target)).
		Int64("marked", marked).
		Msg("kot: printed")

	s.publish(ctx, sess, o, batch.Render, now)

	var ids []string
	for _, t := range all {
		if t.PrintedAt != nil && t.PrintedAt.Equal(now) {
			ids = append(ids, t.ID.String())
		}
	}
	return &KOTPrintOutcome{
		Response: dto.PrintResponse{Target: string(res.Target), Bytes: res.Bytes, Printed: ids, PrintedAt: now},
		Result:   res,
	}, nil
}

// reprint re-sends the most recent printed run without touching flags.
func (s *orderService) reprint(ctx context.Context, sess Session, o *tableOrder, all []kot.Ticket, req dto.PrintRequest, window printing.WindowOpener) (*KOTPrintOutcome, error) {
	var last time.Time
	for _, t := range all {
		if t.Printed && t.PrintedAt != nil && t.PrintedAt.After(last) {
			last = *t.PrintedAt
		}
	}
	var run []kot.Ticket
	for _, t := range all {
		if t.Printed && t.PrintedAt != nil && t.PrintedAt.Equal(last) {
			run = append(run, t)
		}
	}
	render := kot.NewBatch(run).Render
	if len(render) == 0 {
		return nil, ErrNothingToPrint
	}

	st := s.settings.Load(ctx, sess)
	doc := printing.BuildKOTDocument(printing.KOTView{
		Restaurant: st.Name,
		TableName:  o.table.Name,
		Staff:      sess.Name,
		Tickets:    render,
	})
	res, err := s.printer.Print(ctx, sess, PrintJob{
		Kind:     PrintKindKOT,
		RefID:    o.bill.ID,
		Document: doc,
		Settings: st,
		Request:  req,
		Window:   window,
	})
	if err != nil {
		return nil, err
	}
	return &KOTPrintOutcome{
		Response: dto.PrintResponse{Target: string(res.Target), Bytes: res.Bytes, PrintedAt: last},
		Result:   res,
	}, nil
}

// publish forwards printed tickets to the kitchen display feed. Delivery
// failures are logged; the print already happened.
func (s *orderService) publish(ctx context.Context, sess Session, o *tableOrder, tickets []kot.Ticket, at time.Time) {
	if s.kitchen == nil {
		return
	}
	for _, t := range tickets {
		ev := infra.KOTPrintedEvent{
			RestaurantID: sess.RestaurantID.String(),
			BillID:       o.bill.ID.String(),
			TableName:    o.table.Name,
			KOTID:        t.ID.String(),
			Number:       t.Number,
			PrintedAt:    at,
		}
		for _, it := range t.Items {
			ev.Items = append(ev.Items, infra.KOTPrintedItem{
				Name:         it.Name,
				Quantity:     it.Quantity,
				Note:         it.Note,
				SpicePercent: it.SpicePercent,
				IsJain:       it.IsJain,
			})
		}
		if err := s.kitchen.PublishKOTPrinted(ctx, ev); err != nil {
			log.Warn().Err(err).Str("kot_id", ev.KOTID).Msg("kot: kitchen feed publish failed")
		}
	}
}
