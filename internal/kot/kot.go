// Package kot cuts Kitchen Order Tickets from a table's cart and tracks which
// of them have been handed to the kitchen printer.
//
// A ticket moves one way only: unprinted → printed. Tickets are never deleted;
// lines removed from the cart after a cut stay on the ticket with quantity 0
// and are skipped when the ticket is rendered.
package kot

import (
	"errors"
	"sort"
	"time"

	"tablepos/internal/cart"

	"github.com/google/uuid"
)

// ErrNothingToCut is returned by Cut when no cart line has quantity beyond
// what earlier tickets already sent.
var ErrNothingToCut = errors.New("no new items since the last KOT")

// Ticket is one batch of items sent to the kitchen.
type Ticket struct {
	ID        uuid.UUID   `json:"kotId"`
	Number    int         `json:"number"`
	Items     []cart.Item `json:"items"`
	CreatedAt time.Time   `json:"createdAt"`
	Printed   bool        `json:"printed"`
	PrintedAt *time.Time  `json:"printedAt,omitempty"`
}

// sentQuantities sums item quantities across tickets, keyed by menu item id.
func sentQuantities(tickets []Ticket) map[string]int {
	sent := make(map[string]int)
	for _, t := range tickets {
		for _, it := range t.Items {
			if it.Quantity > 0 {
				sent[it.ID] += it.Quantity
			}
		}
	}
	return sent
}

// Cut produces a new unprinted ticket holding only what was added since the
// prior tickets of this table session: for every cart line, cart quantity
// minus the quantity already on earlier tickets. Lines carry their current
// note/spice/jain flags.
func Cut(prior []Ticket, current []cart.Item, now time.Time) (Ticket, error) {
	sent := sentQuantities(prior)

	var items []cart.Item
	for _, it := range current {
		delta := it.Quantity - sent[it.ID]
		if delta <= 0 {
			continue
		}
		line := it
		line.Quantity = delta
		items = append(items, line)
	}
	if len(items) == 0 {
		return Ticket{}, ErrNothingToCut
	}

	number := 0
	for _, t := range prior {
		if t.Number > number {
			number = t.Number
		}
	}
	return Ticket{
		ID:        uuid.New(),
		Number:    number + 1,
		Items:     items,
		CreatedAt: now,
	}, nil
}

// ApplyReduction layers cart reductions made after a cut onto unprinted
// tickets, newest first, so the kitchen copy matches the cart. Printed tickets
// are not touched. It returns the updated tickets and the ids that changed.
func ApplyReduction(tickets []Ticket, current []cart.Item) ([]Ticket, []uuid.UUID) {
	out := clone(tickets)

	inCart := make(map[string]int, len(current))
	for _, it := range current {
		inCart[it.ID] = it.Quantity
	}
	excess := make(map[string]int)
	for id, q := range sentQuantities(out) {
		if q > inCart[id] {
			excess[id] = q - inCart[id]
		}
	}
	if len(excess) == 0 {
		return out, nil
	}

	order := byCreation(out)
	changed := make(map[uuid.UUID]bool)
	for k := len(order) - 1; k >= 0; k-- {
		t := &out[order[k]]
		if t.Printed {
			continue
		}
		for i := range t.Items {
			it := &t.Items[i]
			e := excess[it.ID]
			if e == 0 || it.Quantity <= 0 {
				continue
			}
			take := e
			if take > it.Quantity {
				take = it.Quantity
			}
			it.Quantity -= take
			excess[it.ID] = e - take
			changed[t.ID] = true
		}
	}

	ids := make([]uuid.UUID, 0, len(changed))
	for _, idx := range order {
		if changed[out[idx].ID] {
			ids = append(ids, out[idx].ID)
		}
	}
	return out, ids
}

// Unprinted returns tickets with Printed == false, oldest first.
func Unprinted(all []Ticket) []Ticket {
	var out []Ticket
	for _, idx := range byCreation(all) {
		if !all[idx].Printed {
			out = append(out, all[idx])
		}
	}
	return out
}

// MarkPrinted flags the given ids as printed. Already printed tickets keep
// their original PrintedAt; unknown ids are ignored. It returns the updated
// tickets and the number that changed state.
func MarkPrinted(all []Ticket, ids []uuid.UUID, now time.Time) ([]Ticket, int) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := clone(all)
	flipped := 0
	for i := range out {
		if !want[out[i].ID] || out[i].Printed {
			continue
		}
		out[i].Printed = true
		ts := now
		out[i].PrintedAt = &ts
		flipped++
	}
	return out, flipped
}

// VisibleItems returns the ticket lines with quantity > 0.
func VisibleItems(t Ticket) []cart.Item {
	var out []cart.Item
	for _, it := range t.Items {
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Batch is one print run over the unprinted tickets of a table.
type Batch struct {
	// Render holds the tickets that still have visible lines, oldest first,
	// each restricted to its visible lines.
	Render []Ticket
	// IDs lists every ticket in the run, including fully emptied ones; all of
	// them are marked printed once the run is dispatched.
	IDs []uuid.UUID
}

// NewBatch builds the print run for the given tickets.
func NewBatch(unprinted []Ticket) Batch {
	var b Batch
	for _, idx := range byCreation(unprinted) {
		t := unprinted[idx]
		b.IDs = append(b.IDs, t.ID)
		visible := VisibleItems(t)
		if len(visible) == 0 {
			continue
		}
		t.Items = visible
		b.Render = append(b.Render, t)
	}
	return b
}

// Empty reports whether there is nothing to mark.
func (b Batch) Empty() bool { return len(b.IDs) == 0 }

// NeedsDispatch reports whether at least one ticket has lines to print.
func (b Batch) NeedsDispatch() bool { return len(b.Render) > 0 }

// byCreation returns indexes into tickets ordered by CreatedAt, then Number.
func byCreation(tickets []Ticket) []int {
	idx := make([]int, len(tickets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := tickets[idx[a]], tickets[idx[b]]
		if !ta.CreatedAt.Equal(tb.CreatedAt) {
			return ta.CreatedAt.Before(tb.CreatedAt)
		}
		return ta.Number < tb.Number
	})
	return idx
}

func clone(tickets []Ticket) []Ticket {
	out := make([]Ticket, len(tickets))
	for i, t := range tickets {
		items := make([]cart.Item, len(t.Items))
		copy(items, t.Items)
		t.Items = items
		out[i] = t
	}
	return out
}
