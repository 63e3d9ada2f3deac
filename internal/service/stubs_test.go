package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"tablepos/internal/dto"
	"tablepos/internal/infra"
	"tablepos/internal/model"
	"tablepos/internal/printing"
	"tablepos/internal/repository"
	"tablepos/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stretchr/testify/require"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubBillRepo is an in-memory BillRepository. Stored values are copied in
// and out so callers cannot mutate them behind the repo's back.
type stubBillRepo struct {
	bills map[uuid.UUID]model.Bill
	kots  map[uuid.UUID]model.KOT
	err   error // returned by every read when set
}

func newStubBillRepo() *stubBillRepo {
	return &stubBillRepo{bills: map[uuid.UUID]model.Bill{}, kots: map[uuid.UUID]model.KOT{}}
}

func (r *stubBillRepo) Create(_ context.Context, _ *gorm.DB, b *model.Bill) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	c := *b
	c.KOTs = nil
	r.bills[b.ID] = c
	return nil
}

func (r *stubBillRepo) Update(_ context.Context, _ *gorm.DB, b *model.Bill) error {
	if _, ok := r.bills[b.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if b.BillNumber != nil {
		for id, other := range r.bills {
			if id != b.ID && other.BillNumber != nil && *other.BillNumber == *b.BillNumber {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	c := *b
	c.KOTs = nil
	r.bills[b.ID] = c
	return nil
}

func (r *stubBillRepo) FindByID(_ context.Context, restaurantID, id uuid.UUID) (*model.Bill, error) {
	if r.err != nil {
		return nil, r.err
	}
	b, ok := r.bills[id]
	if !ok || b.RestaurantID != restaurantID {
		return nil, gorm.ErrRecordNotFound
	}
	b.KOTs, _ = r.ListKOTs(context.Background(), id)
	return &b, nil
}

func (r *stubBillRepo) FindOpenByTable(_ context.Context, restaurantID, tableID uuid.UUID) (*model.Bill, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, b := range r.bills {
		if b.RestaurantID == restaurantID && b.TableID == tableID && b.Status == model.BillOpen {
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBillRepo) ListOpen(_ context.Context, restaurantID uuid.UUID) ([]model.Bill, error) {
	var out []model.Bill
	for _, b := range r.bills {
		if b.RestaurantID == restaurantID && b.Status == model.BillOpen {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stubBillRepo) List(_ context.Context, restaurantID uuid.UUID, f dto.BillFilter) ([]model.Bill, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	var all []model.Bill
	for _, b := range r.bills {
		if b.RestaurantID != restaurantID {
			continue
		}
		if f.Status != "" && f.Status != "all" && b.Status != f.Status {
			continue
		}
		if f.Search != "" && (b.BillNumber == nil || !strings.HasPrefix(*b.BillNumber, f.Search)) {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	total := int64(len(all))
	if f.Limit > 0 {
		start := (f.Page - 1) * f.Limit
		if start > len(all) {
			start = len(all)
		}
		end := start + f.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (r *stubBillRepo) ListKOTs(_ context.Context, billID uuid.UUID) ([]model.KOT, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.KOT
	for _, k := range r.kots {
		if k.BillID == billID {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *stubBillRepo) CreateKOT(_ context.Context, _ *gorm.DB, k *model.KOT) error {
	r.kots[k.ID] = *k
	return nil
}

func (r *stubBillRepo) UpdateKOTItems(_ context.Context, _ *gorm.DB, id uuid.UUID, items datatypes.JSON) error {
	k, ok := r.kots[id]
	if !ok || k.Printed {
		return nil
	}
	k.Items = items
	r.kots[id] = k
	return nil
}

func (r *stubBillRepo) MarkKOTsPrinted(_ context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	var n int64
	for _, id := range ids {
		k, ok := r.kots[id]
		if !ok || k.Printed {
			continue
		}
		k.Printed = true
		ts := at
		k.PrintedAt = &ts
		r.kots[id] = k
		n++
	}
	return n, nil
}

func (r *stubBillRepo) DB() *gorm.DB { return nil }

// onlySaved returns the single saved bill.
func (r *stubBillRepo) onlySaved(t *testing.T) model.Bill {
	t.Helper()
	var out []model.Bill
	for _, b := range r.bills {
		if b.Status == model.BillSaved {
			out = append(out, b)
		}
	}
	require.Len(t, out, 1)
	return out[0]
}

var _ repository.BillRepository = (*stubBillRepo)(nil)

type stubTableRepo struct {
	tables map[uuid.UUID]*model.Table
	err    error
}

func newStubTableRepo() *stubTableRepo { return &stubTableRepo{tables: map[uuid.UUID]*model.Table{}} }

func (r *stubTableRepo) Create(_ context.Context, t *model.Table) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.tables[t.ID] = t
	return nil
}

func (r *stubTableRepo) FindByID(_ context.Context, restaurantID, id uuid.UUID) (*model.Table, error) {
	if r.err != nil {
		return nil, r.err
	}
	t, ok := r.tables[id]
	if !ok || t.RestaurantID != restaurantID || !t.Active {
		return nil, gorm.ErrRecordNotFound
	}
	c := *t
	return &c, nil
}

func (r *stubTableRepo) List(_ context.Context, restaurantID uuid.UUID) ([]model.Table, error) {
	var out []model.Table
	for _, t := range r.tables {
		if t.RestaurantID == restaurantID && t.Active {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubTableRepo) Update(_ context.Context, t *model.Table) error {
	c := *t
	r.tables[t.ID] = &c
	return nil
}

func (r *stubTableRepo) SoftDelete(_ context.Context, restaurantID, id uuid.UUID) error {
	t, ok := r.tables[id]
	if !ok || t.RestaurantID != restaurantID {
		return gorm.ErrRecordNotFound
	}
	t.Active = false
	return nil
}

var _ repository.TableRepository = (*stubTableRepo)(nil)

type stubMenuRepo struct {
	items map[uuid.UUID]*model.MenuItem
	err   error
}

func newStubMenuRepo() *stubMenuRepo { return &stubMenuRepo{items: map[uuid.UUID]*model.MenuItem{}} }

func (r *stubMenuRepo) Create(_ context.Context, m *model.MenuItem) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	c := *m
	r.items[m.ID] = &c
	return nil
}

func (r *stubMenuRepo) FindByID(_ context.Context, restaurantID, id uuid.UUID) (*model.MenuItem, error) {
	m, ok := r.items[id]
	if !ok || m.RestaurantID != restaurantID || !m.Active {
		return nil, gorm.ErrRecordNotFound
	}
	c := *m
	return &c, nil
}

func (r *stubMenuRepo) List(_ context.Context, restaurantID uuid.UUID, f dto.MenuFilter) ([]model.MenuItem, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	var out []model.MenuItem
	for _, m := range r.items {
		if m.RestaurantID != restaurantID || !m.Active {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Available != "" && (f.Available == "true") != m.IsAvailable {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *stubMenuRepo) Update(_ context.Context, m *model.MenuItem) error {
	c := *m
	r.items[m.ID] = &c
	return nil
}

func (r *stubMenuRepo) SoftDelete(_ context.Context, restaurantID, id uuid.UUID) error {
	m, ok := r.items[id]
	if !ok || m.RestaurantID != restaurantID {
		return gorm.ErrRecordNotFound
	}
	m.Active = false
	return nil
}

func (r *stubMenuRepo) RenameCategory(_ context.Context, restaurantID uuid.UUID, from, to string) error {
	for _, m := range r.items {
		if m.RestaurantID == restaurantID && m.Category == from {
			m.Category = to
		}
	}
	return nil
}

var _ repository.MenuRepository = (*stubMenuRepo)(nil)

type stubCategoryRepo struct {
	cats map[uuid.UUID]*model.Category
}

func newStubCategoryRepo() *stubCategoryRepo {
	return &stubCategoryRepo{cats: map[uuid.UUID]*model.Category{}}
}

func (r *stubCategoryRepo) Create(_ context.Context, c *model.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.cats[c.ID] = &cp
	return nil
}

func (r *stubCategoryRepo) List(_ context.Context, restaurantID uuid.UUID) ([]model.Category, error) {
	var out []model.Category
	for _, c := range r.cats {
		if c.RestaurantID == restaurantID && c.Active {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubCategoryRepo) FindByID(_ context.Context, restaurantID, id uuid.UUID) (*model.Category, error) {
	c, ok := r.cats[id]
	if !ok || c.RestaurantID != restaurantID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCategoryRepo) FindByName(_ context.Context, restaurantID uuid.UUID, name string) (*model.Category, error) {
	for _, c := range r.cats {
		if c.RestaurantID == restaurantID && strings.EqualFold(c.Name, name) && c.Active {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCategoryRepo) Update(_ context.Context, c *model.Category) error {
	cp := *c
	r.cats[c.ID] = &cp
	return nil
}

func (r *stubCategoryRepo) Deactivate(_ context.Context, restaurantID, id uuid.UUID) error {
	c, ok := r.cats[id]
	if !ok || c.RestaurantID != restaurantID {
		return gorm.ErrRecordNotFound
	}
	c.Active = false
	return nil
}

var _ repository.CategoryRepository = (*stubCategoryRepo)(nil)

type stubSettingsRepo struct {
	rows map[uuid.UUID]model.Settings
	err  error
}

func newStubSettingsRepo() *stubSettingsRepo {
	return &stubSettingsRepo{rows: map[uuid.UUID]model.Settings{}}
}

func (r *stubSettingsRepo) Get(_ context.Context, restaurantID uuid.UUID) (*model.Settings, error) {
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.rows[restaurantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *stubSettingsRepo) Upsert(_ context.Context, s *model.Settings) error {
	r.rows[s.RestaurantID] = *s
	return nil
}

var _ repository.SettingsRepository = (*stubSettingsRepo)(nil)

type stubStaffRepo struct {
	staff map[uuid.UUID]*model.Staff
}

func newStubStaffRepo() *stubStaffRepo { return &stubStaffRepo{staff: map[uuid.UUID]*model.Staff{}} }

func (r *stubStaffRepo) Create(_ context.Context, s *model.Staff) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.staff[s.ID] = &cp
	return nil
}

func (r *stubStaffRepo) FindByUsername(_ context.Context, username string) (*model.Staff, error) {
	for _, s := range r.staff {
		if s.Username == username && s.Active {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubStaffRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Staff, error) {
	s, ok := r.staff[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubStaffRepo) List(_ context.Context, restaurantID uuid.UUID, includeInactive bool) ([]model.Staff, error) {
	var out []model.Staff
	for _, s := range r.staff {
		if s.RestaurantID == restaurantID && (includeInactive || s.Active) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *stubStaffRepo) Update(_ context.Context, s *model.Staff) error {
	cp := *s
	r.staff[s.ID] = &cp
	return nil
}

func (r *stubStaffRepo) SoftDelete(_ context.Context, restaurantID, id uuid.UUID) error {
	s, ok := r.staff[id]
	if !ok || s.RestaurantID != restaurantID {
		return gorm.ErrRecordNotFound
	}
	s.Active = false
	return nil
}

var _ repository.StaffRepository = (*stubStaffRepo)(nil)

type stubPrintJobRepo struct {
	jobs []model.PrintJob
}

func (r *stubPrintJobRepo) Create(_ context.Context, j *model.PrintJob) error {
	r.jobs = append(r.jobs, *j)
	return nil
}

func (r *stubPrintJobRepo) ListByRef(_ context.Context, _, refID uuid.UUID) ([]model.PrintJob, error) {
	var out []model.PrintJob
	for _, j := range r.jobs {
		if j.RefID == refID {
			out = append(out, j)
		}
	}
	return out, nil
}

var _ repository.PrintJobRepository = (*stubPrintJobRepo)(nil)

type stubCashRepo struct {
	entries map[uuid.UUID]model.CashEntry
	seq     int
	created map[uuid.UUID]int
}

func newStubCashRepo() *stubCashRepo {
	return &stubCashRepo{entries: map[uuid.UUID]model.CashEntry{}, created: map[uuid.UUID]int{}}
}

func (r *stubCashRepo) Create(_ context.Context, e *model.CashEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.seq++
	r.created[e.ID] = r.seq
	r.entries[e.ID] = *e
	return nil
}

func (r *stubCashRepo) FindByID(_ context.Context, restaurantID, id uuid.UUID) (*model.CashEntry, error) {
	e, ok := r.entries[id]
	if !ok || e.RestaurantID != restaurantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *stubCashRepo) List(_ context.Context, restaurantID uuid.UUID, f dto.CashEntryFilter) ([]model.CashEntry, int64, error) {
	var all []model.CashEntry
	for _, e := range r.entries {
		day := e.EntryDate.Format("2006-01-02")
		if e.RestaurantID != restaurantID || (f.Kind != "" && e.Kind != f.Kind) ||
			(f.From != "" && day < f.From) || (f.To != "" && day > f.To) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].EntryDate.Equal(all[j].EntryDate) {
			return all[i].EntryDate.After(all[j].EntryDate)
		}
		return r.created[all[i].ID] > r.created[all[j].ID]
	})
	total := int64(len(all))
	if f.Limit > 0 {
		start := (f.Page - 1) * f.Limit
		if start > len(all) {
			start = len(all)
		}
		end := start + f.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (r *stubCashRepo) Update(_ context.Context, e *model.CashEntry) error {
	r.entries[e.ID] = *e
	return nil
}

func (r *stubCashRepo) Delete(_ context.Context, restaurantID, id uuid.UUID) error {
	e, ok := r.entries[id]
	if !ok || e.RestaurantID != restaurantID {
		return gorm.ErrRecordNotFound
	}
	delete(r.entries, id)
	return nil
}

var _ repository.CashEntryRepository = (*stubCashRepo)(nil)

// memCache is an in-memory Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// netPrinter records every job sent to the network target.
type netPrinter struct {
	jobs [][]byte
	err  error
}

func (p *netPrinter) Print(_ context.Context, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, data)
	return nil
}

type stubKitchen struct {
	events []infra.KOTPrintedEvent
}

func (k *stubKitchen) PublishKOTPrinted(_ context.Context, ev infra.KOTPrintedEvent) error {
	k.events = append(k.events, ev)
	return nil
}

type stubJobs struct {
	archived []worker.BillArchivePayload
}

func (q *stubJobs) EnqueueBillArchive(_ context.Context, p worker.BillArchivePayload) error {
	q.archived = append(q.archived, p)
	return nil
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	sess     Session
	table    *model.Table
	paneer   *model.MenuItem
	roti     *model.MenuItem
	bills    *stubBillRepo
	tables   *stubTableRepo
	menu     *stubMenuRepo
	settings *stubSettingsRepo
	jobsRepo *stubPrintJobRepo
	cash     *stubCashRepo
	cache    *memCache
	printer  *netPrinter
	kitchen  *stubKitchen
	queue    *stubJobs
	clock    time.Time

	orders  OrderService
	billing BillService
}

func newFixture() *fixture {
	f := &fixture{
		sess: Session{
			RestaurantID: uuid.New(),
			UserID:       uuid.New(),
			Username:     "ravi",
			Name:         "Ravi",
			Role:         "staff",
		},
		bills:    newStubBillRepo(),
		tables:   newStubTableRepo(),
		menu:     newStubMenuRepo(),
		settings: newStubSettingsRepo(),
		jobsRepo: &stubPrintJobRepo{},
		cash:     newStubCashRepo(),
		cache:    newMemCache(),
		printer:  &netPrinter{},
		kitchen:  &stubKitchen{},
		queue:    &stubJobs{},
		clock:    time.Date(2026, 3, 14, 19, 30, 5, 123_000_000, time.UTC),
	}
	f.table = &model.Table{ID: uuid.New(), RestaurantID: f.sess.RestaurantID, Name: "T1", Capacity: 4, Active: true}
	_ = f.tables.Create(context.Background(), f.table)
	f.paneer = f.addMenu("Paneer", 220)
	f.roti = f.addMenu("Roti", 30)

	now := func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	settingsSvc := NewSettingsService(f.settings, f.cache)
	printer := NewPrinter(PrinterConfig{
		Dispatcher: printing.NewDispatcher(printing.DispatcherConfig{Printer: f.printer, PrinterTextMode: true}),
		Jobs:       f.jobsRepo,
		AutoDelay:  time.Millisecond,
	})
	f.orders = NewOrderService(OrderDeps{
		Bills:    f.bills,
		Tables:   f.tables,
		Menu:     f.menu,
		Settings: settingsSvc,
		Printer:  printer,
		Kitchen:  f.kitchen,
		Cache:    f.cache,
		Now:      now,
	})
	f.billing = NewBillService(BillDeps{
		Bills:    f.bills,
		Tables:   f.tables,
		Settings: settingsSvc,
		Printer:  printer,
		Jobs:     f.queue,
		Cache:    f.cache,
		Now:      now,
	})
	return f
}

func (f *fixture) addMenu(name string, price int64) *model.MenuItem {
	m := &model.MenuItem{
		ID:           uuid.New(),
		RestaurantID: f.sess.RestaurantID,
		Name:         name,
		Price:        decimal.NewFromInt(price),
		Category:     "Main",
		IsAvailable:  true,
		Active:       true,
	}
	_ = f.menu.Create(context.Background(), m)
	return m
}

func (f *fixture) add(m *model.MenuItem, times int) *dto.CartResponse {
	var resp *dto.CartResponse
	for i := 0; i < times; i++ {
		r, err := f.orders.AddItem(context.Background(), f.sess, f.table.ID, dto.AddItemRequest{MenuItemID: m.ID.String()})
		if err != nil {
			panic(err)
		}
		resp = r
	}
	return resp
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }
