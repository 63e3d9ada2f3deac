package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tablepos/internal/cart"
	"tablepos/internal/dto"
	"tablepos/internal/kot"
	"tablepos/internal/middleware"
	"tablepos/internal/printing"
	"tablepos/internal/service"
	"tablepos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Service fakes ─────────────────────────────────────────────────────────────

type fakeOrders struct {
	err     error
	sess    service.Session
	window  printing.WindowOpener
	outcome *service.KOTPrintOutcome
	req     dto.PrintRequest
}

func (f *fakeOrders) GetCart(_ context.Context, sess service.Session, tableID uuid.UUID) (*dto.CartResponse, error) {
	f.sess = sess
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CartResponse{TableID: tableID.String(), TableName: "T1", Items: []cart.Item{}}, nil
}

func (f *fakeOrders) AddItem(_ context.Context, sess service.Session, tableID uuid.UUID, _ dto.AddItemRequest) (*dto.CartResponse, error) {
	return f.GetCart(context.Background(), sess, tableID)
}

func (f *fakeOrders) UpdateItem(_ context.Context, sess service.Session, tableID uuid.UUID, _ string, _ dto.UpdateItemRequest) (*dto.CartResponse, error) {
	return f.GetCart(context.Background(), sess, tableID)
}

func (f *fakeOrders) RemoveItem(_ context.Context, sess service.Session, tableID uuid.UUID, _ string) (*dto.CartResponse, error) {
	return f.GetCart(context.Background(), sess, tableID)
}

func (f *fakeOrders) CutKOT(context.Context, service.Session, uuid.UUID) (*kot.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &kot.Ticket{ID: uuid.New(), Number: 1}, nil
}

func (f *fakeOrders) ListKOTs(context.Context, service.Session, uuid.UUID) ([]kot.Ticket, error) {
	return []kot.Ticket{}, f.err
}

func (f *fakeOrders) PrintKOTs(_ context.Context, sess service.Session, _ uuid.UUID, req dto.PrintRequest, window printing.WindowOpener) (*service.KOTPrintOutcome, error) {
	f.sess, f.req, f.window = sess, req, window
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type fakeBills struct {
	err    error
	filter dto.BillFilter
}

func (f *fakeBills) Preview(context.Context, service.Session, uuid.UUID, dto.BillRequest) (*dto.BillResponse, error) {
	return &dto.BillResponse{Status: "open"}, f.err
}

func (f *fakeBills) Save(context.Context, service.Session, uuid.UUID, dto.BillRequest) (*dto.BillResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.BillResponse{Status: "saved"}, nil
}

func (f *fakeBills) List(_ context.Context, _ service.Session, filter dto.BillFilter) (*dto.BillListResponse, error) {
	f.filter = filter
	return &dto.BillListResponse{Bills: []dto.BillResponse{}}, f.err
}

func (f *fakeBills) Get(context.Context, service.Session, uuid.UUID) (*dto.BillResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.BillResponse{}, nil
}

func (f *fakeBills) Reopen(context.Context, service.Session, uuid.UUID) (*dto.BillResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.BillResponse{Status: "open"}, nil
}

func (f *fakeBills) Print(context.Context, service.Session, uuid.UUID, dto.PrintRequest, printing.WindowOpener) (*dto.PrintResponse, printing.Result, error) {
	if f.err != nil {
		return nil, printing.Result{}, f.err
	}
	return &dto.PrintResponse{Target: string(printing.TargetNetwork), Bytes: 10}, printing.Result{Target: printing.TargetNetwork, Bytes: 10}, nil
}

func (f *fakeBills) Receipt(context.Context, uuid.UUID, uuid.UUID) (*worker.Receipt, error) {
	return nil, f.err
}

type fakeReports struct {
	data   []byte
	filter *dto.SummaryFilter
}

func (f fakeReports) BillsXLSX(context.Context, service.Session, dto.BillFilter) ([]byte, error) {
	return f.data, nil
}

func (f fakeReports) Summary(_ context.Context, _ service.Session, filter dto.SummaryFilter) (*dto.SummaryResponse, error) {
	*f.filter = filter
	return &dto.SummaryResponse{From: filter.From, To: filter.To, Bills: 3}, nil
}

type fakeCash struct {
	err     error
	created dto.CashEntryRequest
	filter  dto.CashEntryFilter
}

func (f *fakeCash) Create(_ context.Context, sess service.Session, req dto.CashEntryRequest) (*dto.CashEntryResponse, error) {
	f.created = req
	return &dto.CashEntryResponse{ID: uuid.NewString(), Kind: req.Kind, StaffName: sess.Name}, f.err
}

func (f *fakeCash) List(_ context.Context, _ service.Session, filter dto.CashEntryFilter) (*dto.CashEntryListResponse, error) {
	f.filter = filter
	return &dto.CashEntryListResponse{Page: filter.Page}, f.err
}

func (f *fakeCash) Update(context.Context, service.Session, uuid.UUID, dto.UpdateCashEntryRequest) (*dto.CashEntryResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CashEntryResponse{}, nil
}

func (f *fakeCash) Delete(context.Context, service.Session, uuid.UUID) error { return f.err }

// ── Harness ───────────────────────────────────────────────────────────────────

var (
	restaurantID = uuid.New()
	tableID      = uuid.New()
)

func testRouter(orders service.OrderService, bills service.BillService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{
			UserID:       uuid.NewString(),
			Username:     "asha",
			Name:         "Asha",
			Role:         "staff",
			RestaurantID: restaurantID.String(),
			Type:         "access",
		})
		c.Next()
	})
	oh := NewOrderHandler(orders)
	bh := NewBillHandler(bills, fakeReports{data: []byte("PK"), filter: &lastSummary})
	r.GET("/tables/:id/cart", oh.Cart)
	r.POST("/tables/:id/cart/items", oh.AddItem)
	r.PATCH("/tables/:id/cart/items/:itemId", oh.UpdateItem)
	r.POST("/tables/:id/kots", oh.CutKOT)
	r.POST("/tables/:id/kots/print", oh.PrintKOTs)
	r.POST("/tables/:id/bill", bh.Save)
	r.GET("/bills", bh.List)
	r.POST("/bills/:id/reopen", bh.Reopen)
	r.POST("/bills/:id/print", bh.Print)
	r.GET("/reports/bills.xlsx", bh.Report)
	r.GET("/reports/summary", bh.Summary)
	return r
}

var lastSummary dto.SummaryFilter

func cashRouter(svc service.CashService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{Name: "Meera", Role: "manager", RestaurantID: restaurantID.String()})
		c.Next()
	})
	h := NewCashHandler(svc)
	r.POST("/cash", h.Create)
	r.GET("/cash", h.List)
	r.PUT("/cash/:id", h.Update)
	r.DELETE("/cash/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCart_SessionFromClaims(t *testing.T) {
	orders := &fakeOrders{}
	r := testRouter(orders, &fakeBills{})

	w := do(r, http.MethodGet, "/tables/"+tableID.String()+"/cart", nil, middleware.PrintBridgeHeader, "true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, restaurantID, orders.sess.RestaurantID)
	assert.Equal(t, "staff", orders.sess.Role)
	assert.True(t, orders.sess.Bridge)

	do(r, http.MethodGet, "/tables/"+tableID.String()+"/cart", nil)
	assert.False(t, orders.sess.Bridge)
}

func TestCart_InvalidTableID(t *testing.T) {
	r := testRouter(&fakeOrders{}, &fakeBills{})
	w := do(r, http.MethodGet, "/tables/not-a-uuid/cart", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddItem_Validation(t *testing.T) {
	r := testRouter(&fakeOrders{}, &fakeBills{})

	w := do(r, http.MethodPost, "/tables/"+tableID.String()+"/cart/items", map[string]string{"menuItemId": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := detail(t, w)
	assert.Equal(t, "validation failed", body["detail"])
	assert.Contains(t, body["fields"], "MenuItemID")

	w = do(r, http.MethodPatch, "/tables/"+tableID.String()+"/cart/items/abc", map[string]int{"spiceLevel": 9})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrTableNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", service.ErrBillNotFound), http.StatusNotFound},
		{service.ErrTableOccupied, http.StatusConflict},
		{kot.ErrNothingToCut, http.StatusConflict},
		{service.ErrCashEntryNotFound, http.StatusNotFound},
		{service.ErrInvalidDateRange, http.StatusBadRequest},
		{service.ErrEmptyCart, http.StatusBadRequest},
		{cart.ErrDiscountExceedsLine, http.StatusBadRequest},
		{service.ErrDiscountTooLarge, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := testRouter(&fakeOrders{err: tc.err}, &fakeBills{err: tc.err})
			w := do(r, http.MethodPost, "/tables/"+tableID.String()+"/kots", nil)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, detail(t, w)["detail"], tc.err.Error())
		})
	}
}

func TestErrorMapping_PrintFailuresAreRetryable(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("%w: bluetooth off", printing.ErrDispatch),
		printing.ErrNoTarget,
	} {
		t.Run(err.Error(), func(t *testing.T) {
			r := testRouter(&fakeOrders{err: err}, &fakeBills{})

			w := do(r, http.MethodPost, "/tables/"+tableID.String()+"/kots/print", nil)
			assert.Equal(t, http.StatusBadGateway, w.Code)
			assert.Equal(t, true, detail(t, w)["retryable"])
		})
	}
}

func TestErrorMapping_InternalDoesNotLeak(t *testing.T) {
	r := testRouter(&fakeOrders{err: fmt.Errorf("pq: connection refused")}, &fakeBills{})

	w := do(r, http.MethodGet, "/tables/"+tableID.String()+"/cart", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestPrintKOTs_JSONAndWindowPage(t *testing.T) {
	orders := &fakeOrders{outcome: &service.KOTPrintOutcome{
		Response: dto.PrintResponse{Target: string(printing.TargetBridge), Printed: []string{"k1"}},
		Result:   printing.Result{Target: printing.TargetBridge},
	}}
	r := testRouter(orders, &fakeBills{})

	w := do(r, http.MethodPost, "/tables/"+tableID.String()+"/kots/print", map[string]bool{"again": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, orders.req.Again)
	assert.Nil(t, orders.window)
	assert.Equal(t, "bridge", detail(t, w)["target"])

	orders.outcome = &service.KOTPrintOutcome{
		Response: dto.PrintResponse{Target: string(printing.TargetWindow)},
		Result:   printing.Result{Target: printing.TargetWindow, Page: []byte("<html>window.print();</html>")},
	}
	w = do(r, http.MethodPost, "/tables/"+tableID.String()+"/kots/print", nil, "Accept", "text/html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, orders.window)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "window.print();")
}

func TestBills_ListDefaultsAndReopen(t *testing.T) {
	bills := &fakeBills{}
	r := testRouter(&fakeOrders{}, bills)

	w := do(r, http.MethodGet, "/bills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "saved", bills.filter.Status)
	assert.Equal(t, 1, bills.filter.Page)
	assert.Equal(t, 50, bills.filter.Limit)

	w = do(r, http.MethodGet, "/bills?status=bogus", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPost, "/bills/"+uuid.NewString()+"/reopen", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	conflict := testRouter(&fakeOrders{}, &fakeBills{err: service.ErrTableOccupied})
	w = do(conflict, http.MethodPost, "/bills/"+uuid.NewString()+"/reopen", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBills_SaveAndPrint(t *testing.T) {
	r := testRouter(&fakeOrders{}, &fakeBills{})

	w := do(r, http.MethodPost, "/tables/"+tableID.String()+"/bill", map[string]interface{}{"persons": 2, "discountAmount": "25"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "saved", detail(t, w)["status"])

	w = do(r, http.MethodPost, "/tables/"+tableID.String()+"/bill", map[string]interface{}{"discountAmount": "-5"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPost, "/bills/"+uuid.NewString()+"/print", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "network", detail(t, w)["target"])

	unsaved := testRouter(&fakeOrders{}, &fakeBills{err: service.ErrBillNotSaved})
	w = do(unsaved, http.MethodPost, "/bills/"+uuid.NewString()+"/print", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReport_Attachment(t *testing.T) {
	r := testRouter(&fakeOrders{}, &fakeBills{})

	w := do(r, http.MethodGet, "/reports/bills.xlsx?from=2026-03-01&to=2026-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="bills-`)
	assert.Equal(t, "PK", w.Body.String())
}

func TestSummary_BindsRange(t *testing.T) {
	r := testRouter(&fakeOrders{}, &fakeBills{})

	w := do(r, http.MethodGet, "/reports/summary?from=2026-03-01&to=2026-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-03-01", lastSummary.From)
	assert.EqualValues(t, 3, detail(t, w)["bills"])

	w = do(r, http.MethodGet, "/reports/summary?from=01-03-2026", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCash_CreateListDelete(t *testing.T) {
	svc := &fakeCash{}
	r := cashRouter(svc)

	w := do(r, http.MethodPost, "/cash", map[string]string{"kind": "expense", "category": "Gas", "amount": "900"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Meera", detail(t, w)["staffName"])
	assert.Equal(t, "Gas", svc.created.Category)

	w = do(r, http.MethodPost, "/cash", map[string]string{"kind": "refund", "category": "Gas", "amount": "900"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(r, http.MethodPost, "/cash", map[string]string{"kind": "income", "category": "Tips", "amount": "0"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(r, http.MethodPost, "/cash", map[string]string{"kind": "income", "category": "Tips", "amount": "5", "date": "14/03/2026"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodGet, "/cash?kind=income", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "income", svc.filter.Kind)
	assert.Equal(t, 50, svc.filter.Limit)

	w = do(r, http.MethodDelete, "/cash/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	missing := cashRouter(&fakeCash{err: service.ErrCashEntryNotFound})
	w = do(missing, http.MethodDelete, "/cash/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(missing, http.MethodPut, "/cash/"+uuid.NewString(), map[string]string{"note": "fixed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth_NoBackends(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", Health(nil, nil))

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := detail(t, w)
	assert.Equal(t, "error", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.NotContains(t, body, "dlq")
}
