//go:build integration

package router

// End-to-end tests against real Postgres + Redis via testcontainers, with a
// TCP listener standing in for the LAN receipt printer.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tablepos/internal/config"
	"tablepos/internal/infra"
	"tablepos/internal/printing"
	"tablepos/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// fakeLANPrinter accepts raw ESC/POS jobs like a port 9100 printer.
type fakeLANPrinter struct {
	ln   net.Listener
	mu   sync.Mutex
	jobs [][]byte
}

func startLANPrinter(t *testing.T) *fakeLANPrinter {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	p := &fakeLANPrinter{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			data, _ := io.ReadAll(conn)
			_ = conn.Close()
			p.mu.Lock()
			p.jobs = append(p.jobs, data)
			p.mu.Unlock()
		}
	}()
	return p
}

func (p *fakeLANPrinter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server  *httptest.Server
	token   string // admin JWT
	printer *fakeLANPrinter
	rdb     *redis.Client
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("tablepos_test"),
		tcPostgres.WithUsername("tablepos"),
		tcPostgres.WithPassword("tablepos"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	lan := startLANPrinter(t)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		RateLimitRPS:       1000,
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		PrintAutoDelayMS:   300,
		NetworkPrinterAddr: lan.ln.Addr().String(),
		WorkerPoolSize:     1,
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	require.NoError(t, infra.RunMigrations(db))

	hash, err := bcrypt.GenerateFromPassword([]byte("tablepos2026"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO staff (id, restaurant_id, username, name, password_hash, role, active, created_at, updated_at)
		VALUES (gen_random_uuid(), ?, 'admin', 'Admin E2E', ?, 'admin', true, NOW(), NOW())`,
		uuid.New(), string(hash)).Error)

	platform := Platform{
		DB:         db,
		Redis:      rdb,
		Dispatcher: printing.NewDispatcher(printing.DispatcherConfig{Printer: printing.NewNetworkPrinter(cfg.NetworkPrinterAddr, time.Second)}),
		Profiles:   printing.DefaultProfiles(),
		Jobs:       worker.NewDispatcher(rdb),
	}
	svc := NewServices(cfg, platform)
	srv := httptest.NewServer(New(cfg, platform, svc))
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "tablepos2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"accessToken"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken, printer: lan, rdb: rdb}
}

type billBody struct {
	ID         string  `json:"id"`
	BillNumber *string `json:"billNumber"`
	Status     string  `json:"status"`
	Totals     struct {
		Subtotal   decimal.Decimal `json:"subtotal"`
		GrandTotal decimal.Decimal `json:"grandTotal"`
	} `json:"totals"`
	OriginalBillNumber *string `json:"originalBillNumber"`
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Full table cycle: order → KOT → kitchen print → bill → reopen.
func TestE2E_TableCycle(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "POST", "/v1/categories", jsonBody(t, map[string]any{"name": "Main Course"}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/menu",
		jsonBody(t, map[string]any{"name": "Paneer Tikka", "price": "220", "category": "Main Course"}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var item struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &item)

	resp = do(t, env.server, "POST", "/v1/tables", jsonBody(t, map[string]any{"name": "T1"}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var table struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &table)
	base := "/v1/tables/" + table.ID

	// 1. Two units of Paneer Tikka
	for i := 0; i < 2; i++ {
		resp = do(t, env.server, "POST", base+"/cart/items", jsonBody(t, map[string]string{"menuItemId": item.ID}), env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// 2. Cut and print the KOT
	resp = do(t, env.server, "POST", base+"/kots", nil, env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", base+"/kots", nil, env.token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing new to cut")
	resp.Body.Close()

	resp = do(t, env.server, "POST", base+"/kots/print", jsonBody(t, map[string]string{"target": "network"}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var printed struct {
		Printed []string `json:"printed"`
	}
	decodeJSON(t, resp, &printed)
	assert.Len(t, printed.Printed, 1)
	assert.Eventually(t, func() bool { return env.printer.count() == 1 }, 2*time.Second, 20*time.Millisecond)

	// 3. Save with a 25 discount: 440 - 25 = 415
	resp = do(t, env.server, "POST", base+"/bill",
		jsonBody(t, map[string]any{"persons": 2, "discountAmount": "25", "cgst": "0", "sgst": "0"}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved billBody
	decodeJSON(t, resp, &saved)
	require.NotNil(t, saved.BillNumber)
	assert.Len(t, *saved.BillNumber, 17)
	assert.True(t, saved.Totals.Subtotal.Equal(decimal.NewFromInt(440)))
	assert.True(t, saved.Totals.GrandTotal.Equal(decimal.NewFromInt(415)))

	// The table is free again
	resp = do(t, env.server, "GET", base+"/cart", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cartBody struct {
		Items []any `json:"items"`
	}
	decodeJSON(t, resp, &cartBody)
	assert.Empty(t, cartBody.Items)

	// 4. History and receipt print
	resp = do(t, env.server, "GET", "/v1/bills", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Bills []billBody `json:"bills"`
		Total int64      `json:"total"`
	}
	decodeJSON(t, resp, &list)
	assert.Equal(t, int64(1), list.Total)

	resp = do(t, env.server, "POST", "/v1/bills/"+saved.ID+"/print", jsonBody(t, map[string]string{"target": "network"}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Eventually(t, func() bool { return env.printer.count() == 2 }, 2*time.Second, 20*time.Millisecond)

	// 5. Reopen for correction keeps the saved bill
	resp = do(t, env.server, "POST", "/v1/bills/"+saved.ID+"/reopen", nil, env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reopened billBody
	decodeJSON(t, resp, &reopened)
	assert.Equal(t, "open", reopened.Status)
	require.NotNil(t, reopened.OriginalBillNumber)
	assert.Equal(t, *saved.BillNumber, *reopened.OriginalBillNumber)

	resp = do(t, env.server, "POST", "/v1/bills/"+saved.ID+"/reopen", nil, env.token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "table already has an open bill")
	resp.Body.Close()

	// 6. Report export
	resp = do(t, env.server, "GET", "/v1/reports/bills.xlsx", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	resp.Body.Close()

	// 7. A day's expense lands on the dashboard next to the sale
	resp = do(t, env.server, "POST", "/v1/cash",
		jsonBody(t, map[string]string{"kind": "expense", "category": "Gas", "amount": "115"}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/reports/summary", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		Bills   int             `json:"bills"`
		Sales   decimal.Decimal `json:"sales"`
		Expense decimal.Decimal `json:"expense"`
		Net     decimal.Decimal `json:"net"`
	}
	decodeJSON(t, resp, &summary)
	assert.Equal(t, 1, summary.Bills)
	assert.True(t, summary.Sales.Equal(decimal.NewFromInt(415)))
	assert.True(t, summary.Expense.Equal(decimal.NewFromInt(115)))
	assert.True(t, summary.Net.Equal(decimal.NewFromInt(300)))
}

func TestE2E_AuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "GET", "/v1/tables", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestE2E_HealthReportsDeadLetters(t *testing.T) {
	env := setupTestEnv(t)
	worker.SendToDLQ(context.Background(), env.rdb, worker.QueueEmail, "email", json.RawMessage(`{}`), "smtp down", 3)

	resp := do(t, env.server, "GET", "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Redis string           `json:"redis"`
		DLQ   map[string]int64 `json:"dlq"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "connected", body.Redis)
	assert.Equal(t, int64(1), body.DLQ["email"])
	assert.Equal(t, int64(0), body.DLQ["billArchive"])
}
