package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"budgetfamille/internal/core"
	"budgetfamille/internal/log"
	"budgetfamille/internal/metrics"
	"budgetfamille/internal/services"
	"budgetfamille/internal/storage"
	"budgetfamille/internal/storage/memory"
)

type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	failPut bool
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func (f *flakyStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("store offline")
	}
	return nil
}

var testNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *flakyStore) {
	t.Helper()
	st := &flakyStore{Store: memory.New()}
	n := 0
	var mu sync.Mutex
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
	session, err := services.NewSession(context.Background(), storage.NewGateway(st),
		services.WithClock(core.FixedClock{T: testNow}),
		services.WithIDGenerator(ids),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	quiet := log.New(log.Config{Output: io.Discard})
	srv := NewServer(":0", session, append([]Option{WithLogger(quiet)}, opts...)...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, st
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, st := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	st.failPut = true
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "store offline") {
		t.Fatalf("readyz body missing check detail: %s", rr.Body.String())
	}
}

func TestCreateTransaction(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantCount int
	}{
		{
			name:      "json with string amount",
			body:      `{"date":"2025-03-02","account":"Emilie","type":"Variable","category":"Courses","amount":"12,50"}`,
			wantCode:  http.StatusCreated,
			wantCount: 1,
		},
		{
			name:      "json with numeric amount",
			body:      `{"account":"Commun","type":"Fixe","category":"Loyer","amount":850}`,
			wantCode:  http.StatusCreated,
			wantCount: 1,
		},
		{
			name:      "outgoing transfer creates linked record",
			body:      "account=Cedric&type=Variable&category=Virement+compte+commun&amount=200",
			wantCode:  http.StatusCreated,
			wantCount: 2,
		},
		{
			name:     "zero amount",
			body:     `{"account":"Commun","type":"Variable","category":"Courses","amount":0}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "negative amount",
			body:     `{"account":"Commun","type":"Variable","category":"Courses","amount":"-4"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing amount",
			body:     `{"account":"Commun","type":"Variable","category":"Courses"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "unknown account",
			body:     `{"account":"Bob","type":"Variable","category":"Courses","amount":3}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "empty category",
			body:     `{"account":"Commun","type":"Variable","category":"  ","amount":3}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "malformed json",
			body:     `{"account":`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantCode != http.StatusCreated {
				if body := decode[map[string]string](t, rr); body["error"] == "" {
					t.Fatalf("error body missing message: %s", rr.Body.String())
				}
				return
			}
			created := decode[[]core.Transaction](t, rr)
			if len(created) != tt.wantCount {
				t.Fatalf("created %d records, want %d", len(created), tt.wantCount)
			}
		})
	}
}

func TestCreateTransaction_DefaultsDateToToday(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/transactions", `{"account":"Commun","type":"Variable","category":"Courses","amount":"1.005"}`)
	created := decode[[]core.Transaction](t, rr)
	if created[0].Date.String() != "2025-03-14" {
		t.Errorf("date = %s, want 2025-03-14", created[0].Date)
	}
	if created[0].Amount.Cents != 101 {
		t.Errorf("amount = %d cents, want 101", created[0].Amount.Cents)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/transactions", `{"date":"2025-03-01","account":"Commun","type":"Variable","category":"Courses","amount":40}`)
	id := decode[[]core.Transaction](t, rr)[0].ID

	rr = do(t, srv, http.MethodPost, "/api/transactions/"+id+"/verify", "")
	if rr.Code != http.StatusOK || !decode[core.Transaction](t, rr).IsVerified {
		t.Fatalf("verify status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions?account=Commun&year=2025&month=3", "")
	if got := decode[[]core.Transaction](t, rr); len(got) != 1 {
		t.Fatalf("filtered list has %d records", len(got))
	}
	rr = do(t, srv, http.MethodGet, "/api/transactions?account=Emilie", "")
	if got := decode[[]core.Transaction](t, rr); len(got) != 0 {
		t.Fatalf("other account should be empty, got %d", len(got))
	}

	if rr = do(t, srv, http.MethodDelete, "/api/transactions/"+id, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr = do(t, srv, http.MethodDelete, "/api/transactions/"+id, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
	if rr = do(t, srv, http.MethodPost, "/api/transactions/nope/verify", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("verify unknown status=%d, want 404", rr.Code)
	}
}

func TestBudgets(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/budgets", "")
	if got := decode[[]core.Budget](t, rr); len(got) != 2 {
		t.Fatalf("default budgets = %d, want 2", len(got))
	}

	rr = do(t, srv, http.MethodPost, "/api/budgets", `{"name":"Courses","amount":"600","account":"Commun"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d, want 409", rr.Code)
	}
	if msg := decode[map[string]string](t, rr)["error"]; !strings.Contains(msg, "existe déjà") {
		t.Fatalf("duplicate message = %q", msg)
	}

	rr = do(t, srv, http.MethodPost, "/api/budgets", "name=Courses&amount=300&account=Emilie")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	b := decode[core.Budget](t, rr)
	if b.Account != core.Emilie || b.IsFixed {
		t.Fatalf("unexpected budget %+v", b)
	}

	if rr = do(t, srv, http.MethodPost, "/api/budgets/"+b.ID+"/toggle-paid", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("toggle non-fixed status=%d, want 422", rr.Code)
	}
	if rr = do(t, srv, http.MethodDelete, "/api/budgets/"+b.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestToggleFixedChargeAndOverview(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/budgets/2/toggle-paid", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle status=%d body=%s", rr.Code, rr.Body.String())
	}
	if res := decode[services.FixedChargeResult](t, rr); !res.Paid || len(res.Created) != 1 {
		t.Fatalf("expected paid with one created record, got %+v", res)
	}

	rr = do(t, srv, http.MethodGet, "/api/overview", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("overview status=%d", rr.Code)
	}
	var view struct {
		Account string `json:"account"`
		Month   int    `json:"month"`
		Totals  struct {
			FixedExpenses float64 `json:"fixedExpenses"`
		} `json:"totals"`
		Budgets []struct {
			Paid bool `json:"paid"`
		} `json:"budgets"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if view.Account != "Commun" || view.Month != 3 || view.Totals.FixedExpenses != 850 {
		t.Fatalf("unexpected overview %+v", view)
	}

	rr = do(t, srv, http.MethodPost, "/api/budgets/2/toggle-paid", "")
	if res := decode[services.FixedChargeResult](t, rr); res.Paid || res.Removed != 1 {
		t.Fatalf("expected unpaid with one removal, got %+v", res)
	}

	if rr = do(t, srv, http.MethodPost, "/api/budgets/404/toggle-paid", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown budget status=%d", rr.Code)
	}
}

func TestOverview_InvalidQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, q := range []string{"?month=13", "?account=Bob", "?year=abc"} {
		if rr := do(t, srv, http.MethodGet, "/api/overview"+q, ""); rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s status=%d, want 422", q, rr.Code)
		}
	}
}

func TestCategoriesAndIncomes(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Vacances"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("category status=%d", rr.Code)
	}
	c := decode[core.Category](t, rr)
	if rr = do(t, srv, http.MethodPost, "/api/categories", `{"name":""}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty category status=%d", rr.Code)
	}
	if rr = do(t, srv, http.MethodDelete, "/api/categories/"+c.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete category status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/incomes", `{"name":"Salaire","amount":2100.5,"account":"Emilie"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("income status=%d body=%s", rr.Code, rr.Body.String())
	}
	inc := decode[core.IncomeConfig](t, rr)
	if inc.Amount.Cents != 210050 {
		t.Fatalf("income amount = %d", inc.Amount.Cents)
	}
	rr = do(t, srv, http.MethodGet, "/api/incomes", "")
	if got := decode[[]core.IncomeConfig](t, rr); len(got) != 1 {
		t.Fatalf("incomes = %d", len(got))
	}
	if rr = do(t, srv, http.MethodDelete, "/api/incomes/"+inc.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete income status=%d", rr.Code)
	}
}

func TestPersistenceFailureIs500(t *testing.T) {
	srv, st := newTestServer(t)
	st.failPut = true
	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Vacances"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk full") {
		t.Fatal("store error detail leaked to client")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing security headers: %v", rr.Header())
	}
}

func TestMethodNotAllowedAndNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	if rr := do(t, srv, http.MethodPut, "/api/budgets", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT status=%d, want 405", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/nothing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown route status=%d, want 404", rr.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(2))
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/categories", fmt.Sprintf(`{"name":"C%d"}`, i)); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"C3"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if rr := do(t, srv, http.MethodGet, "/api/categories", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	srv, _ := newTestServer(t, WithMetrics(m))
	do(t, srv, http.MethodGet, "/api/budgets", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`route="/api/budgets"`)) {
		t.Fatalf("route label missing from exposition")
	}
}
