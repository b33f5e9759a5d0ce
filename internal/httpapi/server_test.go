package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/domain/account"
	domainaudit "viberate/internal/domain/audit"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/infrastructure/cache"
	"viberate/internal/infrastructure/persistence/sqlitetest"
	"viberate/internal/ports"
	accountuc "viberate/internal/usecase/account"
	"viberate/internal/usecase/assignment"
	auditlog "viberate/internal/usecase/audit"
	"viberate/internal/usecase/budget"
	paymentuc "viberate/internal/usecase/payment"
)

const testSecret = "test-secret"

type fakeWallet struct {
	mu    sync.Mutex
	calls int
}

func (w *fakeWallet) CreateWallet(context.Context, string) (ports.ProvisionedWallet, error) {
	return ports.ProvisionedWallet{}, errors.New("not supported")
}

func (w *fakeWallet) GetBalance(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.RequireFromString("12.5"), nil
}

func (w *fakeWallet) Transfer(context.Context, ports.TransferRequest) (ports.TransferReceipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return ports.TransferReceipt{TxHash: fmt.Sprintf("0xhash%d", w.calls), FromAddress: "0xplatform"}, nil
}

func (w *fakeWallet) ListTransfers(context.Context, string) ([]ports.TransferRecord, error) {
	return nil, nil
}

type apiFixture struct {
	handler    http.Handler
	services   Services
	store      sqlitetest.Store
	audit      *auditlog.Service
	researcher account.Account
	annotator  account.Account
	other      account.Account
	project    project.Project
	tasks      []task.Task
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	store := sqlitetest.NewStore(t)
	audit := auditlog.NewService(store.Audit)
	wallet := &fakeWallet{}

	budgets := budget.NewService(store.Projects, store.Tasks, store.UoW, audit, nil)
	payments := paymentuc.NewService(store.Payments, store.Accounts, wallet, audit, nil, paymentuc.Config{PlatformWalletData: "platform-seed"})
	accounts := accountuc.NewService(store.Accounts, wallet, cache.NewSQLiteCache(store.DB), audit, accountuc.Config{})
	assignments := assignment.NewService(assignment.Deps{
		Tasks:       store.Tasks,
		Assignments: store.Assignments,
		Accounts:    store.Accounts,
		Projects:    store.Projects,
		UoW:         store.UoW,
		Counts:      budgets,
		Payer:       payments,
		Audit:       audit,
	}, assignment.DefaultConfig())

	services := Services{
		Accounts:    accounts,
		Budgets:     budgets,
		Assignments: assignments,
		Payments:    payments,
	}
	handler, err := New(Config{Services: services, Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	researcher := store.SeedAccount(t, "researcher", account.RoleResearcher, "")
	annotator := store.SeedAccount(t, "annotator", account.RoleAnnotator, "0x00000000000000000000000000000000000000a1")
	other := store.SeedAccount(t, "other", account.RoleAnnotator, "0x00000000000000000000000000000000000000a2")
	p, tasks := store.SeedProject(t, sqlitetest.ProjectSeed{
		OwnerID:   researcher.ID,
		Budget:    "100.00",
		Published: true,
		TaskCount: 4,
	})
	return apiFixture{
		handler:    handler,
		services:   services,
		store:      store,
		audit:      audit,
		researcher: researcher,
		annotator:  annotator,
		other:      other,
		project:    p,
		tasks:      tasks,
	}
}

func token(t *testing.T, accountID string) string {
	t.Helper()
	tok, err := IssueToken(testSecret, accountID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return tok
}

func (f apiFixture) do(t *testing.T, method string, path string, actorID string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal() error = %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, DefaultBasePath+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actorID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, actorID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q error = %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error apiErrorBody `json:"error"`
	}](t, rec)
	return body.Error.Code
}

func TestHealthNeedsNoToken(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRequestsWithoutTokenAreUnauthorized(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/tasks/"+f.tasks[0].ID+"/claim", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != "unauthorized" {
		t.Fatalf("code = %q", code)
	}

	req := httptest.NewRequest(http.MethodGet, DefaultBasePath+"/assignments/mine", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	bad := httptest.NewRecorder()
	f.handler.ServeHTTP(bad, req)
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", bad.Code)
	}
}

func TestClaimSubmitApproveOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	tk := f.tasks[0]

	rec := f.do(t, http.MethodPost, "/tasks/"+tk.ID+"/claim", f.annotator.ID, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim status = %d, body = %s", rec.Code, rec.Body.String())
	}
	claimed := decode[AssignmentResponse](t, rec)
	if claimed.Status != string(task.AssignmentInProgress) {
		t.Fatalf("claimed status = %q", claimed.Status)
	}

	rec = f.do(t, http.MethodPost, "/assignments/"+claimed.ID+"/submit", f.annotator.ID, map[string]any{
		"result": map[string]any{"label": "cat"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	submitted := decode[AssignmentResponse](t, rec)
	if submitted.Status != string(task.AssignmentSubmitted) {
		t.Fatalf("submitted status = %q", submitted.Status)
	}

	score := 8.5
	rec = f.do(t, http.MethodPost, "/assignments/"+claimed.ID+"/approve", f.researcher.ID, ApproveRequest{
		PaymentAmount: "10.00",
		QualityScore:  &score,
		Feedback:      "good",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body = %s", rec.Code, rec.Body.String())
	}
	approval := decode[ApprovalResponse](t, rec)
	if approval.Assignment.Status != string(task.AssignmentApproved) {
		t.Fatalf("approved status = %q", approval.Assignment.Status)
	}
	if approval.Assignment.QualityScore == nil || *approval.Assignment.QualityScore != 8.5 {
		t.Fatalf("approved score = %v, want 8.5", approval.Assignment.QualityScore)
	}
	if approval.Payment == nil || approval.Payment.Status != "completed" {
		t.Fatalf("payment = %+v, error = %q", approval.Payment, approval.PaymentError)
	}
	if approval.Payment.AmountUSDC != "10.000000" {
		t.Fatalf("amount = %q", approval.Payment.AmountUSDC)
	}

	rec = f.do(t, http.MethodGet, "/payments/"+approval.Payment.TransactionID, f.annotator.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get payment as recipient status = %d", rec.Code)
	}
	if got := decode[PaymentResponse](t, rec); got.PlatformFeeUSDC != "1.000000" {
		t.Fatalf("fee = %q", got.PlatformFeeUSDC)
	}
	rec = f.do(t, http.MethodGet, "/payments/"+approval.Payment.TransactionID, f.researcher.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get payment as owner status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/payments/"+approval.Payment.TransactionID, f.other.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("get payment as stranger status = %d, want 403", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/assignments/"+claimed.ID+"/approve", f.researcher.ID, ApproveRequest{PaymentAmount: "10.00"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second approve status = %d, want 409", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/projects/"+f.project.ID+"/stats", f.researcher.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, body = %s", rec.Code, rec.Body.String())
	}
	stats := decode[StatsResponse](t, rec)
	if stats.Project.CompletedTasks != 1 || stats.TasksByStatus["completed"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDoubleClaimConflicts(t *testing.T) {
	f := newAPIFixture(t)
	tk := f.tasks[1]
	if rec := f.do(t, http.MethodPost, "/tasks/"+tk.ID+"/claim", f.annotator.ID, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first claim status = %d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/tasks/"+tk.ID+"/claim", f.other.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second claim status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "conflict" {
		t.Fatalf("code = %q", code)
	}
}

func TestAnnotatorCannotPublish(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/projects/"+f.project.ID+"/publish", f.annotator.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDomainValidationIsUnprocessable(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPut, "/projects/"+f.project.ID+"/budget", f.researcher.ID, BudgetRequest{Amount: "10.123"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "validation" {
		t.Fatalf("code = %q", code)
	}

	rec = f.do(t, http.MethodPut, "/projects/"+f.project.ID+"/budget", f.researcher.ID, map[string]any{"amount": 12})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("schema violation status = %d, want 400", rec.Code)
	}
}

func TestSecondHandlerKeepsErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	second, err := New(Config{Services: f.services, BasePath: "v2", Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("New(second) error = %v", err)
	}

	for _, h := range []struct {
		name    string
		handler http.Handler
		base    string
	}{
		{"first", f.handler, DefaultBasePath},
		{"second", second, "/v2"},
	} {
		req := httptest.NewRequest(http.MethodPut, h.base+"/projects/"+f.project.ID+"/budget", strings.NewReader(`{"amount":12}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token(t, f.researcher.ID))
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s handler schema violation status = %d, want 400", h.name, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Fatalf("%s handler body = %s, want the error envelope", h.name, rec.Body.String())
		}
	}
}

func TestClaimAuditCarriesForwardedAddress(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/tasks/"+f.tasks[2].ID+"/claim", f.annotator.ID, nil,
		"X-Forwarded-For", "203.0.113.9, 10.0.0.1",
		"User-Agent", "viberate-test",
	)
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim status = %d", rec.Code)
	}
	entries, err := f.audit.List(context.Background(), domainaudit.Filter{Action: domainaudit.ActionTaskClaim})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].IPAddress != "203.0.113.9" || entries[0].UserAgent != "viberate-test" {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestPublishedProjectsListing(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/projects/published", f.annotator.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	items := decode[[]ProjectResponse](t, rec)
	if len(items) != 1 || items[0].AvailableTasks == nil || *items[0].AvailableTasks != 4 {
		t.Fatalf("items = %+v", items)
	}
	if !strings.HasPrefix(items[0].PricePerTask, "25.") {
		t.Fatalf("price = %q", items[0].PricePerTask)
	}
}

func TestSettlePaysAfterLateWalletConnect(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	late := f.store.SeedAccount(t, "late", account.RoleAnnotator, "")

	rec := f.do(t, http.MethodPost, "/tasks/"+f.tasks[0].ID+"/claim", late.ID, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim status = %d, body = %s", rec.Code, rec.Body.String())
	}
	claimed := decode[AssignmentResponse](t, rec)
	rec = f.do(t, http.MethodPost, "/assignments/"+claimed.ID+"/submit", late.ID, SubmitRequest{Result: map[string]any{"label": "dog"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/assignments/"+claimed.ID+"/approve", f.researcher.ID, ApproveRequest{PaymentAmount: "10.00"})
	approval := decode[ApprovalResponse](t, rec)
	if rec.Code != http.StatusOK || approval.Payment != nil || approval.PaymentError == "" {
		t.Fatalf("approve status = %d, approval = %+v", rec.Code, approval)
	}

	if err := f.store.Accounts.SetWallet(ctx, late.ID, account.Wallet{Address: "0x00000000000000000000000000000000000000a9"}); err != nil {
		t.Fatalf("SetWallet() error = %v", err)
	}
	rec = f.do(t, http.MethodPost, "/assignments/"+claimed.ID+"/settle", late.ID, SettleRequest{Amount: "10.00"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("settle as annotator status = %d, want 403", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/assignments/"+claimed.ID+"/settle", f.researcher.ID, SettleRequest{Amount: "10.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("settle status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := decode[PaymentResponse](t, rec); got.Status != "completed" || got.AmountUSDC != "10.000000" {
		t.Fatalf("settled payment = %+v", got)
	}
}
