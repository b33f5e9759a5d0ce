package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"viberate/internal/domain"
	"viberate/internal/domain/account"
	domainaudit "viberate/internal/domain/audit"
	"viberate/internal/domain/payment"
	"viberate/internal/domain/task"
	"viberate/internal/infrastructure/persistence/sqlitetest"
	"viberate/internal/ports"
	auditlog "viberate/internal/usecase/audit"
)

type fakeWallet struct {
	mu        sync.Mutex
	fail      error
	transfers []ports.TransferRequest
	balance   decimal.Decimal
}

func (w *fakeWallet) CreateWallet(context.Context, string) (ports.ProvisionedWallet, error) {
	return ports.ProvisionedWallet{}, errors.New("not used")
}

func (w *fakeWallet) GetBalance(_ context.Context, secret string, asset string) (decimal.Decimal, error) {
	if w.fail != nil {
		return decimal.Zero, w.fail
	}
	return w.balance, nil
}

func (w *fakeWallet) Transfer(_ context.Context, req ports.TransferRequest) (ports.TransferReceipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transfers = append(w.transfers, req)
	if w.fail != nil {
		return ports.TransferReceipt{}, domain.NewIntegrationError("wallet", "transfer", w.fail)
	}
	gas := int64(21000)
	return ports.TransferReceipt{
		TxHash:      fmt.Sprintf("0xhash%d", len(w.transfers)),
		FromAddress: "0xplatform",
		GasUsed:     &gas,
	}, nil
}

func (w *fakeWallet) ListTransfers(context.Context, string) ([]ports.TransferRecord, error) {
	return nil, nil
}

type fixture struct {
	svc       *Service
	store     sqlitetest.Store
	audit     *auditlog.Service
	wallet    *fakeWallet
	annotator account.Account
	approver  account.Account
}

func setup(t *testing.T, cfg Config) fixture {
	t.Helper()
	store := sqlitetest.NewStore(t)
	audit := auditlog.NewService(store.Audit)
	wallet := &fakeWallet{}
	if cfg.PlatformWalletData == "" {
		cfg.PlatformWalletData = "platform-seed"
	}
	return fixture{
		svc:       NewService(store.Payments, store.Accounts, wallet, audit, nil, cfg),
		store:     store,
		audit:     audit,
		wallet:    wallet,
		annotator: store.SeedAccount(t, "annotator", account.RoleAnnotator, "0x00000000000000000000000000000000000000a1"),
		approver:  store.SeedAccount(t, "researcher", account.RoleResearcher, ""),
	}
}

func (f fixture) assignment() task.Assignment {
	return task.Assignment{
		ID:          uuid.NewString(),
		TaskID:      uuid.NewString(),
		ProjectID:   uuid.NewString(),
		AnnotatorID: f.annotator.ID,
		Status:      task.AssignmentApproved,
	}
}

func (f fixture) actions(t *testing.T, resourceID string) []domainaudit.Action {
	t.Helper()
	entries, err := f.audit.List(context.Background(), domainaudit.Filter{ResourceID: resourceID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	out := make([]domainaudit.Action, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i].Action)
	}
	return out
}

func TestCreatePaymentComputesFeeAndPendingSender(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	tx, created, err := f.svc.CreatePayment(ctx, CreatePaymentInput{
		Assignment: f.assignment(),
		Amount:     decimal.RequireFromString("5.00"),
		ApproverID: f.approver.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	if !created || tx.Status != payment.StatusPending {
		t.Fatalf("CreatePayment() created=%v status=%s", created, tx.Status)
	}
	if got := tx.PlatformFeeUSDC.StringFixed(6); got != "0.500000" {
		t.Fatalf("CreatePayment() fee = %s, want 0.500000", got)
	}
	if tx.FromAddress != payment.PendingSender {
		t.Fatalf("CreatePayment() from = %q, want PENDING", tx.FromAddress)
	}
	if tx.Network != payment.DefaultNetwork {
		t.Fatalf("CreatePayment() network = %q", tx.Network)
	}
	if len(f.actions(t, tx.ID)) != 0 {
		t.Fatalf("CreatePayment() wrote audit entries")
	}
}

func TestCreatePaymentIsIdempotentPerAssignment(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()
	a := f.assignment()

	first, created, err := f.svc.CreatePayment(ctx, CreatePaymentInput{Assignment: a, Amount: decimal.NewFromInt(10), ApproverID: f.approver.ID})
	if err != nil || !created {
		t.Fatalf("CreatePayment() created=%v err=%v", created, err)
	}
	second, created, err := f.svc.CreatePayment(ctx, CreatePaymentInput{Assignment: a, Amount: decimal.NewFromInt(99), ApproverID: f.approver.ID})
	if err != nil {
		t.Fatalf("CreatePayment(second) error = %v", err)
	}
	if created || second.ID != first.ID || !second.AmountUSDC.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("CreatePayment(second) = %+v created=%v, want the first transaction", second, created)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	noWallet := f.store.SeedAccount(t, "walletless", account.RoleAnnotator, "")
	a := f.assignment()
	a.AnnotatorID = noWallet.ID
	if _, _, err := f.svc.CreatePayment(ctx, CreatePaymentInput{Assignment: a, Amount: decimal.NewFromInt(1)}); !errors.Is(err, payment.ErrNoWallet) {
		t.Fatalf("CreatePayment(no wallet) error = %v", err)
	}

	for _, amount := range []string{"0", "-3", "10000.01", "0.0000001"} {
		_, _, err := f.svc.CreatePayment(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.RequireFromString(amount)})
		if !errors.Is(err, payment.ErrInvalidAmount) {
			t.Fatalf("CreatePayment(%s) error = %v, want invalid amount", amount, err)
		}
	}
}

func TestCreateAndProcessSuccess(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	tx, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.RequireFromString("10.00"), ApproverID: f.approver.ID})
	if err != nil {
		t.Fatalf("CreateAndProcess() error = %v", err)
	}
	if tx.Status != payment.StatusCompleted || tx.TransactionHash == nil || *tx.TransactionHash == "" {
		t.Fatalf("CreateAndProcess() = %+v", tx)
	}
	if got := tx.PlatformFeeUSDC.StringFixed(6); got != "1.000000" {
		t.Fatalf("fee = %s, want 1.000000", got)
	}
	if tx.FromAddress != "0xplatform" || tx.ProcessedAt == nil || tx.CompletedAt == nil {
		t.Fatalf("CreateAndProcess() sender/timestamps = %+v", tx)
	}
	if tx.GasUsed == nil || *tx.GasUsed != 21000 {
		t.Fatalf("CreateAndProcess() gas = %v", tx.GasUsed)
	}

	if len(f.wallet.transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(f.wallet.transfers))
	}
	req := f.wallet.transfers[0]
	if !req.Gasless || req.WalletSecret != "platform-seed" || !req.Amount.Equal(decimal.NewFromInt(10)) || req.ToAddress != f.annotator.WalletAddress {
		t.Fatalf("transfer request = %+v", req)
	}

	got := f.actions(t, tx.ID)
	want := []domainaudit.Action{domainaudit.ActionPaymentInitiated, domainaudit.ActionPaymentCompleted}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("audit actions = %v, want %v", got, want)
	}

	// A repeated approval reuses the completed transaction.
	again, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: task.Assignment{ID: tx.AssignmentID, AnnotatorID: f.annotator.ID}, Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("CreateAndProcess(again) error = %v", err)
	}
	if again.ID != tx.ID || len(f.wallet.transfers) != 1 {
		t.Fatalf("CreateAndProcess(again) paid twice: %+v transfers=%d", again, len(f.wallet.transfers))
	}
}

func TestProcessPaymentWalletFailureMarksFailed(t *testing.T) {
	f := setup(t, Config{})
	f.wallet.fail = errors.New("rpc timeout")
	ctx := context.Background()

	tx, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(10), ApproverID: f.approver.ID})
	if err != nil {
		t.Fatalf("CreateAndProcess() error = %v, want failure reported on the transaction", err)
	}
	if tx.Status != payment.StatusFailed || tx.RetryCount != 1 || !strings.Contains(tx.ErrorMessage, "rpc timeout") {
		t.Fatalf("CreateAndProcess() = %+v", tx)
	}

	entries, err := f.audit.List(ctx, domainaudit.Filter{ResourceID: tx.ID, Action: domainaudit.ActionPaymentFailed})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Success || entries[0].ErrorMessage == "" {
		t.Fatalf("payment.failed entries = %+v", entries)
	}
}

func TestProcessPaymentWithoutSenderWallet(t *testing.T) {
	f := setup(t, Config{})
	f.svc.cfg.PlatformWalletData = ""
	ctx := context.Background()

	tx, _, err := f.svc.CreatePayment(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(3)})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	got, err := f.svc.ProcessPayment(ctx, ProcessPaymentInput{TransactionID: tx.ID})
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}
	if got.Status != payment.StatusFailed || got.ErrorMessage != payment.ErrWalletNotConfigured.Error() {
		t.Fatalf("ProcessPayment() = %+v", got)
	}
	if len(f.wallet.transfers) != 0 {
		t.Fatalf("transfer attempted without sender wallet")
	}

	// An explicit sender wallet is used over the missing platform wallet.
	retried, err := f.svc.RetryPayment(ctx, RetryPaymentInput{TransactionID: tx.ID, SenderWalletData: "approver-seed"})
	if err != nil {
		t.Fatalf("RetryPayment() error = %v", err)
	}
	if retried.Status != payment.StatusCompleted || f.wallet.transfers[0].WalletSecret != "approver-seed" {
		t.Fatalf("RetryPayment() = %+v", retried)
	}
}

func TestRetryPaymentIsBounded(t *testing.T) {
	f := setup(t, Config{})
	f.wallet.fail = errors.New("insufficient funds")
	ctx := context.Background()

	tx, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("CreateAndProcess() error = %v", err)
	}
	for want := 2; want <= 3; want++ {
		tx, err = f.svc.RetryPayment(ctx, RetryPaymentInput{TransactionID: tx.ID})
		if err != nil {
			t.Fatalf("RetryPayment() error = %v", err)
		}
		if tx.Status != payment.StatusFailed || tx.RetryCount != want {
			t.Fatalf("RetryPayment() = status %s retries %d, want failed/%d", tx.Status, tx.RetryCount, want)
		}
	}

	_, err = f.svc.RetryPayment(ctx, RetryPaymentInput{TransactionID: tx.ID})
	if !errors.Is(err, payment.ErrRetryLimitExceeded) {
		t.Fatalf("RetryPayment() error = %v, want retry limit", err)
	}
	stored, err := f.svc.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if stored.RetryCount != 3 || stored.Status != payment.StatusFailed {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestRetryPaymentRequiresFailed(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	tx, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("CreateAndProcess() error = %v", err)
	}
	_, err = f.svc.RetryPayment(ctx, RetryPaymentInput{TransactionID: tx.ID})
	var stateErr *domain.InvalidStateError
	if !errors.As(err, &stateErr) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("RetryPayment(completed) error = %v, want invalid state", err)
	}
	if _, err := f.svc.ProcessPayment(ctx, ProcessPaymentInput{TransactionID: tx.ID}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("ProcessPayment(completed) error = %v, want invalid state", err)
	}
}

func TestPaymentRecordFixedFieldsAreImmutable(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	tx, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("CreateAndProcess() error = %v", err)
	}

	for _, stmt := range []string{
		"UPDATE payment_transactions SET amount_usdc = '999' WHERE id = ?",
		"UPDATE payment_transactions SET assignment_id = 'other' WHERE id = ?",
		"UPDATE payment_transactions SET transaction_hash = '0xforged' WHERE id = ?",
		"DELETE FROM payment_transactions WHERE id = ?",
	} {
		if err := f.store.DB.Exec(stmt, tx.ID).Error; err == nil || !strings.Contains(err.Error(), "immutable") {
			t.Fatalf("%s: error = %v, want immutable abort", stmt, err)
		}
	}

	list, err := f.svc.ListTransactions(ctx, f.annotator.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 1 || !list[0].AmountUSDC.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("ListTransactions() = %+v", list)
	}
}

func TestGetBalance(t *testing.T) {
	f := setup(t, Config{})
	f.wallet.balance = decimal.RequireFromString("12.5")

	got, err := f.svc.GetBalance(context.Background(), "seed")
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if !got.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("GetBalance() = %s", got)
	}
	if _, err := f.svc.GetBalance(context.Background(), ""); !errors.Is(err, payment.ErrWalletNotConfigured) {
		t.Fatalf("GetBalance(empty) error = %v", err)
	}
}

func TestCreateAndProcessPaysFromApproverWallet(t *testing.T) {
	f := setup(t, Config{})
	f.svc.cfg.PlatformWalletData = ""
	ctx := context.Background()
	if err := f.store.Accounts.SetWallet(ctx, f.approver.ID, account.Wallet{
		Address: "0x00000000000000000000000000000000000000c3",
		Data:    "researcher-seed",
	}); err != nil {
		t.Fatalf("SetWallet() error = %v", err)
	}

	tx, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(10), ApproverID: f.approver.ID})
	if err != nil {
		t.Fatalf("CreateAndProcess() error = %v", err)
	}
	if tx.Status != payment.StatusCompleted {
		t.Fatalf("CreateAndProcess() = %+v, want completed", tx)
	}
	if len(f.wallet.transfers) != 1 || f.wallet.transfers[0].WalletSecret != "researcher-seed" {
		t.Fatalf("transfers = %+v, want one signed by the approver wallet", f.wallet.transfers)
	}
}

func TestCreateAndProcessFallsBackToPlatformWallet(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	if _, err := f.svc.CreateAndProcess(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(2), ApproverID: f.approver.ID}); err != nil {
		t.Fatalf("CreateAndProcess() error = %v", err)
	}
	if len(f.wallet.transfers) != 1 || f.wallet.transfers[0].WalletSecret != "platform-seed" {
		t.Fatalf("transfers = %+v, want the platform wallet", f.wallet.transfers)
	}
}

// overtakenPayments moves the transaction to processing just before the
// caller's own pending check-and-set, as a concurrent processor would.
type overtakenPayments struct {
	ports.PaymentRepository
	once sync.Once
}

func (r *overtakenPayments) UpdateProgress(ctx context.Context, id string, from []payment.Status, progress payment.Progress) (bool, error) {
	r.once.Do(func() {
		now := time.Now().UTC()
		_, _ = r.PaymentRepository.UpdateProgress(ctx, id, []payment.Status{payment.StatusPending}, payment.Progress{
			Status:      payment.StatusProcessing,
			ProcessedAt: &now,
		})
	})
	return r.PaymentRepository.UpdateProgress(ctx, id, from, progress)
}

func TestProcessPaymentLosingTheRaceIsNotAudited(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	tx, _, err := f.svc.CreatePayment(ctx, CreatePaymentInput{Assignment: f.assignment(), Amount: decimal.NewFromInt(4)})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	f.svc.payments = &overtakenPayments{PaymentRepository: f.store.Payments}

	_, err = f.svc.ProcessPayment(ctx, ProcessPaymentInput{TransactionID: tx.ID})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("ProcessPayment() error = %v, want invalid state", err)
	}
	if got := f.actions(t, tx.ID); len(got) != 0 {
		t.Fatalf("audit actions = %v, want none for an attempt that never ran", got)
	}
	if len(f.wallet.transfers) != 0 {
		t.Fatalf("transfer attempted by the losing caller")
	}
}
