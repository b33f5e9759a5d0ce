package payment

import (
	"context"
	"log/slog"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain/money"
	"viberate/internal/domain/payment"
)

// CreatePayment records the intent to pay for an approved assignment. It is
// idempotent per assignment: a second call returns the existing transaction
// with created=false. No audit entry is written here.
func (s *Service) CreatePayment(ctx context.Context, input CreatePaymentInput) (payment.Transaction, bool, error) {
	if err := s.check(ctx); err != nil {
		return payment.Transaction{}, false, err
	}

	recipient, err := s.accounts.GetAccount(ctx, input.Assignment.AnnotatorID)
	if err != nil {
		return payment.Transaction{}, false, err
	}
	if !recipient.HasWallet() {
		return payment.Transaction{}, false, payment.ErrNoWallet
	}
	if err := payment.ValidateAmount(input.Amount, s.cfg.MaxAmount); err != nil {
		return payment.Transaction{}, false, err
	}

	approverAddress := ""
	if input.ApproverID != "" {
		approver, err := s.accounts.GetAccount(ctx, input.ApproverID)
		if err != nil {
			return payment.Transaction{}, false, err
		}
		approverAddress = approver.WalletAddress
	}

	amount := money.USDC(input.Amount)
	tx := payment.Transaction{
		ID:              s.newID(),
		AssignmentID:    input.Assignment.ID,
		RecipientID:     recipient.ID,
		AmountUSDC:      amount,
		PlatformFeeUSDC: payment.Fee(amount, s.cfg.FeeRate),
		Network:         s.cfg.Network,
		FromAddress:     payment.SenderAddress(approverAddress),
		ToAddress:       recipient.WalletAddress,
		Status:          payment.StatusPending,
		CreatedAt:       s.now(),
		Metadata: map[string]any{
			"task_id":    input.Assignment.TaskID,
			"project_id": input.Assignment.ProjectID,
		},
	}

	stored, created, err := s.payments.CreateTransaction(ctx, tx)
	if err != nil {
		return payment.Transaction{}, false, err
	}
	if !created {
		logging.Info(s.logCtx(ctx, stored), "payment already exists for assignment", slog.String("status", string(stored.Status)))
	}
	return stored, created, nil
}
