package payment

import (
	"context"
	"strings"

	"viberate/internal/domain/payment"
)

// CreateAndProcess creates the assignment's payment and processes it. When
// the assignment already has a transaction that is no longer pending, that
// transaction is returned untouched.
//
// The sender is the explicit wallet data when given, else the approver's
// stored wallet, else the platform wallet.
func (s *Service) CreateAndProcess(ctx context.Context, input CreatePaymentInput) (payment.Transaction, error) {
	tx, _, err := s.CreatePayment(ctx, input)
	if err != nil {
		return payment.Transaction{}, err
	}
	if tx.Status != payment.StatusPending {
		return tx, nil
	}

	sender := strings.TrimSpace(input.SenderWalletData)
	if sender == "" && input.ApproverID != "" {
		approver, err := s.accounts.GetAccount(ctx, input.ApproverID)
		if err != nil {
			return payment.Transaction{}, err
		}
		sender = strings.TrimSpace(approver.WalletData)
	}
	return s.ProcessPayment(ctx, ProcessPaymentInput{
		TransactionID:    tx.ID,
		SenderWalletData: sender,
		ActorID:          input.ApproverID,
	})
}
