package payment

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
	"viberate/internal/domain/payment"
)

func (s *Service) GetTransaction(ctx context.Context, id string) (payment.Transaction, error) {
	if err := s.check(ctx); err != nil {
		return payment.Transaction{}, err
	}
	return s.payments.GetTransaction(ctx, strings.TrimSpace(id))
}

func (s *Service) GetByAssignment(ctx context.Context, assignmentID string) (payment.Transaction, error) {
	if err := s.check(ctx); err != nil {
		return payment.Transaction{}, err
	}
	return s.payments.GetByAssignment(ctx, strings.TrimSpace(assignmentID))
}

// ListTransactions returns the payments received by an account, newest first.
func (s *Service) ListTransactions(ctx context.Context, recipientID string) ([]payment.Transaction, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.payments.ListByRecipient(ctx, strings.TrimSpace(recipientID))
}

// GetBalance asks the wallet provider for the configured asset balance.
func (s *Service) GetBalance(ctx context.Context, walletData string) (decimal.Decimal, error) {
	if err := s.check(ctx); err != nil {
		return decimal.Zero, err
	}
	if strings.TrimSpace(walletData) == "" {
		return decimal.Zero, payment.ErrWalletNotConfigured
	}
	if s.wallet == nil {
		return decimal.Zero, domain.Invalid("wallet provider is not configured")
	}
	return s.wallet.GetBalance(ctx, walletData, s.cfg.Asset)
}
