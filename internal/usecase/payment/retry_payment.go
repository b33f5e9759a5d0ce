package payment

import (
	"context"

	"viberate/internal/domain/audit"
	"viberate/internal/domain/payment"
)

// RetryPayment moves a failed transaction back to pending and processes it
// again, as long as it has failed fewer than MaxRetries times.
func (s *Service) RetryPayment(ctx context.Context, input RetryPaymentInput) (payment.Transaction, error) {
	if err := s.check(ctx); err != nil {
		return payment.Transaction{}, err
	}

	tx, err := s.payments.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		return payment.Transaction{}, err
	}
	if err := tx.CheckRetryable(s.cfg.MaxRetries); err != nil {
		return payment.Transaction{}, err
	}

	cleared := ""
	ok, err := s.payments.UpdateProgress(ctx, tx.ID, []payment.Status{payment.StatusFailed}, payment.Progress{
		Status:       payment.StatusPending,
		ErrorMessage: &cleared,
	})
	if err != nil {
		return payment.Transaction{}, err
	}
	if !ok {
		return payment.Transaction{}, s.raced(ctx, tx.ID, "retry")
	}

	s.record(ctx, audit.ActionPaymentRetry, input.ActorID, tx, true, "", map[string]any{
		"previous_error": tx.ErrorMessage,
		"retry_count":    tx.RetryCount,
	})
	return s.ProcessPayment(ctx, input)
}
