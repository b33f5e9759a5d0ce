package assignment

import (
	"context"
	"errors"
	"log/slog"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/account"
	"viberate/internal/domain/payment"
	"viberate/internal/domain/task"
	paymentuc "viberate/internal/usecase/payment"
)

// SettlePayment finishes paying an approved assignment whose settlement never
// completed: no transaction was recorded (the annotator had no wallet, or the
// process stopped after the approval committed) or the transaction is still
// pending. A failed transaction goes through RetryPayment instead. A
// processing one may already have moved funds and must be reconciled against
// the provider's transfer history first.
func (s *Service) SettlePayment(ctx context.Context, input SettleInput) (payment.Transaction, error) {
	if err := s.check(ctx); err != nil {
		return payment.Transaction{}, err
	}
	if s.payer == nil {
		return payment.Transaction{}, errors.New("payments are not configured")
	}

	a, err := s.assignments.GetAssignment(ctx, input.AssignmentID)
	if err != nil {
		return payment.Transaction{}, err
	}
	actor, err := s.accounts.GetAccount(ctx, input.ActorID)
	if err != nil {
		return payment.Transaction{}, err
	}
	if err := s.authorize(ctx, actor, a, account.RoleResearcher, task.OpApprove); err != nil {
		return payment.Transaction{}, err
	}
	if a.Status != task.AssignmentApproved {
		return payment.Transaction{}, &domain.InvalidStateError{
			Entity:    "assignment",
			ID:        a.ID,
			Status:    string(a.Status),
			Operation: "settle payment",
		}
	}

	amount := input.Amount
	existing, err := s.payer.GetByAssignment(ctx, a.ID)
	resumed := err == nil
	switch {
	case err == nil:
		if existing.Status != payment.StatusPending {
			return payment.Transaction{}, &domain.InvalidStateError{
				Entity:    "payment",
				ID:        existing.ID,
				Status:    string(existing.Status),
				Operation: "settle",
			}
		}
		amount = existing.AmountUSDC
	case errors.Is(err, domain.ErrNotFound):
		if err := payment.ValidateAmount(amount, s.cfg.MaxAmount); err != nil {
			return payment.Transaction{}, err
		}
	default:
		return payment.Transaction{}, err
	}

	logging.Info(s.logCtx(ctx, a.ID), "settling approved assignment", slog.Bool("resumed", resumed))
	return s.payer.CreateAndProcess(ctx, paymentuc.CreatePaymentInput{
		Assignment:       a,
		Amount:           amount,
		ApproverID:       actor.ID,
		SenderWalletData: input.SenderWalletData,
	})
}
