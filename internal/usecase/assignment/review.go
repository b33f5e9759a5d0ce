package assignment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/money"
	"viberate/internal/domain/payment"
	"viberate/internal/domain/task"
	"viberate/internal/errs"
	"viberate/internal/usecase/besteffort"
	paymentuc "viberate/internal/usecase/payment"
)

// Approve accepts submitted work. Inside one transaction the assignment and
// task complete, the annotator's count and rating advance and the project is
// recounted. Payment and the labeling tool push run after commit; their
// failure is reported on the result and never undoes the approval.
func (s *Service) Approve(ctx context.Context, input ApproveInput) (ApprovalResult, error) {
	if err := s.check(ctx); err != nil {
		return ApprovalResult{}, err
	}
	if err := payment.ValidateAmount(input.PaymentAmount, s.cfg.MaxAmount); err != nil {
		return ApprovalResult{}, err
	}
	if err := account.ValidateQualityScore(input.QualityScore); err != nil {
		return ApprovalResult{}, err
	}
	feedback := strings.TrimSpace(input.Feedback)

	_, approved, err := s.apply(ctx, step{
		op:           task.OpApprove,
		actorID:      input.ActorID,
		assignmentID: input.AssignmentID,
		patch: func(p *task.AssignmentPatch) {
			p.QualityScore = input.QualityScore
			if feedback != "" {
				p.Feedback = &feedback
			}
		},
		then: func(txCtx context.Context, before task.Assignment) error {
			if err := s.recordCompletion(txCtx, before.AnnotatorID, input.QualityScore); err != nil {
				return err
			}
			if s.counts == nil {
				return nil
			}
			_, err := s.counts.RecomputeTaskCounts(txCtx, before.ProjectID)
			return err
		},
	})

	details := map[string]any{"payment_amount": money.Format(input.PaymentAmount, money.USDCPlaces)}
	if input.QualityScore != nil {
		details["quality_score"] = input.QualityScore.String()
	}
	s.record(ctx, audit.ActionTaskApprove, input.ActorID, audit.ResourceAssignment, input.AssignmentID, details, err)
	if err != nil {
		return ApprovalResult{}, err
	}

	result := ApprovalResult{Assignment: approved}
	s.settle(ctx, input, approved, &result)
	s.push(ctx, approved.ID, input.ActorID)
	s.publish(ctx, "assignment.approved", input.ActorID, approved, map[string]any{
		"payment_amount": money.Format(input.PaymentAmount, money.USDCPlaces),
	})
	return result, nil
}

// recordCompletion folds one more completed task into the annotator's
// counters, guarded on the count it read.
func (s *Service) recordCompletion(ctx context.Context, annotatorID string, score *decimal.Decimal) error {
	annotator, err := s.accounts.GetAccount(ctx, annotatorID)
	if err != nil {
		return err
	}
	next := account.NextCompletion(annotator.Rating, annotator.TasksCompleted, score)
	ok, err := s.accounts.RecordCompletion(ctx, annotator.ID, annotator.TasksCompleted, next)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Wrapf(domain.ErrConflict, "annotator %s completion count changed", annotator.ID)
	}
	return nil
}

func (s *Service) settle(ctx context.Context, input ApproveInput, approved task.Assignment, result *ApprovalResult) {
	if s.payer == nil {
		result.PaymentError = "payments are not configured"
		return
	}
	var tx payment.Transaction
	err := besteffort.Run(ctx, "settle approval", func(ctx context.Context) error {
		var payErr error
		tx, payErr = s.payer.CreateAndProcess(ctx, paymentuc.CreatePaymentInput{
			Assignment: approved,
			Amount:     input.PaymentAmount,
			ApproverID: input.ActorID,
		})
		return payErr
	})
	if err != nil {
		result.PaymentError = err.Error()
		return
	}
	summary := tx.Summary()
	result.Payment = &summary
	if tx.Failed() {
		result.PaymentError = tx.ErrorMessage
		logging.Warn(s.logCtx(ctx, approved.ID), "approval payment failed",
			slog.String("transaction_id", tx.ID),
			slog.Int("retry_count", tx.RetryCount),
		)
	}
}

// Reject returns the task to the pool. The rejected assignment is terminal.
func (s *Service) Reject(ctx context.Context, input RejectInput) (task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return task.Assignment{}, err
	}
	reason := strings.TrimSpace(input.Reason)

	_, out, err := s.apply(ctx, step{
		op:           task.OpReject,
		actorID:      input.ActorID,
		assignmentID: input.AssignmentID,
		patch: func(p *task.AssignmentPatch) {
			p.Feedback = &reason
		},
	})
	s.record(ctx, audit.ActionTaskReject, input.ActorID, audit.ResourceAssignment, input.AssignmentID, map[string]any{"reason": reason}, err)
	if err != nil {
		return task.Assignment{}, err
	}
	s.publish(ctx, "assignment.rejected", input.ActorID, out, map[string]any{"reason": reason})
	return out, nil
}
