package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/money"
	"viberate/internal/domain/payment"
	"viberate/internal/errs"
	"viberate/internal/ports"
	"viberate/internal/usecase/besteffort"
)

// ProcessPayment sends a pending transaction through the wallet provider.
//
// A transfer failure (including an unresolvable sender wallet) does not
// return an error: the transaction comes back failed with its error message
// set and retry count incremented, and payment.failed is audited. An error is
// returned only when the transaction cannot be processed at all.
func (s *Service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (payment.Transaction, error) {
	if err := s.check(ctx); err != nil {
		return payment.Transaction{}, err
	}

	tx, err := s.payments.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		return payment.Transaction{}, err
	}
	if err := tx.CheckProcessable(); err != nil {
		return payment.Transaction{}, err
	}
	logCtx := s.logCtx(ctx, tx)

	processedAt := s.now()
	ok, err := s.payments.UpdateProgress(ctx, tx.ID, []payment.Status{payment.StatusPending}, payment.Progress{
		Status:      payment.StatusProcessing,
		ProcessedAt: &processedAt,
	})
	if err != nil {
		return payment.Transaction{}, err
	}
	if !ok {
		return payment.Transaction{}, s.raced(ctx, tx.ID, "process")
	}
	s.record(ctx, audit.ActionPaymentInitiated, input.ActorID, tx, true, "", map[string]any{
		"amount_usdc": money.Format(tx.AmountUSDC, money.USDCPlaces),
		"to_address":  tx.ToAddress,
		"network":     tx.Network,
	})

	senderData := strings.TrimSpace(input.SenderWalletData)
	if senderData == "" {
		senderData = strings.TrimSpace(s.cfg.PlatformWalletData)
	}

	var receipt ports.TransferReceipt
	switch {
	case senderData == "":
		err = payment.ErrWalletNotConfigured
	case s.wallet == nil:
		err = domain.NewIntegrationError("wallet", "transfer", errors.New("wallet provider is not configured"))
	default:
		err = besteffort.Run(ctx, "wallet transfer", func(ctx context.Context) error {
			var transferErr error
			receipt, transferErr = s.wallet.Transfer(ctx, ports.TransferRequest{
				WalletSecret: senderData,
				ToAddress:    tx.ToAddress,
				Amount:       tx.AmountUSDC,
				Asset:        s.cfg.Asset,
				Gasless:      true,
			})
			return transferErr
		})
	}
	if err != nil {
		return s.fail(ctx, input.ActorID, tx, err)
	}

	return s.complete(ctx, logCtx, input.ActorID, tx, receipt)
}

func (s *Service) complete(ctx context.Context, logCtx context.Context, actorID string, tx payment.Transaction, receipt ports.TransferReceipt) (payment.Transaction, error) {
	completedAt := s.now()
	progress := payment.Progress{
		Status:          payment.StatusCompleted,
		TransactionHash: &receipt.TxHash,
		CompletedAt:     &completedAt,
		GasUsed:         receipt.GasUsed,
		GasPriceGwei:    receipt.GasPriceGwei,
	}
	if from := strings.TrimSpace(receipt.FromAddress); from != "" {
		progress.FromAddress = &from
	}

	ok, err := s.payments.UpdateProgress(ctx, tx.ID, []payment.Status{payment.StatusProcessing}, progress)
	if err != nil || !ok {
		// Funds moved but the record could not be closed; surface loudly.
		if err == nil {
			err = s.raced(ctx, tx.ID, "complete")
		}
		logging.Error(logCtx, "record completed transfer failed",
			slog.String("tx_hash", receipt.TxHash),
			slog.Any("err", errs.Loggable(err)),
		)
		return payment.Transaction{}, err
	}

	s.record(ctx, audit.ActionPaymentCompleted, actorID, tx, true, "", map[string]any{
		"amount_usdc":      money.Format(tx.AmountUSDC, money.USDCPlaces),
		"transaction_hash": receipt.TxHash,
		"to_address":       tx.ToAddress,
	})
	s.publish(ctx, "payment.completed", actorID, tx, map[string]any{"transaction_hash": receipt.TxHash})
	logging.Info(logCtx, "payment completed", slog.String("tx_hash", receipt.TxHash))

	return s.payments.GetTransaction(ctx, tx.ID)
}

func (s *Service) fail(ctx context.Context, actorID string, tx payment.Transaction, cause error) (payment.Transaction, error) {
	message := cause.Error()
	ok, err := s.payments.UpdateProgress(ctx, tx.ID, []payment.Status{payment.StatusProcessing}, payment.Progress{
		Status:         payment.StatusFailed,
		ErrorMessage:   &message,
		IncrementRetry: true,
	})
	if err != nil {
		return payment.Transaction{}, err
	}
	if !ok {
		return payment.Transaction{}, s.raced(ctx, tx.ID, "fail")
	}

	s.record(ctx, audit.ActionPaymentFailed, actorID, tx, false, message, map[string]any{
		"amount_usdc": money.Format(tx.AmountUSDC, money.USDCPlaces),
		"retry_count": tx.RetryCount + 1,
	})
	s.publish(ctx, "payment.failed", actorID, tx, map[string]any{"error": message})
	logging.Warn(s.logCtx(ctx, tx), "payment failed", slog.Any("err", errs.Loggable(cause)))

	return s.payments.GetTransaction(ctx, tx.ID)
}

func (s *Service) record(ctx context.Context, action audit.Action, actorID string, tx payment.Transaction, success bool, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["assignment_id"] = tx.AssignmentID
	besteffort.Record(ctx, s.audit, audit.Record{
		Action:       action,
		ActorID:      actorID,
		ResourceType: audit.ResourcePayment,
		ResourceID:   tx.ID,
		Details:      details,
		Success:      success,
		ErrorMessage: message,
	})
}

func (s *Service) publish(ctx context.Context, name string, actorID string, tx payment.Transaction, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["assignment_id"] = tx.AssignmentID
	payload["amount_usdc"] = money.Format(tx.AmountUSDC, money.USDCPlaces)
	besteffort.Publish(ctx, s.events, ports.DomainEvent{
		Name:       name,
		ResourceID: tx.ID,
		ActorID:    actorID,
		OccurredAt: s.now(),
		Payload:    payload,
	})
}
