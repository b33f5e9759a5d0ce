package httpapi

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"viberate/internal/domain"
	"viberate/internal/domain/payment"
	paymentuc "viberate/internal/usecase/payment"
)

type paymentOutput struct {
	Body PaymentResponse `json:"body"`
}

func registerPayments(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "my-payments",
		Method:      http.MethodGet,
		Path:        "/payments/mine",
		Summary:     "List payments received by the caller",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []PaymentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := svc.Payments.ListTransactions(ctx, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		out := make([]PaymentResponse, 0, len(items))
		for _, tx := range items {
			out = append(out, NewPaymentResponse(tx))
		}
		return &struct {
			Body []PaymentResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-payment",
		Method:      http.MethodGet,
		Path:        "/payments/{payment_id}",
		Summary:     "Get a payment transaction",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		PaymentID string `path:"payment_id"`
	}) (*paymentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tx, err := svc.Payments.GetTransaction(ctx, input.PaymentID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		if tx.RecipientID != actorID {
			if err := requireProjectOwner(ctx, svc, tx, actorID); err != nil {
				return nil, handleError(ctx, err)
			}
		}
		return &paymentOutput{Body: NewPaymentResponse(tx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retry-payment",
		Method:      http.MethodPost,
		Path:        "/payments/{payment_id}/retry",
		Summary:     "Retry a failed payment",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		PaymentID string               `path:"payment_id"`
		Body      *RetryPaymentRequest `json:"body" required:"false"`
	}) (*paymentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tx, err := svc.Payments.GetTransaction(ctx, input.PaymentID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		if err := requireProjectOwner(ctx, svc, tx, actorID); err != nil {
			return nil, handleError(ctx, err)
		}
		retry := paymentuc.RetryPaymentInput{TransactionID: tx.ID, ActorID: actorID}
		if input.Body != nil {
			retry.SenderWalletData = input.Body.SenderWalletData
		}
		tx, err = svc.Payments.RetryPayment(ctx, retry)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &paymentOutput{Body: NewPaymentResponse(tx)}, nil
	})
}

// requireProjectOwner passes when actorID owns the project the payment was
// made for.
func requireProjectOwner(ctx context.Context, svc Services, tx payment.Transaction, actorID string) error {
	projectID, _ := tx.Metadata["project_id"].(string)
	if projectID == "" {
		return domain.Forbidden(actorID, "access payment "+tx.ID)
	}
	p, err := svc.Budgets.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.OwnerID != actorID {
		return domain.Forbidden(actorID, "access payment "+tx.ID)
	}
	return nil
}
