package httpapi

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"viberate/internal/usecase/account"
)

type accountOutput struct {
	Body AccountResponse `json:"body"`
}

func registerAccounts(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/accounts/me",
		Summary:     "Get the caller's account",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*accountOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.Accounts.GetAccount(ctx, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &accountOutput{Body: NewAccountResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "connect-wallet",
		Method:      http.MethodPut,
		Path:        "/accounts/me/wallet",
		Summary:     "Connect or replace the caller's wallet address",
		Errors:      commonErrors,
	}, func(ctx context.Context, input *struct {
		Body ConnectWalletRequest `json:"body"`
	}) (*accountOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.Accounts.ConnectWallet(ctx, account.ConnectWalletInput{ActorID: actorID, Address: input.Body.Address})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &accountOutput{Body: NewAccountResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "disconnect-wallet",
		Method:      http.MethodDelete,
		Path:        "/accounts/me/wallet",
		Summary:     "Remove the caller's wallet",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*accountOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.Accounts.DisconnectWallet(ctx, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &accountOutput{Body: NewAccountResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-balance",
		Method:      http.MethodGet,
		Path:        "/accounts/me/balance",
		Summary:     "USDC balance of the caller's wallet",
		Description: "Served from cache when fresh; a stale reading is returned when the provider is unreachable.",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body BalanceResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := svc.Accounts.Balance(ctx, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body BalanceResponse `json:"body"`
		}{Body: NewBalanceResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-transfers",
		Method:      http.MethodGet,
		Path:        "/accounts/me/transfers",
		Summary:     "On-chain transfer history of the caller's wallet",
		Errors:      commonErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []TransferResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := svc.Accounts.TransferHistory(ctx, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &struct {
			Body []TransferResponse `json:"body"`
		}{Body: NewTransferResponses(items)}, nil
	})
}
