package payment

import (
	"fmt"

	"viberate/internal/domain"
)

var (
	ErrNoWallet            = fmt.Errorf("%w: recipient has no wallet address", domain.ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: invalid payment amount", domain.ErrValidation)
	ErrWalletNotConfigured = fmt.Errorf("%w: no sender wallet configured", domain.ErrValidation)
	ErrRetryLimitExceeded  = fmt.Errorf("%w: retry limit exceeded", domain.ErrConflict)
)

func invalidState(id string, status Status, op string) error {
	return &domain.InvalidStateError{
		Entity:    "payment",
		ID:        id,
		Status:    string(status),
		Operation: op,
	}
}
