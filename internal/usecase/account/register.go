package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"viberate/internal/bootstrap/logging"
	domainaccount "viberate/internal/domain/account"
	"viberate/internal/domain/audit"
)

// Register creates an account with no completed tasks and a zero rating.
func (s *Service) Register(ctx context.Context, input RegisterInput) (domainaccount.Account, error) {
	if err := s.check(ctx); err != nil {
		return domainaccount.Account{}, err
	}
	username := strings.TrimSpace(input.Username)
	if err := domainaccount.ValidateUsername(username); err != nil {
		return domainaccount.Account{}, err
	}
	role, err := domainaccount.ParseRole(input.Role)
	if err != nil {
		return domainaccount.Account{}, err
	}
	address := strings.TrimSpace(input.WalletAddress)
	if address != "" {
		if err := domainaccount.ValidateAddress(address); err != nil {
			return domainaccount.Account{}, err
		}
	}

	now := s.now()
	created, err := s.accounts.CreateAccount(ctx, domainaccount.Account{
		ID:            s.newID(),
		Username:      username,
		Role:          role,
		WalletAddress: address,
		Rating:        decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return domainaccount.Account{}, err
	}

	s.record(ctx, audit.ActionRegister, created.ID, map[string]any{
		"username": created.Username,
		"role":     string(created.Role),
	})
	logging.Info(s.logCtx(ctx, created.ID), "account registered", slog.String("role", string(role)))
	return created, nil
}
