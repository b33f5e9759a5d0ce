package account

import (
	"context"
	"errors"
	"strings"

	"viberate/internal/domain"
	domainaccount "viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/ports"
)

// ConnectWallet sets the account's payout address. Replacing an existing
// address is audited as an update.
func (s *Service) ConnectWallet(ctx context.Context, input ConnectWalletInput) (domainaccount.Account, error) {
	if err := s.check(ctx); err != nil {
		return domainaccount.Account{}, err
	}
	address := strings.TrimSpace(input.Address)
	if err := domainaccount.ValidateAddress(address); err != nil {
		return domainaccount.Account{}, err
	}
	current, err := s.accounts.GetAccount(ctx, input.ActorID)
	if err != nil {
		return domainaccount.Account{}, err
	}

	if err := s.accounts.SetWallet(ctx, current.ID, domainaccount.Wallet{
		Address: address,
		Data:    strings.TrimSpace(input.WalletData),
	}); err != nil {
		return domainaccount.Account{}, err
	}
	s.forgetBalance(ctx, current.ID)

	action := audit.ActionWalletConnected
	details := map[string]any{"address": address}
	if current.HasWallet() {
		action = audit.ActionWalletUpdated
		details["previous_address"] = current.WalletAddress
	}
	s.record(ctx, action, current.ID, details)
	return s.accounts.GetAccount(ctx, current.ID)
}

// ProvisionWallet creates a custodial wallet with the provider and connects
// it to the account.
func (s *Service) ProvisionWallet(ctx context.Context, input ProvisionWalletInput) (domainaccount.Account, error) {
	if err := s.check(ctx); err != nil {
		return domainaccount.Account{}, err
	}
	if s.wallet == nil {
		return domainaccount.Account{}, domain.NewIntegrationError("wallet", "create wallet", errors.New("wallet provider is not configured"))
	}
	current, err := s.accounts.GetAccount(ctx, input.ActorID)
	if err != nil {
		return domainaccount.Account{}, err
	}
	network := strings.TrimSpace(input.Network)
	if network == "" {
		network = s.cfg.Network
	}

	provisioned, err := s.wallet.CreateWallet(ctx, network)
	if err != nil {
		return domainaccount.Account{}, domain.NewIntegrationError("wallet", "create wallet", err)
	}
	if err := s.accounts.SetWallet(ctx, current.ID, domainaccount.Wallet{
		Address: provisioned.Address,
		ID:      provisioned.WalletID,
		Data:    provisioned.Secret,
	}); err != nil {
		return domainaccount.Account{}, err
	}
	s.forgetBalance(ctx, current.ID)

	s.record(ctx, audit.ActionWalletConnected, current.ID, map[string]any{
		"address":     provisioned.Address,
		"wallet_id":   provisioned.WalletID,
		"network":     network,
		"provisioned": true,
	})
	return s.accounts.GetAccount(ctx, current.ID)
}

func (s *Service) DisconnectWallet(ctx context.Context, accountID string) (domainaccount.Account, error) {
	if err := s.check(ctx); err != nil {
		return domainaccount.Account{}, err
	}
	current, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return domainaccount.Account{}, err
	}
	if err := s.accounts.SetWallet(ctx, current.ID, domainaccount.Wallet{}); err != nil {
		return domainaccount.Account{}, err
	}
	s.forgetBalance(ctx, current.ID)

	s.record(ctx, audit.ActionWalletDisconnected, current.ID, map[string]any{"previous_address": current.WalletAddress})
	return s.accounts.GetAccount(ctx, current.ID)
}

// TransferHistory lists the provider's transfers for a custodial wallet.
func (s *Service) TransferHistory(ctx context.Context, accountID string) ([]ports.TransferRecord, error) {
	current, err := s.custodial(ctx, accountID)
	if err != nil {
		return nil, err
	}
	records, err := s.wallet.ListTransfers(ctx, current.WalletData)
	if err != nil {
		return nil, domain.NewIntegrationError("wallet", "list transfers", err)
	}
	return records, nil
}
