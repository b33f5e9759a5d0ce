// Package wallet adapts a custodial wallet gateway to ports.WalletProvider.
package wallet

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
	"viberate/internal/infrastructure/httpclient"
	"viberate/internal/infrastructure/resilience"
	"viberate/internal/ports"
)

const service = "wallet"

type Options struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// Provider calls the wallet gateway. The gateway holds custody and performs
// on-chain transfers; wallet data is passed through opaquely.
type Provider struct {
	client *httpclient.Client
}

var _ ports.WalletProvider = (*Provider)(nil)

func NewProvider(opts Options) *Provider {
	apiKey := strings.TrimSpace(opts.APIKey)
	client := httpclient.New(opts.BaseURL, opts.Timeout, func(r *http.Request) {
		if apiKey != "" {
			r.Header.Set("Authorization", "Bearer "+apiKey)
		}
	})
	client.SetBreaker(resilience.NewBreaker(opts.BreakerFailures, opts.BreakerCooldown))
	return &Provider{client: client}
}

type createWalletResponse struct {
	WalletID   string `json:"wallet_id"`
	Address    string `json:"address"`
	WalletData string `json:"wallet_data"`
	Network    string `json:"network"`
}

func (p *Provider) CreateWallet(ctx context.Context, network string) (ports.ProvisionedWallet, error) {
	var resp createWalletResponse
	if err := p.client.Do(ctx, http.MethodPost, "/wallets", map[string]string{"network": network}, &resp); err != nil {
		return ports.ProvisionedWallet{}, domain.NewIntegrationError(service, "create wallet", err)
	}
	if resp.Address == "" || resp.WalletData == "" {
		return ports.ProvisionedWallet{}, domain.NewIntegrationError(service, "create wallet", errors.New("gateway returned an incomplete wallet"))
	}
	if resp.Network == "" {
		resp.Network = network
	}
	return ports.ProvisionedWallet{
		WalletID: resp.WalletID,
		Address:  resp.Address,
		Secret:   resp.WalletData,
		Network:  resp.Network,
	}, nil
}

type balanceResponse struct {
	Asset   string          `json:"asset"`
	Balance decimal.Decimal `json:"balance"`
}

func (p *Provider) GetBalance(ctx context.Context, walletSecret string, asset string) (decimal.Decimal, error) {
	var resp balanceResponse
	req := map[string]string{"wallet_data": walletSecret, "asset": asset}
	if err := p.client.Do(ctx, http.MethodPost, "/balances", req, &resp); err != nil {
		return decimal.Zero, domain.NewIntegrationError(service, "get balance", err)
	}
	return resp.Balance, nil
}

type transferRequest struct {
	WalletData string          `json:"wallet_data"`
	ToAddress  string          `json:"to_address"`
	Amount     decimal.Decimal `json:"amount"`
	Asset      string          `json:"asset"`
	Gasless    bool            `json:"gasless"`
}

type transferResponse struct {
	TransactionHash string           `json:"transaction_hash"`
	FromAddress     string           `json:"from_address"`
	Status          string           `json:"status"`
	GasUsed         *int64           `json:"gas_used,omitempty"`
	GasPriceGwei    *decimal.Decimal `json:"gas_price_gwei,omitempty"`
}

// Transfer blocks until the gateway reports the transfer as broadcast.
func (p *Provider) Transfer(ctx context.Context, req ports.TransferRequest) (ports.TransferReceipt, error) {
	var resp transferResponse
	body := transferRequest{
		WalletData: req.WalletSecret,
		ToAddress:  req.ToAddress,
		Amount:     req.Amount,
		Asset:      req.Asset,
		Gasless:    req.Gasless,
	}
	if err := p.client.Do(ctx, http.MethodPost, "/transfers", body, &resp); err != nil {
		return ports.TransferReceipt{}, domain.NewIntegrationError(service, "transfer", err)
	}
	if strings.EqualFold(resp.Status, "failed") {
		return ports.TransferReceipt{}, domain.NewIntegrationError(service, "transfer", errors.New("gateway reported transfer failed"))
	}
	if strings.TrimSpace(resp.TransactionHash) == "" {
		return ports.TransferReceipt{}, domain.NewIntegrationError(service, "transfer", errors.New("gateway returned no transaction hash"))
	}
	return ports.TransferReceipt{
		TxHash:       resp.TransactionHash,
		FromAddress:  resp.FromAddress,
		GasUsed:      resp.GasUsed,
		GasPriceGwei: resp.GasPriceGwei,
	}, nil
}

type transferRecord struct {
	TransactionHash string          `json:"transaction_hash"`
	FromAddress     string          `json:"from_address"`
	ToAddress       string          `json:"to_address"`
	Amount          decimal.Decimal `json:"amount"`
	Asset           string          `json:"asset"`
	Status          string          `json:"status"`
}

func (p *Provider) ListTransfers(ctx context.Context, walletSecret string) ([]ports.TransferRecord, error) {
	var resp struct {
		Transfers []transferRecord `json:"transfers"`
	}
	if err := p.client.Do(ctx, http.MethodPost, "/transfers/list", map[string]string{"wallet_data": walletSecret}, &resp); err != nil {
		return nil, domain.NewIntegrationError(service, "list transfers", err)
	}

	out := make([]ports.TransferRecord, 0, len(resp.Transfers))
	for _, rec := range resp.Transfers {
		out = append(out, ports.TransferRecord{
			TxHash: rec.TransactionHash,
			From:   rec.FromAddress,
			To:     rec.ToAddress,
			Amount: rec.Amount,
			Asset:  rec.Asset,
			Status: rec.Status,
		})
	}
	return out, nil
}
