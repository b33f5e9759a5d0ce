package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
	"viberate/internal/ports"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProvider(Options{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second, BreakerFailures: 5, BreakerCooldown: time.Second})
}

func TestProviderTransfer(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfers" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		var body transferRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if !body.Gasless || body.Asset != "usdc" || !body.Amount.Equal(decimal.RequireFromString("10")) {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"transaction_hash":"0xabc","from_address":"0xfrom","status":"completed","gas_used":21000,"gas_price_gwei":"1.5"}`))
	})

	receipt, err := p.Transfer(context.Background(), ports.TransferRequest{
		WalletSecret: "seed",
		ToAddress:    "0xto",
		Amount:       decimal.RequireFromString("10"),
		Asset:        "usdc",
		Gasless:      true,
	})
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if receipt.TxHash != "0xabc" || receipt.FromAddress != "0xfrom" {
		t.Fatalf("Transfer() receipt = %+v", receipt)
	}
	if receipt.GasUsed == nil || *receipt.GasUsed != 21000 {
		t.Fatalf("Transfer() gas used = %v", receipt.GasUsed)
	}
	if receipt.GasPriceGwei == nil || receipt.GasPriceGwei.String() != "1.5" {
		t.Fatalf("Transfer() gas price = %v", receipt.GasPriceGwei)
	}
}

func TestProviderTransferFailureIsIntegrationError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient funds", http.StatusUnprocessableEntity)
	})

	_, err := p.Transfer(context.Background(), ports.TransferRequest{WalletSecret: "seed", ToAddress: "0xto", Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, domain.ErrIntegration) {
		t.Fatalf("Transfer() error = %v, want integration error", err)
	}
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) || integrationErr.Service != "wallet" {
		t.Fatalf("Transfer() error = %#v", err)
	}
}

func TestProviderCreateWalletAndBalance(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wallets":
			_, _ = w.Write([]byte(`{"wallet_id":"w-1","address":"0xnew","wallet_data":"seed-1"}`))
		case "/balances":
			_, _ = w.Write([]byte(`{"asset":"usdc","balance":"42.125000"}`))
		case "/transfers/list":
			_, _ = w.Write([]byte(`{"transfers":[{"transaction_hash":"0x1","from_address":"0xa","to_address":"0xb","amount":"1.5","asset":"usdc","status":"complete"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	w, err := p.CreateWallet(ctx, "base-sepolia")
	if err != nil {
		t.Fatalf("CreateWallet() error = %v", err)
	}
	if w.Address != "0xnew" || w.Secret != "seed-1" || w.Network != "base-sepolia" {
		t.Fatalf("CreateWallet() = %+v", w)
	}

	balance, err := p.GetBalance(ctx, "seed-1", "usdc")
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("42.125")) {
		t.Fatalf("GetBalance() = %s", balance)
	}

	transfers, err := p.ListTransfers(ctx, "seed-1")
	if err != nil {
		t.Fatalf("ListTransfers() error = %v", err)
	}
	if len(transfers) != 1 || transfers[0].TxHash != "0x1" {
		t.Fatalf("ListTransfers() = %+v", transfers)
	}
}
