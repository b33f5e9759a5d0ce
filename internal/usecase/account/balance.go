package account

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	domainaccount "viberate/internal/domain/account"
	"viberate/internal/domain/payment"
	"viberate/internal/errs"
	"viberate/internal/usecase/besteffort"
)

type cachedBalance struct {
	Amount    decimal.Decimal `json:"amount"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func balanceKey(accountID string) string {
	return "balance:" + accountID
}

// Balance reads the account's wallet balance. A reading younger than the
// balance TTL is served from the cache. Refreshing is best-effort: when the
// provider fails, the last reading is returned marked stale.
func (s *Service) Balance(ctx context.Context, accountID string) (Balance, error) {
	current, err := s.custodial(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	out := Balance{AccountID: current.ID, Address: current.WalletAddress, Asset: s.cfg.Asset}

	last, haveLast := s.cachedBalance(ctx, current.ID)
	if haveLast && s.now().Sub(last.FetchedAt) < s.cfg.BalanceTTL {
		out.Amount = last.Amount.String()
		out.FetchedAt = last.FetchedAt
		out.Cached = true
		return out, nil
	}

	var amount decimal.Decimal
	refreshErr := besteffort.Run(ctx, "refresh balance", func(ctx context.Context) error {
		var err error
		amount, err = s.wallet.GetBalance(ctx, current.WalletData, s.cfg.Asset)
		return err
	})
	if refreshErr != nil {
		if !haveLast {
			return Balance{}, domain.NewIntegrationError("wallet", "get balance", refreshErr)
		}
		out.Amount = last.Amount.String()
		out.FetchedAt = last.FetchedAt
		out.Cached = true
		out.Stale = true
		return out, nil
	}

	reading := cachedBalance{Amount: amount, FetchedAt: s.now()}
	s.storeBalance(ctx, current.ID, reading)
	out.Amount = amount.String()
	out.FetchedAt = reading.FetchedAt
	return out, nil
}

// custodial loads an account whose wallet the provider can sign for.
func (s *Service) custodial(ctx context.Context, accountID string) (domainaccount.Account, error) {
	if err := s.check(ctx); err != nil {
		return domainaccount.Account{}, err
	}
	current, err := s.accounts.GetAccount(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return domainaccount.Account{}, err
	}
	if strings.TrimSpace(current.WalletData) == "" {
		return domainaccount.Account{}, payment.ErrWalletNotConfigured
	}
	if s.wallet == nil {
		return domainaccount.Account{}, domain.NewIntegrationError("wallet", "get balance", errors.New("wallet provider is not configured"))
	}
	return current, nil
}

func (s *Service) cachedBalance(ctx context.Context, accountID string) (cachedBalance, bool) {
	if s.cache == nil {
		return cachedBalance{}, false
	}
	raw, found, err := s.cache.Get(ctx, balanceKey(accountID))
	if err != nil {
		logging.Warn(s.logCtx(ctx, accountID), "read cached balance failed", slog.Any("err", errs.Loggable(err)))
		return cachedBalance{}, false
	}
	if !found {
		return cachedBalance{}, false
	}
	var out cachedBalance
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return cachedBalance{}, false
	}
	return out, true
}

// storeBalance keeps the reading without expiry so it can back a stale
// answer; freshness is judged by FetchedAt.
func (s *Service) storeBalance(ctx context.Context, accountID string, reading cachedBalance) {
	if s.cache == nil {
		return
	}
	_ = besteffort.Run(ctx, "cache balance", func(ctx context.Context) error {
		b, err := json.Marshal(reading)
		if err != nil {
			return errs.Wrap(err, "marshal balance")
		}
		return s.cache.Set(ctx, balanceKey(accountID), string(b), 0)
	})
}

func (s *Service) forgetBalance(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	_ = besteffort.Run(ctx, "forget balance", func(ctx context.Context) error {
		return s.cache.Delete(ctx, balanceKey(accountID))
	})
}
