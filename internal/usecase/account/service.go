// Package account registers marketplace accounts and manages their wallets.
package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"viberate/internal/bootstrap/logging"
	domainaccount "viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/payment"
	"viberate/internal/errs"
	"viberate/internal/ports"
	"viberate/internal/usecase/besteffort"
)

const component = "usecase.account"

const DefaultBalanceTTL = 5 * time.Minute

type Config struct {
	Network    string
	Asset      string
	BalanceTTL time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Network) == "" {
		c.Network = payment.DefaultNetwork
	}
	if strings.TrimSpace(c.Asset) == "" {
		c.Asset = payment.DefaultAsset
	}
	if c.BalanceTTL <= 0 {
		c.BalanceTTL = DefaultBalanceTTL
	}
	return c
}

type Service struct {
	accounts ports.AccountRepository
	wallet   ports.WalletProvider
	cache    ports.Cache
	audit    ports.AuditRecorder
	cfg      Config
	now      func() time.Time
	newID    func() string
}

func NewService(accounts ports.AccountRepository, wallet ports.WalletProvider, cache ports.Cache, audit ports.AuditRecorder, cfg Config) *Service {
	return &Service{
		accounts: accounts,
		wallet:   wallet,
		cache:    cache,
		audit:    audit,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

type RegisterInput struct {
	Username      string
	Role          string
	WalletAddress string
}

type ConnectWalletInput struct {
	ActorID string
	Address string
	// WalletData is the provider secret when the wallet is custodial.
	WalletData string
}

type ProvisionWalletInput struct {
	ActorID string
	Network string
}

// Balance is a wallet balance reading. Stale is set when the provider could
// not be reached and an older reading is returned instead.
type Balance struct {
	AccountID string    `json:"account_id"`
	Address   string    `json:"address"`
	Asset     string    `json:"asset"`
	Amount    string    `json:"amount"`
	FetchedAt time.Time `json:"fetched_at"`
	Cached    bool      `json:"cached"`
	Stale     bool      `json:"stale"`
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.accounts == nil {
		return errors.New("account repository is required")
	}
	return nil
}

func (s *Service) logCtx(ctx context.Context, accountID string) context.Context {
	return logging.WithAttrs(ctx,
		slog.String("component", component),
		slog.String("account_id", accountID),
	)
}

func (s *Service) GetAccount(ctx context.Context, id string) (domainaccount.Account, error) {
	if err := s.check(ctx); err != nil {
		return domainaccount.Account{}, err
	}
	return s.accounts.GetAccount(ctx, strings.TrimSpace(id))
}

func (s *Service) record(ctx context.Context, action audit.Action, accountID string, details map[string]any) {
	besteffort.Record(ctx, s.audit, audit.Record{
		Action:       action,
		ActorID:      accountID,
		ResourceType: audit.ResourceAccount,
		ResourceID:   accountID,
		Details:      details,
		Success:      true,
	})
}
