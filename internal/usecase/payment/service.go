// Package payment moves USDC to annotators for approved work and keeps the
// audited, retryable record of every attempt.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/payment"
	"viberate/internal/domain/task"
	"viberate/internal/errs"
	"viberate/internal/ports"
)

const component = "usecase.payment"

type Config struct {
	Network    string
	Asset      string
	FeeRate    decimal.Decimal
	MaxAmount  decimal.Decimal
	MaxRetries int
	// PlatformWalletData signs transfers when the caller supplies no sender.
	PlatformWalletData string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Network) == "" {
		c.Network = payment.DefaultNetwork
	}
	if strings.TrimSpace(c.Asset) == "" {
		c.Asset = payment.DefaultAsset
	}
	if !c.FeeRate.IsPositive() {
		c.FeeRate = payment.DefaultFeeRate
	}
	if !c.MaxAmount.IsPositive() {
		c.MaxAmount = payment.DefaultMaxAmount
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = payment.DefaultMaxRetries
	}
	return c
}

type Service struct {
	payments ports.PaymentRepository
	accounts ports.AccountRepository
	wallet   ports.WalletProvider
	audit    ports.AuditRecorder
	events   ports.EventPublisher
	cfg      Config
	now      func() time.Time
	newID    func() string
}

func NewService(payments ports.PaymentRepository, accounts ports.AccountRepository, wallet ports.WalletProvider, audit ports.AuditRecorder, events ports.EventPublisher, cfg Config) *Service {
	return &Service{
		payments: payments,
		accounts: accounts,
		wallet:   wallet,
		audit:    audit,
		events:   events,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

type CreatePaymentInput struct {
	Assignment task.Assignment
	Amount     decimal.Decimal
	ApproverID string
	// SenderWalletData overrides the approver's stored wallet.
	SenderWalletData string
}

type ProcessPaymentInput struct {
	TransactionID string
	// SenderWalletData overrides the configured platform wallet.
	SenderWalletData string
	ActorID          string
}

type RetryPaymentInput = ProcessPaymentInput

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.payments == nil || s.accounts == nil {
		return errors.New("payment and account repositories are required")
	}
	return nil
}

func (s *Service) logCtx(ctx context.Context, tx payment.Transaction) context.Context {
	return logging.WithAttrs(ctx,
		slog.String("component", component),
		slog.String("transaction_id", tx.ID),
		slog.String("assignment_id", tx.AssignmentID),
	)
}

// MaxAmount is the upper bound for a single payment.
func (s *Service) MaxAmount() decimal.Decimal {
	return s.cfg.MaxAmount
}

// raced reports a conditional update that matched no row because another
// writer moved the transaction first.
func (s *Service) raced(ctx context.Context, id string, op string) error {
	status := "unknown"
	if current, err := s.payments.GetTransaction(ctx, id); err == nil {
		status = string(current.Status)
	}
	return &domain.InvalidStateError{Entity: "payment", ID: id, Status: status, Operation: op}
}
