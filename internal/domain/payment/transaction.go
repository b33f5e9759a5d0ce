package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/domain/money"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusRefunded is set only by out-of-band administrative action.
	StatusRefunded Status = "refunded"
)

const (
	DefaultNetwork    = "base-sepolia"
	DefaultAsset      = "usdc"
	DefaultMaxRetries = 3
	// PendingSender marks a sender that is resolved at processing time.
	PendingSender = "PENDING"
)

var (
	DefaultFeeRate   = decimal.RequireFromString("0.10")
	DefaultMaxAmount = decimal.NewFromInt(10000)
)

type Transaction struct {
	ID              string
	AssignmentID    string
	RecipientID     string
	AmountUSDC      decimal.Decimal
	PlatformFeeUSDC decimal.Decimal
	Network         string
	TransactionHash *string
	FromAddress     string
	ToAddress       string
	Status          Status
	CreatedAt       time.Time
	ProcessedAt     *time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
	RetryCount      int
	GasUsed         *int64
	GasPriceGwei    *decimal.Decimal
	Metadata        map[string]any
}

// Progress is the restricted set of fields that may change after creation.
type Progress struct {
	Status          Status
	TransactionHash *string
	FromAddress     *string
	ProcessedAt     *time.Time
	CompletedAt     *time.Time
	ErrorMessage    *string
	IncrementRetry  bool
	GasUsed         *int64
	GasPriceGwei    *decimal.Decimal
	Metadata        map[string]any
}

// Fee is rate×amount at USDC scale.
func Fee(amount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return money.USDC(amount.Mul(rate))
}

// ValidateAmount requires 0 < amount <= limit at USDC scale. A zero limit
// disables the upper bound.
func ValidateAmount(amount decimal.Decimal, limit decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount)
	}
	if !amount.Equal(money.USDC(amount)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, money.USDCPlaces)
	}
	if limit.IsPositive() && amount.GreaterThan(limit) {
		return fmt.Errorf("%w: %s exceeds maximum %s", ErrInvalidAmount, amount, limit)
	}
	return nil
}

// SenderAddress is the approver's address or the pending placeholder.
func SenderAddress(approverAddress string) string {
	if trimmed := strings.TrimSpace(approverAddress); trimmed != "" {
		return trimmed
	}
	return PendingSender
}

// CheckProcessable allows processing only from pending.
func (t Transaction) CheckProcessable() error {
	if t.Status != StatusPending {
		return invalidState(t.ID, t.Status, "process")
	}
	return nil
}

// CheckRetryable allows a retry only from failed with retries left.
func (t Transaction) CheckRetryable(maxRetries int) error {
	if t.Status != StatusFailed {
		return invalidState(t.ID, t.Status, "retry")
	}
	if t.RetryCount >= maxRetries {
		return fmt.Errorf("%w: payment %s failed %d times", ErrRetryLimitExceeded, t.ID, t.RetryCount)
	}
	return nil
}

func (t Transaction) Failed() bool {
	return t.Status == StatusFailed
}

// Summary is the payment view attached to an approval.
type Summary struct {
	TransactionID   string          `json:"transaction_id"`
	AmountUSDC      decimal.Decimal `json:"amount_usdc"`
	Status          Status          `json:"status"`
	TransactionHash *string         `json:"transaction_hash,omitempty"`
	Error           string          `json:"error,omitempty"`
}

func (t Transaction) Summary() Summary {
	return Summary{
		TransactionID:   t.ID,
		AmountUSDC:      t.AmountUSDC,
		Status:          t.Status,
		TransactionHash: t.TransactionHash,
		Error:           t.ErrorMessage,
	}
}
