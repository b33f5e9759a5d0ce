package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"viberate/internal/domain"
)

// FixedPaymentFields may never change once a transaction exists.
var FixedPaymentFields = []string{"AssignmentID", "RecipientID", "AmountUSDC", "PlatformFeeUSDC", "ToAddress", "Network"}

type PaymentTransaction struct {
	ID              string           `gorm:"column:id;type:text;primaryKey"`
	AssignmentID    string           `gorm:"column:assignment_id;type:text;not null;uniqueIndex"`
	RecipientID     string           `gorm:"column:recipient_id;type:text;not null;index"`
	AmountUSDC      decimal.Decimal  `gorm:"column:amount_usdc;type:text;not null"`
	PlatformFeeUSDC decimal.Decimal  `gorm:"column:platform_fee_usdc;type:text;not null"`
	Network         string           `gorm:"column:network;type:text;not null"`
	TransactionHash *string          `gorm:"column:transaction_hash;type:text;uniqueIndex"`
	FromAddress     string           `gorm:"column:from_address;type:text;not null"`
	ToAddress       string           `gorm:"column:to_address;type:text;not null"`
	Status          string           `gorm:"column:status;type:text;not null;index"`
	CreatedAt       time.Time        `gorm:"column:created_at;not null"`
	ProcessedAt     *time.Time       `gorm:"column:processed_at"`
	CompletedAt     *time.Time       `gorm:"column:completed_at"`
	ErrorMessage    string           `gorm:"column:error_message;type:text;not null;default:''"`
	RetryCount      int              `gorm:"column:retry_count;not null;default:0"`
	GasUsed         *int64           `gorm:"column:gas_used"`
	GasPriceGwei    *decimal.Decimal `gorm:"column:gas_price_gwei;type:text"`
	Metadata        datatypes.JSON   `gorm:"column:metadata;type:text;not null;default:'{}'"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// BeforeUpdate rejects writes that name any fixed field.
func (p *PaymentTransaction) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed(FixedPaymentFields...) {
		return domain.ErrImmutableRecord
	}
	return nil
}

func (p *PaymentTransaction) BeforeDelete(tx *gorm.DB) error {
	return domain.ErrImmutableRecord
}
