package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID             string          `gorm:"column:id;type:text;primaryKey"`
	Username       string          `gorm:"column:username;type:text;not null;uniqueIndex"`
	Role           string          `gorm:"column:role;type:text;not null;index"`
	WalletAddress  string          `gorm:"column:wallet_address;type:text;not null;default:''"`
	WalletID       string          `gorm:"column:wallet_id;type:text;not null;default:''"`
	WalletData     string          `gorm:"column:wallet_data;type:text;not null;default:''"`
	Rating         decimal.Decimal `gorm:"column:rating;type:text;not null"`
	TasksCompleted int             `gorm:"column:tasks_completed;not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;not null"`
}

func (Account) TableName() string {
	return "accounts"
}
