package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Project struct {
	ID             string          `gorm:"column:id;type:text;primaryKey"`
	OwnerID        string          `gorm:"column:owner_id;type:text;not null;uniqueIndex:idx_projects_owner_external"`
	ExternalID     int64           `gorm:"column:external_id;not null;uniqueIndex:idx_projects_owner_external"`
	Title          string          `gorm:"column:title;type:text;not null"`
	Description    string          `gorm:"column:description;type:text;not null;default:''"`
	LabelConfig    string          `gorm:"column:label_config;type:text;not null;default:''"`
	Budget         decimal.Decimal `gorm:"column:budget_usdc;type:text;not null"`
	PricePerTask   decimal.Decimal `gorm:"column:price_per_task;type:text;not null"`
	TotalTasks     int             `gorm:"column:total_tasks;not null;default:0"`
	CompletedTasks int             `gorm:"column:completed_tasks;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	IsPublished    bool            `gorm:"column:is_published;not null;default:false;index"`
	LastSyncedAt   *time.Time      `gorm:"column:last_synced_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;not null"`
}

func (Project) TableName() string {
	return "projects"
}
