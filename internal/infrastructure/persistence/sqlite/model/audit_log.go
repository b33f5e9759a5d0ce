package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"viberate/internal/domain"
)

type AuditLog struct {
	ID           uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID      *string        `gorm:"column:actor_id;type:text;index"`
	Action       string         `gorm:"column:action_type;type:text;not null;index"`
	Timestamp    time.Time      `gorm:"column:timestamp;not null;index"`
	ResourceType string         `gorm:"column:resource_type;type:text;not null;default:'';index:idx_audit_resource"`
	ResourceID   string         `gorm:"column:resource_id;type:text;not null;default:'';index:idx_audit_resource"`
	Details      datatypes.JSON `gorm:"column:details;type:text;not null;default:'{}'"`
	IPAddress    string         `gorm:"column:ip_address;type:text;not null;default:''"`
	UserAgent    string         `gorm:"column:user_agent;type:text;not null;default:''"`
	Success      bool           `gorm:"column:success;not null"`
	ErrorMessage string         `gorm:"column:error_message;type:text;not null;default:''"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return domain.ErrImmutableRecord
}

func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return domain.ErrImmutableRecord
}
