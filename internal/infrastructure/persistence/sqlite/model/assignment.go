package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Assignment struct {
	ID           string           `gorm:"column:id;type:text;primaryKey"`
	TaskID       string           `gorm:"column:task_id;type:text;not null;index"`
	ProjectID    string           `gorm:"column:project_id;type:text;not null;index"`
	AnnotatorID  string           `gorm:"column:annotator_id;type:text;not null;index"`
	Status       string           `gorm:"column:status;type:text;not null;index"`
	Result       datatypes.JSON   `gorm:"column:annotation_result;type:text;not null;default:'null'"`
	QualityScore *decimal.Decimal `gorm:"column:quality_score;type:text"`
	Feedback     string           `gorm:"column:feedback;type:text;not null;default:''"`
	AssignedAt   time.Time        `gorm:"column:assigned_at;not null"`
	AcceptedAt   *time.Time       `gorm:"column:accepted_at"`
	StartedAt    *time.Time       `gorm:"column:started_at"`
	SubmittedAt  *time.Time       `gorm:"column:submitted_at"`
	CompletedAt  *time.Time       `gorm:"column:completed_at"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;not null"`
}

func (Assignment) TableName() string {
	return "assignments"
}
