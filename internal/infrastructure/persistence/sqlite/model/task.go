package model

import (
	"time"

	"gorm.io/datatypes"
)

type Task struct {
	ID           string         `gorm:"column:id;type:text;primaryKey"`
	ProjectID    string         `gorm:"column:project_id;type:text;not null;uniqueIndex:idx_tasks_project_external;index:idx_tasks_project_status"`
	ExternalID   int64          `gorm:"column:external_id;not null;uniqueIndex:idx_tasks_project_external"`
	Data         datatypes.JSON `gorm:"column:data;type:text;not null"`
	Status       string         `gorm:"column:status;type:text;not null;index:idx_tasks_project_status"`
	Difficulty   string         `gorm:"column:difficulty;type:text;not null;default:'medium'"`
	RewardPoints int            `gorm:"column:reward_points;not null;default:10"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
}

func (Task) TableName() string {
	return "tasks"
}
