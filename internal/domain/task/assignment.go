package task

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentSubmitted  AssignmentStatus = "submitted"
	AssignmentApproved   AssignmentStatus = "approved"
	AssignmentRejected   AssignmentStatus = "rejected"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// LiveAssignmentStatuses hold the task exclusively.
var LiveAssignmentStatuses = []AssignmentStatus{
	AssignmentAssigned,
	AssignmentAccepted,
	AssignmentInProgress,
	AssignmentSubmitted,
}

func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentApproved || s == AssignmentRejected || s == AssignmentCancelled
}

func (s AssignmentStatus) Live() bool {
	for _, live := range LiveAssignmentStatuses {
		if s == live {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID           string
	TaskID       string
	ProjectID    string
	AnnotatorID  string
	Status       AssignmentStatus
	Result       json.RawMessage
	QualityScore *decimal.Decimal
	Feedback     string
	AssignedAt   time.Time
	AcceptedAt   *time.Time
	StartedAt    *time.Time
	SubmittedAt  *time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// AssignmentPatch carries the fields a transition writes besides status.
type AssignmentPatch struct {
	Status       AssignmentStatus
	Result       json.RawMessage
	QualityScore *decimal.Decimal
	Feedback     *string
	AcceptedAt   *time.Time
	StartedAt    *time.Time
	SubmittedAt  *time.Time
	CompletedAt  *time.Time
}

// ValidateResult accepts a JSON object or array.
func ValidateResult(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return ErrInvalidResult
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return ErrInvalidResult
	}
	return nil
}
