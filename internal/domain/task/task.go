package task

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAvailable  Status = "available"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusCompleted  Status = "completed"
	// StatusRejected is reserved for manual override tooling; no assignment
	// operation leads here.
	StatusRejected Status = "rejected"
)

var knownStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusAvailable:  {},
	StatusAssigned:   {},
	StatusInProgress: {},
	StatusSubmitted:  {},
	StatusCompleted:  {},
	StatusRejected:   {},
}

func (s Status) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

type Task struct {
	ID           string
	ProjectID    string
	ExternalID   int64
	Data         json.RawMessage
	Status       Status
	Difficulty   string
	RewardPoints int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SyncedStatus is the status of a newly imported task: gated behind publish
// while the project is unpublished.
func SyncedStatus(projectPublished bool) Status {
	if projectPublished {
		return StatusAvailable
	}
	return StatusPending
}
