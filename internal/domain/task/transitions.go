package task

import (
	"time"

	"viberate/internal/domain/account"
)

type Operation string

const (
	OpClaim   Operation = "claim"
	OpAccept  Operation = "accept"
	OpStart   Operation = "start"
	OpSubmit  Operation = "submit"
	OpApprove Operation = "approve"
	OpReject  Operation = "reject"
	OpCancel  Operation = "cancel"
)

// Transition is the paired assignment/task status change of one operation.
type Transition struct {
	Op Operation
	// From lists the assignment statuses the operation may start from.
	From []AssignmentStatus
	To   AssignmentStatus
	// TaskFrom guards the task side; empty means the task is untouched.
	TaskFrom []Status
	TaskTo   Status
	// Actor is the role that may perform the operation.
	Actor account.Role
}

func (t Transition) TouchesTask() bool {
	return len(t.TaskFrom) > 0
}

func (t Transition) Allows(status AssignmentStatus) bool {
	for _, from := range t.From {
		if from == status {
			return true
		}
	}
	return false
}

var transitions = map[Operation]Transition{
	OpAccept: {
		Op:    OpAccept,
		From:  []AssignmentStatus{AssignmentAssigned},
		To:    AssignmentAccepted,
		Actor: account.RoleAnnotator,
	},
	OpStart: {
		Op:       OpStart,
		From:     []AssignmentStatus{AssignmentAssigned, AssignmentAccepted},
		To:       AssignmentInProgress,
		TaskFrom: []Status{StatusAssigned},
		TaskTo:   StatusInProgress,
		Actor:    account.RoleAnnotator,
	},
	OpSubmit: {
		Op:       OpSubmit,
		From:     []AssignmentStatus{AssignmentInProgress},
		To:       AssignmentSubmitted,
		TaskFrom: []Status{StatusAssigned, StatusInProgress},
		TaskTo:   StatusSubmitted,
		Actor:    account.RoleAnnotator,
	},
	OpApprove: {
		Op:       OpApprove,
		From:     []AssignmentStatus{AssignmentSubmitted},
		To:       AssignmentApproved,
		TaskFrom: []Status{StatusSubmitted},
		TaskTo:   StatusCompleted,
		Actor:    account.RoleResearcher,
	},
	OpReject: {
		Op:       OpReject,
		From:     []AssignmentStatus{AssignmentSubmitted},
		To:       AssignmentRejected,
		TaskFrom: []Status{StatusSubmitted},
		TaskTo:   StatusAvailable,
		Actor:    account.RoleResearcher,
	},
	OpCancel: {
		Op:       OpCancel,
		From:     []AssignmentStatus{AssignmentAssigned, AssignmentAccepted, AssignmentInProgress},
		To:       AssignmentCancelled,
		TaskFrom: []Status{StatusAssigned, StatusInProgress},
		TaskTo:   StatusAvailable,
		Actor:    account.RoleAnnotator,
	},
}

// TransitionFor returns the rule for an operation on an existing assignment.
func TransitionFor(op Operation) (Transition, error) {
	t, ok := transitions[op]
	if !ok {
		return Transition{}, ErrUnknownOperation
	}
	return t, nil
}

// Plan checks the current status and returns the transition with the patch
// timestamps filled for now.
func Plan(a Assignment, op Operation, now time.Time) (Transition, AssignmentPatch, error) {
	t, err := TransitionFor(op)
	if err != nil {
		return Transition{}, AssignmentPatch{}, err
	}
	if !t.Allows(a.Status) {
		return Transition{}, AssignmentPatch{}, invalidAssignmentState(a.ID, a.Status, op)
	}

	patch := AssignmentPatch{Status: t.To}
	switch op {
	case OpAccept:
		patch.AcceptedAt = &now
	case OpStart:
		patch.StartedAt = &now
	case OpSubmit:
		patch.SubmittedAt = &now
	case OpApprove, OpReject:
		patch.CompletedAt = &now
	}
	return t, patch, nil
}

// ClaimStatus is the initial assignment status of a claim. Auto-start skips
// assigned/accepted.
func ClaimStatus(autoStart bool) AssignmentStatus {
	if autoStart {
		return AssignmentInProgress
	}
	return AssignmentAssigned
}

// InvalidTransition builds the state error for an operation that lost a race
// against a concurrent writer.
func InvalidTransition(a Assignment, op Operation) error {
	return invalidAssignmentState(a.ID, a.Status, op)
}
