package assignment

import (
	"context"

	"viberate/internal/domain/audit"
	"viberate/internal/domain/task"
)

// Accept acknowledges an assigned task without starting it.
func (s *Service) Accept(ctx context.Context, input ActionInput) (task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return task.Assignment{}, err
	}
	_, out, err := s.apply(ctx, step{op: task.OpAccept, actorID: input.ActorID, assignmentID: input.AssignmentID})
	s.record(ctx, audit.ActionTaskAccept, input.ActorID, audit.ResourceAssignment, input.AssignmentID, nil, err)
	return out, err
}

// Start moves the assignment and its task into progress.
func (s *Service) Start(ctx context.Context, input ActionInput) (task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return task.Assignment{}, err
	}
	_, out, err := s.apply(ctx, step{op: task.OpStart, actorID: input.ActorID, assignmentID: input.AssignmentID})
	s.record(ctx, audit.ActionTaskStart, input.ActorID, audit.ResourceAssignment, input.AssignmentID, nil, err)
	return out, err
}

// Submit stores the annotation result for review. When configured, the result
// is also pushed to the labeling tool; a push failure leaves the submission in
// place.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return task.Assignment{}, err
	}
	if err := task.ValidateResult(input.Result); err != nil {
		return task.Assignment{}, err
	}

	_, out, err := s.apply(ctx, step{
		op:           task.OpSubmit,
		actorID:      input.ActorID,
		assignmentID: input.AssignmentID,
		patch: func(p *task.AssignmentPatch) {
			p.Result = input.Result
		},
	})
	s.record(ctx, audit.ActionTaskSubmit, input.ActorID, audit.ResourceAssignment, input.AssignmentID, nil, err)
	if err != nil {
		return task.Assignment{}, err
	}

	s.publish(ctx, "assignment.submitted", input.ActorID, out, nil)
	if s.cfg.SyncOnSubmit {
		s.push(ctx, out.ID, input.ActorID)
	}
	return out, nil
}

// Cancel gives the task back before submission.
func (s *Service) Cancel(ctx context.Context, input ActionInput) (task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return task.Assignment{}, err
	}
	_, out, err := s.apply(ctx, step{op: task.OpCancel, actorID: input.ActorID, assignmentID: input.AssignmentID})
	s.record(ctx, audit.ActionTaskCancel, input.ActorID, audit.ResourceAssignment, input.AssignmentID, nil, err)
	if err != nil {
		return task.Assignment{}, err
	}
	s.publish(ctx, "assignment.cancelled", input.ActorID, out, nil)
	return out, nil
}
