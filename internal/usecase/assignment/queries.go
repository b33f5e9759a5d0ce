package assignment

import (
	"context"
	"strings"

	"viberate/internal/domain"
	"viberate/internal/domain/account"
	"viberate/internal/domain/task"
	"viberate/internal/ports"
)

// MyAssignments lists the annotator's work, newest first, without cancelled
// attempts.
func (s *Service) MyAssignments(ctx context.Context, annotatorID string) ([]task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.assignments.ListAssignments(ctx, ports.AssignmentFilter{
		AnnotatorID:      strings.TrimSpace(annotatorID),
		ExcludeCancelled: true,
	})
}

// ProjectAssignments is the owner's review queue, optionally narrowed to one
// status.
func (s *Service) ProjectAssignments(ctx context.Context, input ProjectAssignmentsInput) ([]task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	p, err := s.projects.GetProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if input.ActorID == "" || p.OwnerID != input.ActorID {
		return nil, domain.Forbidden("account "+input.ActorID, "list assignments of project "+p.ID)
	}
	return s.assignments.ListAssignments(ctx, ports.AssignmentFilter{
		ProjectID: p.ID,
		Status:    input.Status,
	})
}

// GetAssignment is visible to its annotator and to the project owner.
func (s *Service) GetAssignment(ctx context.Context, input ActionInput) (task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return task.Assignment{}, err
	}
	a, err := s.assignments.GetAssignment(ctx, input.AssignmentID)
	if err != nil {
		return task.Assignment{}, err
	}
	actor, err := s.accounts.GetAccount(ctx, input.ActorID)
	if err != nil {
		return task.Assignment{}, err
	}
	role := account.RoleAnnotator
	if actor.Role == account.RoleResearcher {
		role = account.RoleResearcher
	}
	if err := s.authorize(ctx, actor, a, role, "view"); err != nil {
		return task.Assignment{}, err
	}
	return a, nil
}
