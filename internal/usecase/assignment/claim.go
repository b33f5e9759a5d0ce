package assignment

import (
	"context"
	"errors"
	"log/slog"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/task"
)

// Claim gives an available task to an annotator. The task write is a single
// check-and-set from available, so of two concurrent claims exactly one wins
// and the other gets task.ErrTaskNotAvailable.
func (s *Service) Claim(ctx context.Context, input ClaimInput) (task.Assignment, error) {
	if err := s.check(ctx); err != nil {
		return task.Assignment{}, err
	}

	var out task.Assignment
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		actor, err := s.accounts.GetAccount(txCtx, input.ActorID)
		if err != nil {
			return err
		}
		if err := actor.Require(account.RoleAnnotator, "claim task"); err != nil {
			return err
		}
		t, err := s.tasks.GetTask(txCtx, input.TaskID)
		if err != nil {
			return err
		}
		p, err := s.projects.GetProject(txCtx, t.ProjectID)
		if err != nil {
			return err
		}
		if !p.Visible() {
			return task.ErrTaskNotAvailable
		}

		ok, err := s.tasks.CompareAndSetStatus(txCtx, t.ID, []task.Status{task.StatusAvailable}, task.StatusAssigned)
		if err != nil {
			return err
		}
		if !ok {
			return task.ErrTaskNotAvailable
		}

		now := s.now()
		a := task.Assignment{
			ID:          s.newID(),
			TaskID:      t.ID,
			ProjectID:   t.ProjectID,
			AnnotatorID: actor.ID,
			Status:      task.ClaimStatus(s.cfg.AutoStart),
			AssignedAt:  now,
		}
		if a.Status == task.AssignmentInProgress {
			a.StartedAt = &now
		}
		created, err := s.assignments.CreateAssignment(txCtx, a)
		if errors.Is(err, domain.ErrConflict) {
			return task.ErrTaskNotAvailable
		}
		if err != nil {
			return err
		}
		out = created
		return nil
	})

	s.record(ctx, audit.ActionTaskClaim, input.ActorID, audit.ResourceTask, input.TaskID, map[string]any{"assignment_id": out.ID}, err)
	if err != nil {
		return task.Assignment{}, err
	}
	s.publish(ctx, "assignment.claimed", input.ActorID, out, map[string]any{"status": string(out.Status)})
	logging.Info(s.logCtx(ctx, out.ID), "task claimed",
		slog.String("task_id", out.TaskID),
		slog.String("annotator_id", out.AnnotatorID),
	)
	return out, nil
}
