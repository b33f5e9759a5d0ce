package sync

import (
	"context"
	"log/slog"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/audit"
	"viberate/internal/errs"
)

// PushAnnotation writes an assignment's result to the labeling tool task it
// came from. Every attempt, failed or not, is audited as task.sync.
func (s *Service) PushAnnotation(ctx context.Context, assignmentID string, actorID string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	a, err := s.assignments.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	details := map[string]any{"task_id": a.TaskID}

	err = s.push(ctx, a.TaskID, a.Result, actorID, details)
	s.record(ctx, actorID, audit.ResourceAssignment, a.ID, details, err)
	if err != nil {
		logging.Warn(s.logCtx(ctx), "annotation push failed",
			slog.String("assignment_id", a.ID),
			slog.Any("err", errs.Loggable(err)),
		)
	}
	return err
}

func (s *Service) push(ctx context.Context, taskID string, result []byte, actorID string, details map[string]any) error {
	if len(result) == 0 {
		return domain.Invalid("assignment has no annotation result")
	}
	t, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	details["external_task_id"] = t.ExternalID

	annotationID, err := s.labeling.PushAnnotation(ctx, t.ExternalID, result, actorID)
	if err != nil {
		return domain.NewIntegrationError("labeling", "push annotation", err)
	}
	details["annotation_id"] = annotationID
	return nil
}
