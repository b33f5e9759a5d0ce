package budget

import (
	"context"
	"errors"
	"log/slog"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/project"
	"viberate/internal/ports"
	"viberate/internal/usecase/besteffort"
)

// Publish releases every pending task of the project to annotators. It is the
// only bulk task transition.
func (s *Service) Publish(ctx context.Context, input ProjectInput) (PublishResult, error) {
	if err := s.check(ctx); err != nil {
		return PublishResult{}, err
	}

	var result PublishResult
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.ownedProject(txCtx, input.ActorID, input.ProjectID, "publish")
		if err != nil {
			return err
		}
		if err := p.CheckPublishable(); err != nil {
			return err
		}
		released, err := s.tasks.PublishPending(txCtx, p.ID)
		if err != nil {
			return err
		}
		if err := s.projects.SetPublished(txCtx, p.ID, true); err != nil {
			return err
		}
		p.IsPublished = true
		result = PublishResult{Project: p, TasksReleased: released}
		return nil
	})
	if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
		return PublishResult{}, err
	}

	rec := audit.Record{
		Action:       audit.ActionTaskPublish,
		ActorID:      input.ActorID,
		ResourceType: audit.ResourceProject,
		ResourceID:   input.ProjectID,
		Success:      err == nil,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
		besteffort.Record(ctx, s.audit, rec)
		return PublishResult{}, err
	}
	rec.Details = map[string]any{"tasks_released": result.TasksReleased}
	besteffort.Record(ctx, s.audit, rec)
	s.publishEvent(ctx, "project.published", input, map[string]any{"tasks_released": result.TasksReleased})

	logging.Info(s.logCtx(ctx), "project published",
		slog.String("project_id", input.ProjectID),
		slog.Int64("tasks_released", result.TasksReleased),
	)
	return result, nil
}

// Unpublish hides the project's tasks. Task statuses are left as they are so
// work in flight continues.
func (s *Service) Unpublish(ctx context.Context, input ProjectInput) (project.Project, error) {
	if err := s.check(ctx); err != nil {
		return project.Project{}, err
	}

	var out project.Project
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.ownedProject(txCtx, input.ActorID, input.ProjectID, "unpublish")
		if err != nil {
			return err
		}
		if err := s.projects.SetPublished(txCtx, p.ID, false); err != nil {
			return err
		}
		p.IsPublished = false
		out = p
		return nil
	}); err != nil {
		return project.Project{}, err
	}

	besteffort.Record(ctx, s.audit, audit.Record{
		Action:       audit.ActionTaskUnpublish,
		ActorID:      input.ActorID,
		ResourceType: audit.ResourceProject,
		ResourceID:   input.ProjectID,
		Success:      true,
	})
	s.publishEvent(ctx, "project.unpublished", input, nil)
	return out, nil
}

func (s *Service) publishEvent(ctx context.Context, name string, input ProjectInput, payload map[string]any) {
	besteffort.Publish(ctx, s.events, ports.DomainEvent{
		Name:       name,
		ResourceID: input.ProjectID,
		ActorID:    input.ActorID,
		OccurredAt: s.now(),
		Payload:    payload,
	})
}
