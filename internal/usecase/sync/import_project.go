package sync

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/ports"
)

// ListExternalProjects lists the labeling tool projects a researcher may
// import.
func (s *Service) ListExternalProjects(ctx context.Context, actorID string) ([]ports.ExternalProject, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	actor, err := s.accounts.GetAccount(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := actor.Require(account.RoleResearcher, "list labeling projects"); err != nil {
		return nil, err
	}
	projects, err := s.labeling.ListProjects(ctx)
	if err != nil {
		return nil, domain.NewIntegrationError("labeling", "list projects", err)
	}
	return projects, nil
}

// ImportProject pulls a project and all of its tasks, then stores them in one
// transaction. A labeling tool failure fails the whole import before anything
// is written. New tasks start pending until the project is published; known
// tasks keep their status and only refresh their data.
func (s *Service) ImportProject(ctx context.Context, input ImportInput) (ImportResult, error) {
	if err := s.check(ctx); err != nil {
		return ImportResult{}, err
	}
	actor, err := s.accounts.GetAccount(ctx, input.ActorID)
	if err != nil {
		return ImportResult{}, err
	}
	if err := actor.Require(account.RoleResearcher, "import project"); err != nil {
		return ImportResult{}, err
	}
	if input.ExternalProjectID <= 0 {
		return ImportResult{}, domain.Invalid("external project id must be positive")
	}
	resourceID := strconv.FormatInt(input.ExternalProjectID, 10)

	var (
		external ports.ExternalProject
		tasks    []ports.ExternalTask
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		external, err = s.labeling.GetProject(gctx, input.ExternalProjectID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = s.labeling.ListProjectTasks(gctx, input.ExternalProjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		err = domain.NewIntegrationError("labeling", "import project", err)
		s.record(ctx, actor.ID, audit.ResourceProject, resourceID, map[string]any{"external_project_id": input.ExternalProjectID}, err)
		return ImportResult{}, err
	}

	upserts := make([]ports.TaskUpsert, 0, len(tasks))
	for _, t := range tasks {
		upserts = append(upserts, ports.TaskUpsert{ExternalID: t.ID, Data: t.Data})
	}

	var result ImportResult
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.now()
		p, err := s.projects.UpsertProject(txCtx, project.Project{
			ID:           s.newID(),
			OwnerID:      actor.ID,
			ExternalID:   input.ExternalProjectID,
			Title:        external.Title,
			Description:  external.Description,
			LabelConfig:  external.LabelConfig,
			IsActive:     true,
			LastSyncedAt: &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		upserted, err := s.tasks.UpsertTasks(txCtx, p.ID, upserts, task.SyncedStatus(p.IsPublished))
		if err != nil {
			return err
		}
		if s.counts != nil {
			if p, err = s.counts.RecomputeTaskCounts(txCtx, p.ID); err != nil {
				return err
			}
		}
		result = ImportResult{Project: p, TasksCreated: upserted.Created, TasksUpdated: upserted.Updated}
		return nil
	})
	details := map[string]any{"external_project_id": input.ExternalProjectID}
	if err == nil {
		resourceID = result.Project.ID
		details["tasks_created"] = result.TasksCreated
		details["tasks_updated"] = result.TasksUpdated
	}
	s.record(ctx, actor.ID, audit.ResourceProject, resourceID, details, err)
	if err != nil {
		return ImportResult{}, err
	}

	logging.Info(s.logCtx(ctx), "project imported",
		slog.String("project_id", result.Project.ID),
		slog.Int64("external_project_id", input.ExternalProjectID),
		slog.Int("tasks_created", result.TasksCreated),
		slog.Int("tasks_updated", result.TasksUpdated),
	)
	return result, nil
}
