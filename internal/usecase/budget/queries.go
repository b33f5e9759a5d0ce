package budget

import (
	"context"
	"strings"

	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/ports"
)

func (s *Service) GetProject(ctx context.Context, projectID string) (project.Project, error) {
	if err := s.check(ctx); err != nil {
		return project.Project{}, err
	}
	return s.projects.GetProject(ctx, strings.TrimSpace(projectID))
}

// ListPublishedProjects returns active published projects with the number of
// tasks annotators can claim.
func (s *Service) ListPublishedProjects(ctx context.Context) ([]ports.ProjectListing, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.projects.ListPublished(ctx)
}

func (s *Service) ListOwnedProjects(ctx context.Context, ownerID string) ([]project.Project, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.projects.ListByOwner(ctx, strings.TrimSpace(ownerID))
}

// ListAvailableTasks returns claimable tasks, optionally of one project. Tasks
// of inactive or unpublished projects are never returned.
func (s *Service) ListAvailableTasks(ctx context.Context, projectID string, limit int) ([]task.Task, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.tasks.ListVisible(ctx, ports.VisibleTaskFilter{
		ProjectID: strings.TrimSpace(projectID),
		Limit:     limit,
	})
}

// ProjectStats is restricted to the project owner.
func (s *Service) ProjectStats(ctx context.Context, input ProjectInput) (Stats, error) {
	if err := s.check(ctx); err != nil {
		return Stats{}, err
	}

	p, err := s.ownedProject(ctx, input.ActorID, input.ProjectID, "view stats of")
	if err != nil {
		return Stats{}, err
	}
	counts, err := s.tasks.CountByStatus(ctx, p.ID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Project:              p,
		RemainingBudget:      p.RemainingBudget(),
		CompletionPercentage: p.CompletionPercentage(),
		TasksByStatus:        counts,
	}, nil
}
