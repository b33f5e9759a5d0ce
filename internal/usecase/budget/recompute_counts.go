package budget

import (
	"context"

	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
)

// RecomputeTaskCounts recounts the project's tasks and re-derives the price.
// It joins the caller's transaction when there is one.
func (s *Service) RecomputeTaskCounts(ctx context.Context, projectID string) (project.Project, error) {
	if err := s.check(ctx); err != nil {
		return project.Project{}, err
	}

	var out project.Project
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.projects.GetProject(txCtx, projectID)
		if err != nil {
			return err
		}
		counts, err := s.tasks.CountByStatus(txCtx, projectID)
		if err != nil {
			return err
		}

		total := 0
		for _, n := range counts {
			total += n
		}
		next := p.WithCounts(total, counts[task.StatusCompleted])
		if err := s.projects.SaveCounts(txCtx, p.ID, next.TotalTasks, next.CompletedTasks, next.PricePerTask); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return project.Project{}, err
	}
	return out, nil
}
