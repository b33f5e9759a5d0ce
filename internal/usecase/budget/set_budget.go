package budget

import (
	"context"
	"errors"
	"log/slog"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/money"
	"viberate/internal/domain/project"
	"viberate/internal/errs"
	"viberate/internal/usecase/besteffort"
)

// SetBudget replaces the budget and re-derives the per-task price.
func (s *Service) SetBudget(ctx context.Context, input SetBudgetInput) (project.Project, error) {
	if err := s.check(ctx); err != nil {
		return project.Project{}, err
	}

	var before, after project.Project
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.ownedProject(txCtx, input.ActorID, input.ProjectID, "set budget of")
		if err != nil {
			return err
		}
		next, err := p.WithBudget(input.Amount)
		if err != nil {
			return err
		}
		if err := s.projects.SaveBudget(txCtx, p.ID, next.Budget, next.PricePerTask); err != nil {
			return err
		}
		before, after = p, next
		return nil
	})
	if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
		return project.Project{}, err
	}

	rec := audit.Record{
		Action:       audit.ActionTaskBudget,
		ActorID:      input.ActorID,
		ResourceType: audit.ResourceProject,
		ResourceID:   input.ProjectID,
		Details:      map[string]any{"requested": input.Amount.String()},
		Success:      err == nil,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
		besteffort.Record(ctx, s.audit, rec)
		return project.Project{}, err
	}
	rec.Details["old_budget"] = money.Format(before.Budget, money.BudgetPlaces)
	rec.Details["new_budget"] = money.Format(after.Budget, money.BudgetPlaces)
	rec.Details["price_per_task"] = money.Format(after.PricePerTask, money.BudgetPlaces)
	besteffort.Record(ctx, s.audit, rec)

	logging.Info(s.logCtx(ctx), "project budget updated",
		slog.String("project_id", after.ID),
		slog.String("budget", money.Format(after.Budget, money.BudgetPlaces)),
	)

	stored, err := s.projects.GetProject(ctx, input.ProjectID)
	if err != nil {
		return project.Project{}, errs.Wrap(err, "reload project")
	}
	return stored, nil
}
