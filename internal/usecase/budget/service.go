// Package budget owns project budgets, per-task pricing and the publish gate.
package budget

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/errs"
	"viberate/internal/ports"
)

const component = "usecase.budget"

type Service struct {
	projects ports.ProjectRepository
	tasks    ports.TaskRepository
	uow      ports.UnitOfWork
	audit    ports.AuditRecorder
	events   ports.EventPublisher
	now      func() time.Time
}

func NewService(projects ports.ProjectRepository, tasks ports.TaskRepository, uow ports.UnitOfWork, audit ports.AuditRecorder, events ports.EventPublisher) *Service {
	return &Service{
		projects: projects,
		tasks:    tasks,
		uow:      uow,
		audit:    audit,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type SetBudgetInput struct {
	ActorID   string
	ProjectID string
	Amount    decimal.Decimal
}

type ProjectInput struct {
	ActorID   string
	ProjectID string
}

type PublishResult struct {
	Project       project.Project
	TasksReleased int64
}

// Stats is the researcher dashboard view of a project.
type Stats struct {
	Project              project.Project
	RemainingBudget      decimal.Decimal
	CompletionPercentage decimal.Decimal
	TasksByStatus        map[task.Status]int
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.projects == nil || s.tasks == nil {
		return errors.New("project and task repositories are required")
	}
	if s.uow == nil {
		return errors.New("budget unit of work is required")
	}
	return nil
}

func (s *Service) logCtx(ctx context.Context) context.Context {
	return logging.WithAttrs(ctx, slog.String("component", component))
}

// ownedProject loads the project and checks that actorID owns it.
func (s *Service) ownedProject(ctx context.Context, actorID string, projectID string, op string) (project.Project, error) {
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return project.Project{}, err
	}
	if actorID == "" || p.OwnerID != actorID {
		return project.Project{}, domain.Forbidden("account "+actorID, op+" project "+projectID)
	}
	return p, nil
}
