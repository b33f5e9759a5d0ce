// Package sync imports projects and tasks from the labeling tool and writes
// approved annotations back to it.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/project"
	"viberate/internal/errs"
	"viberate/internal/ports"
	"viberate/internal/usecase/besteffort"
)

const component = "usecase.sync"

// TaskCounter recounts a project's tasks after an import.
type TaskCounter interface {
	RecomputeTaskCounts(ctx context.Context, projectID string) (project.Project, error)
}

type Service struct {
	labeling    ports.LabelingToolClient
	accounts    ports.AccountRepository
	projects    ports.ProjectRepository
	tasks       ports.TaskRepository
	assignments ports.AssignmentRepository
	uow         ports.UnitOfWork
	counts      TaskCounter
	audit       ports.AuditRecorder
	now         func() time.Time
	newID       func() string
}

type Deps struct {
	Labeling    ports.LabelingToolClient
	Accounts    ports.AccountRepository
	Projects    ports.ProjectRepository
	Tasks       ports.TaskRepository
	Assignments ports.AssignmentRepository
	UoW         ports.UnitOfWork
	Counts      TaskCounter
	Audit       ports.AuditRecorder
}

func NewService(deps Deps) *Service {
	return &Service{
		labeling:    deps.Labeling,
		accounts:    deps.Accounts,
		projects:    deps.Projects,
		tasks:       deps.Tasks,
		assignments: deps.Assignments,
		uow:         deps.UoW,
		counts:      deps.Counts,
		audit:       deps.Audit,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

type ImportInput struct {
	ActorID           string
	ExternalProjectID int64
}

type ImportResult struct {
	Project      project.Project `json:"project"`
	TasksCreated int             `json:"tasks_created"`
	TasksUpdated int             `json:"tasks_updated"`
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.labeling == nil {
		return errors.New("labeling tool client is required")
	}
	if s.accounts == nil || s.projects == nil || s.tasks == nil || s.assignments == nil {
		return errors.New("sync repositories are required")
	}
	if s.uow == nil {
		return errors.New("sync unit of work is required")
	}
	return nil
}

func (s *Service) logCtx(ctx context.Context) context.Context {
	return logging.WithAttrs(ctx, slog.String("component", component))
}

func (s *Service) record(ctx context.Context, actorID string, resourceType string, resourceID string, details map[string]any, opErr error) {
	rec := audit.Record{
		Action:       audit.ActionTaskSync,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Success:      opErr == nil,
	}
	if opErr != nil {
		rec.ErrorMessage = opErr.Error()
	}
	besteffort.Record(ctx, s.audit, rec)
}
