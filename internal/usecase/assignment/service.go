// Package assignment runs the task and assignment state machines: claiming,
// working, submitting and reviewing annotation work.
package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/payment"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/errs"
	"viberate/internal/ports"
	"viberate/internal/usecase/besteffort"
	paymentuc "viberate/internal/usecase/payment"
)

const component = "usecase.assignment"

// TaskCounter recounts a project's tasks after a completion.
type TaskCounter interface {
	RecomputeTaskCounts(ctx context.Context, projectID string) (project.Project, error)
}

// Payer settles an approved assignment.
type Payer interface {
	CreateAndProcess(ctx context.Context, input paymentuc.CreatePaymentInput) (payment.Transaction, error)
	GetByAssignment(ctx context.Context, assignmentID string) (payment.Transaction, error)
}

// AnnotationPusher writes an assignment's result back to the labeling tool.
type AnnotationPusher interface {
	PushAnnotation(ctx context.Context, assignmentID string, actorID string) error
}

type Config struct {
	// AutoStart creates claimed assignments directly in progress.
	AutoStart bool
	// SyncOnSubmit pushes results to the labeling tool on submit as well as
	// on approve.
	SyncOnSubmit bool
	MaxAmount    decimal.Decimal
}

func DefaultConfig() Config {
	return Config{AutoStart: true, MaxAmount: payment.DefaultMaxAmount}
}

type Service struct {
	tasks       ports.TaskRepository
	assignments ports.AssignmentRepository
	accounts    ports.AccountRepository
	projects    ports.ProjectRepository
	uow         ports.UnitOfWork
	counts      TaskCounter
	payer       Payer
	pusher      AnnotationPusher
	audit       ports.AuditRecorder
	events      ports.EventPublisher
	cfg         Config
	now         func() time.Time
	newID       func() string
}

type Deps struct {
	Tasks       ports.TaskRepository
	Assignments ports.AssignmentRepository
	Accounts    ports.AccountRepository
	Projects    ports.ProjectRepository
	UoW         ports.UnitOfWork
	Counts      TaskCounter
	Payer       Payer
	Pusher      AnnotationPusher
	Audit       ports.AuditRecorder
	Events      ports.EventPublisher
}

func NewService(deps Deps, cfg Config) *Service {
	if !cfg.MaxAmount.IsPositive() {
		cfg.MaxAmount = payment.DefaultMaxAmount
	}
	return &Service{
		tasks:       deps.Tasks,
		assignments: deps.Assignments,
		accounts:    deps.Accounts,
		projects:    deps.Projects,
		uow:         deps.UoW,
		counts:      deps.Counts,
		payer:       deps.Payer,
		pusher:      deps.Pusher,
		audit:       deps.Audit,
		events:      deps.Events,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

type ClaimInput struct {
	ActorID string
	TaskID  string
}

// ActionInput addresses an existing assignment on behalf of an actor.
type ActionInput struct {
	ActorID      string
	AssignmentID string
}

type SubmitInput struct {
	ActorID      string
	AssignmentID string
	Result       json.RawMessage
}

type ApproveInput struct {
	ActorID       string
	AssignmentID  string
	PaymentAmount decimal.Decimal
	QualityScore  *decimal.Decimal
	Feedback      string
}

// SettleInput resumes an approved assignment's payment. Amount is required
// only when no transaction was recorded for the assignment.
type SettleInput struct {
	ActorID          string
	AssignmentID     string
	Amount           decimal.Decimal
	SenderWalletData string
}

type RejectInput struct {
	ActorID      string
	AssignmentID string
	Reason       string
}

type ProjectAssignmentsInput struct {
	ActorID   string
	ProjectID string
	Status    task.AssignmentStatus
}

// ApprovalResult reports the payment inline; a payment failure never fails
// the approval itself.
type ApprovalResult struct {
	Assignment   task.Assignment  `json:"assignment"`
	Payment      *payment.Summary `json:"payment,omitempty"`
	PaymentError string           `json:"payment_error,omitempty"`
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.tasks == nil || s.assignments == nil || s.accounts == nil || s.projects == nil {
		return errors.New("assignment repositories are required")
	}
	if s.uow == nil {
		return errors.New("assignment unit of work is required")
	}
	return nil
}

func (s *Service) logCtx(ctx context.Context, assignmentID string) context.Context {
	return logging.WithAttrs(ctx,
		slog.String("component", component),
		slog.String("assignment_id", assignmentID),
	)
}

// authorize checks the actor's role for op and that the actor is a party to
// the assignment: its annotator, or the owner of its project.
func (s *Service) authorize(ctx context.Context, actor account.Account, a task.Assignment, role account.Role, op task.Operation) error {
	if err := actor.Require(role, string(op)+" assignment"); err != nil {
		return err
	}
	switch role {
	case account.RoleAnnotator:
		if a.AnnotatorID != actor.ID {
			return domain.Forbidden("account "+actor.ID, string(op)+" assignment "+a.ID)
		}
	case account.RoleResearcher:
		p, err := s.projects.GetProject(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		if p.OwnerID != actor.ID {
			return domain.Forbidden("account "+actor.ID, string(op)+" assignment "+a.ID)
		}
	}
	return nil
}

// step is one guarded transition of an existing assignment.
type step struct {
	op           task.Operation
	actorID      string
	assignmentID string
	patch        func(p *task.AssignmentPatch)
	// then runs inside the transaction after both status writes.
	then func(ctx context.Context, before task.Assignment) error
}

// apply runs a transition as one unit of work: the assignment and task status
// writes are each check-and-set on the statuses the rule allows, and either
// both land or neither does.
func (s *Service) apply(ctx context.Context, st step) (before task.Assignment, after task.Assignment, err error) {
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		a, err := s.assignments.GetAssignment(txCtx, st.assignmentID)
		if err != nil {
			return err
		}
		actor, err := s.accounts.GetAccount(txCtx, st.actorID)
		if err != nil {
			return err
		}
		rule, err := task.TransitionFor(st.op)
		if err != nil {
			return err
		}
		if err := s.authorize(txCtx, actor, a, rule.Actor, st.op); err != nil {
			return err
		}
		_, patch, err := task.Plan(a, st.op, s.now())
		if err != nil {
			return err
		}
		if st.patch != nil {
			st.patch(&patch)
		}

		ok, err := s.assignments.TransitionAssignment(txCtx, a.ID, rule.From, patch)
		if err != nil {
			return err
		}
		if !ok {
			return s.raced(txCtx, a.ID, st.op)
		}
		if rule.TouchesTask() {
			ok, err := s.tasks.CompareAndSetStatus(txCtx, a.TaskID, rule.TaskFrom, rule.TaskTo)
			if err != nil {
				return err
			}
			if !ok {
				return s.taskOutOfStep(txCtx, a.TaskID, st.op)
			}
		}
		if st.then != nil {
			if err := st.then(txCtx, a); err != nil {
				return err
			}
		}

		before = a
		after, err = s.assignments.GetAssignment(txCtx, a.ID)
		return err
	})
	if err != nil {
		return task.Assignment{}, task.Assignment{}, err
	}
	return before, after, nil
}

// raced reports a transition that lost to a concurrent writer with the status
// that won.
func (s *Service) raced(ctx context.Context, id string, op task.Operation) error {
	current, err := s.assignments.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	return task.InvalidTransition(current, op)
}

func (s *Service) taskOutOfStep(ctx context.Context, taskID string, op task.Operation) error {
	current, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	return &domain.InvalidStateError{
		Entity:    "task",
		ID:        taskID,
		Status:    string(current.Status),
		Operation: string(op),
	}
}

// record audits an assignment operation. Forbidden and not-found failures are
// left to the transport log.
func (s *Service) record(ctx context.Context, action audit.Action, actorID string, resourceType string, resourceID string, details map[string]any, opErr error) {
	if opErr != nil && (errors.Is(opErr, domain.ErrForbidden) || errors.Is(opErr, domain.ErrNotFound)) {
		return
	}
	rec := audit.Record{
		Action:       action,
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

func (s *Service) publish(ctx context.Context, name string, actorID string, a task.Assignment, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["task_id"] = a.TaskID
	payload["project_id"] = a.ProjectID
	payload["annotator_id"] = a.AnnotatorID
	besteffort.Publish(ctx, s.events, ports.DomainEvent{
		Name:       name,
		ResourceID: a.ID,
		ActorID:    actorID,
		OccurredAt: s.now(),
		Payload:    payload,
	})
}

// push sends the result to the labeling tool without affecting the caller.
// The pusher audits its own failures.
func (s *Service) push(ctx context.Context, assignmentID string, actorID string) {
	if s.pusher == nil {
		return
	}
	_ = besteffort.Run(ctx, "push annotation", func(ctx context.Context) error {
		return s.pusher.PushAnnotation(ctx, assignmentID, actorID)
	})
}
