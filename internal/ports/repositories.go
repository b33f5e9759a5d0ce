package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/payment"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, a account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	SetWallet(ctx context.Context, id string, wallet account.Wallet) error
	// RecordCompletion writes the new counters only if tasks_completed still
	// equals expectedCompleted.
	RecordCompletion(ctx context.Context, id string, expectedCompleted int, next account.Completion) (bool, error)
}

// ProjectListing is a published project with its claimable task count.
type ProjectListing struct {
	Project        project.Project
	AvailableTasks int
}

type ProjectRepository interface {
	// UpsertProject creates or updates by (owner, external id).
	UpsertProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
	SaveBudget(ctx context.Context, id string, budget decimal.Decimal, price decimal.Decimal) error
	SetPublished(ctx context.Context, id string, published bool) error
	SaveCounts(ctx context.Context, id string, total int, completed int, price decimal.Decimal) error
	ListPublished(ctx context.Context) ([]ProjectListing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]project.Project, error)
}

// TaskUpsert is one imported task keyed by its external id.
type TaskUpsert struct {
	ExternalID int64
	Data       []byte
}

type UpsertResult struct {
	Created int
	Updated int
}

type VisibleTaskFilter struct {
	ProjectID string
	Limit     int
}

type TaskRepository interface {
	// UpsertTasks inserts new tasks with initialStatus and refreshes the data
	// of existing ones without touching their status.
	UpsertTasks(ctx context.Context, projectID string, tasks []TaskUpsert, initialStatus task.Status) (UpsertResult, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	// CompareAndSetStatus updates the status only when it is one of from.
	CompareAndSetStatus(ctx context.Context, id string, from []task.Status, to task.Status) (bool, error)
	PublishPending(ctx context.Context, projectID string) (int64, error)
	CountByStatus(ctx context.Context, projectID string) (map[task.Status]int, error)
	// ListVisible returns available tasks of active published projects.
	ListVisible(ctx context.Context, filter VisibleTaskFilter) ([]task.Task, error)
}

type AssignmentFilter struct {
	AnnotatorID      string
	ProjectID        string
	Status           task.AssignmentStatus
	ExcludeCancelled bool
}

type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, a task.Assignment) (task.Assignment, error)
	GetAssignment(ctx context.Context, id string) (task.Assignment, error)
	// TransitionAssignment applies patch only when the status is one of from.
	TransitionAssignment(ctx context.Context, id string, from []task.AssignmentStatus, patch task.AssignmentPatch) (bool, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]task.Assignment, error)
}

type PaymentRepository interface {
	// CreateTransaction inserts tx unless the assignment already has one, in
	// which case the existing row is returned with created=false.
	CreateTransaction(ctx context.Context, tx payment.Transaction) (stored payment.Transaction, created bool, err error)
	GetTransaction(ctx context.Context, id string) (payment.Transaction, error)
	GetByAssignment(ctx context.Context, assignmentID string) (payment.Transaction, error)
	// UpdateProgress writes only the restricted progress fields when the
	// status is one of from.
	UpdateProgress(ctx context.Context, id string, from []payment.Status, progress payment.Progress) (bool, error)
	ListByRecipient(ctx context.Context, recipientID string) ([]payment.Transaction, error)
}

type AuditRepository interface {
	AppendEntry(ctx context.Context, e audit.Entry) (audit.Entry, error)
	ListEntries(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
	UpdateEntry(ctx context.Context, e audit.Entry) error
	DeleteEntry(ctx context.Context, id uint64) error
}

// AuditRecorder appends audit entries on behalf of the other usecases.
type AuditRecorder interface {
	Record(ctx context.Context, rec audit.Record) (audit.Entry, error)
}
