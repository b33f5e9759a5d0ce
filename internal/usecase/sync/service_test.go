package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
	"viberate/internal/domain/account"
	"viberate/internal/domain/audit"
	"viberate/internal/domain/task"
	"viberate/internal/infrastructure/persistence/sqlitetest"
	"viberate/internal/ports"
	auditlog "viberate/internal/usecase/audit"
	"viberate/internal/usecase/budget"
)

type fakeLabeling struct {
	project  ports.ExternalProject
	tasks    []ports.ExternalTask
	tasksErr error
	pushErr  error
	pushed   []int64
}

func (f *fakeLabeling) ListProjects(context.Context) ([]ports.ExternalProject, error) {
	return []ports.ExternalProject{f.project}, nil
}

func (f *fakeLabeling) GetProject(_ context.Context, id int64) (ports.ExternalProject, error) {
	if id != f.project.ID {
		return ports.ExternalProject{}, fmt.Errorf("project %d: 404", id)
	}
	return f.project, nil
}

func (f *fakeLabeling) ListProjectTasks(context.Context, int64) ([]ports.ExternalTask, error) {
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	return f.tasks, nil
}

func (f *fakeLabeling) PushAnnotation(_ context.Context, taskID int64, _ json.RawMessage, _ string) (int64, error) {
	if f.pushErr != nil {
		return 0, f.pushErr
	}
	f.pushed = append(f.pushed, taskID)
	return 900 + taskID, nil
}

func externalTasks(n int) []ports.ExternalTask {
	out := make([]ports.ExternalTask, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, ports.ExternalTask{ID: int64(i), Data: json.RawMessage(fmt.Sprintf(`{"text":"t%d"}`, i))})
	}
	return out
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

type fixture struct {
	svc        *Service
	store      sqlitetest.Store
	audit      *auditlog.Service
	budgets    *budget.Service
	labeling   *fakeLabeling
	researcher account.Account
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := sqlitetest.NewStore(t)
	audit := auditlog.NewService(store.Audit)
	budgets := budget.NewService(store.Projects, store.Tasks, store.UoW, audit, nil)
	labeling := &fakeLabeling{
		project: ports.ExternalProject{ID: 7, Title: "Cats", Description: "label cats", LabelConfig: "<View/>"},
		tasks:   externalTasks(4),
	}
	svc := NewService(Deps{
		Labeling:    labeling,
		Accounts:    store.Accounts,
		Projects:    store.Projects,
		Tasks:       store.Tasks,
		Assignments: store.Assignments,
		UoW:         store.UoW,
		Counts:      budgets,
		Audit:       audit,
	})
	return fixture{
		svc:        svc,
		store:      store,
		audit:      audit,
		budgets:    budgets,
		labeling:   labeling,
		researcher: store.SeedAccount(t, "researcher", account.RoleResearcher, ""),
	}
}

func TestImportProjectCreatesPendingTasks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.ImportProject(ctx, ImportInput{ActorID: f.researcher.ID, ExternalProjectID: 7})
	if err != nil {
		t.Fatalf("ImportProject() error = %v", err)
	}
	if res.TasksCreated != 4 || res.TasksUpdated != 0 {
		t.Fatalf("ImportProject() = %+v", res)
	}
	p := res.Project
	if p.Title != "Cats" || p.OwnerID != f.researcher.ID || !p.IsActive || p.IsPublished || p.TotalTasks != 4 || p.LastSyncedAt == nil {
		t.Fatalf("imported project = %+v", p)
	}
	counts, err := f.store.Tasks.CountByStatus(ctx, p.ID)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts[task.StatusPending] != 4 {
		t.Fatalf("counts = %v, want 4 pending", counts)
	}

	entries, err := f.audit.List(ctx, audit.Filter{Action: audit.ActionTaskSync})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || !entries[0].Success || entries[0].ResourceID != p.ID {
		t.Fatalf("task.sync entries = %+v", entries)
	}
}

func TestReimportKeepsStatusesAndAddsTasks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first, err := f.svc.ImportProject(ctx, ImportInput{ActorID: f.researcher.ID, ExternalProjectID: 7})
	if err != nil {
		t.Fatalf("ImportProject() error = %v", err)
	}
	if _, err := f.budgets.SetBudget(ctx, budget.SetBudgetInput{ActorID: f.researcher.ID, ProjectID: first.Project.ID, Amount: decimalOf(t, "40.00")}); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if _, err := f.budgets.Publish(ctx, budget.ProjectInput{ActorID: f.researcher.ID, ProjectID: first.Project.ID}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	f.labeling.project.Title = "Cats v2"
	f.labeling.tasks = externalTasks(5)
	second, err := f.svc.ImportProject(ctx, ImportInput{ActorID: f.researcher.ID, ExternalProjectID: 7})
	if err != nil {
		t.Fatalf("ImportProject(second) error = %v", err)
	}
	if second.Project.ID != first.Project.ID || second.Project.Title != "Cats v2" {
		t.Fatalf("re-import project = %+v", second.Project)
	}
	if second.TasksCreated != 1 || second.TasksUpdated != 4 || second.Project.TotalTasks != 5 {
		t.Fatalf("re-import = %+v", second)
	}
	if !second.Project.PricePerTask.Equal(decimalOf(t, "8.00")) {
		t.Fatalf("price per task = %s, want 8.00", second.Project.PricePerTask)
	}
	counts, err := f.store.Tasks.CountByStatus(ctx, first.Project.ID)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts[task.StatusAvailable] != 5 {
		t.Fatalf("counts = %v, want 5 available", counts)
	}
}

func TestImportFailureWritesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.labeling.tasksErr = errors.New("502 bad gateway")

	_, err := f.svc.ImportProject(ctx, ImportInput{ActorID: f.researcher.ID, ExternalProjectID: 7})
	var integration *domain.IntegrationError
	if !errors.As(err, &integration) || integration.Service != "labeling" {
		t.Fatalf("ImportProject() error = %v, want labeling integration error", err)
	}
	owned, err := f.store.Projects.ListByOwner(ctx, f.researcher.ID)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(owned) != 0 {
		t.Fatalf("projects after failed import = %+v", owned)
	}
	entries, err := f.audit.List(ctx, audit.Filter{Action: audit.ActionTaskSync})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Success || entries[0].ResourceID != "7" {
		t.Fatalf("task.sync entries = %+v", entries)
	}
}

func TestImportRequiresResearcher(t *testing.T) {
	f := setup(t)
	annotator := f.store.SeedAccount(t, "annotator", account.RoleAnnotator, "")
	if _, err := f.svc.ImportProject(context.Background(), ImportInput{ActorID: annotator.ID, ExternalProjectID: 7}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ImportProject(annotator) error = %v", err)
	}
	if _, err := f.svc.ListExternalProjects(context.Background(), annotator.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ListExternalProjects(annotator) error = %v", err)
	}
	projects, err := f.svc.ListExternalProjects(context.Background(), f.researcher.ID)
	if err != nil || len(projects) != 1 {
		t.Fatalf("ListExternalProjects() = %+v, %v", projects, err)
	}
}

func TestPushAnnotationAuditsOutcome(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	annotator := f.store.SeedAccount(t, "annotator", account.RoleAnnotator, "")
	_, tasks := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.researcher.ID, Budget: "10.00", Published: true, TaskCount: 1})

	a, err := f.store.Assignments.CreateAssignment(ctx, task.Assignment{
		ID:          "as-1",
		TaskID:      tasks[0].ID,
		ProjectID:   tasks[0].ProjectID,
		AnnotatorID: annotator.ID,
		Status:      task.AssignmentSubmitted,
		Result:      json.RawMessage(`[{"value":{"choices":["cat"]}}]`),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}

	if err := f.svc.PushAnnotation(ctx, a.ID, f.researcher.ID); err != nil {
		t.Fatalf("PushAnnotation() error = %v", err)
	}
	if len(f.labeling.pushed) != 1 || f.labeling.pushed[0] != tasks[0].ExternalID {
		t.Fatalf("pushed = %v", f.labeling.pushed)
	}

	f.labeling.pushErr = errors.New("timeout")
	if err := f.svc.PushAnnotation(ctx, a.ID, f.researcher.ID); !errors.Is(err, domain.ErrIntegration) {
		t.Fatalf("PushAnnotation(failing) error = %v", err)
	}

	entries, err := f.audit.List(ctx, audit.Filter{ResourceID: a.ID, Action: audit.ActionTaskSync})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Success || !entries[1].Success {
		t.Fatalf("task.sync entries = %+v", entries)
	}
	if entries[1].Details["annotation_id"] == nil {
		t.Fatalf("successful push details = %v", entries[1].Details)
	}
}
