package budget

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
	"viberate/internal/domain/account"
	domainaudit "viberate/internal/domain/audit"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/infrastructure/persistence/sqlitetest"
	"viberate/internal/ports"
	auditlog "viberate/internal/usecase/audit"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event ports.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

type fixture struct {
	svc    *Service
	store  sqlitetest.Store
	audit  *auditlog.Service
	events *recordingPublisher
	owner  account.Account
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := sqlitetest.NewStore(t)
	audit := auditlog.NewService(store.Audit)
	events := &recordingPublisher{}
	owner := store.SeedAccount(t, "researcher", account.RoleResearcher, "")
	return fixture{
		svc:    NewService(store.Projects, store.Tasks, store.UoW, audit, events),
		store:  store,
		audit:  audit,
		events: events,
		owner:  owner,
	}
}

func TestSetBudgetDerivesPrice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, _ := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID, TaskCount: 10})

	got, err := f.svc.SetBudget(ctx, SetBudgetInput{ActorID: f.owner.ID, ProjectID: p.ID, Amount: decimal.RequireFromString("100.00")})
	if err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if !got.PricePerTask.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("SetBudget() price = %s, want 10.00", got.PricePerTask)
	}

	got, err = f.svc.SetBudget(ctx, SetBudgetInput{ActorID: f.owner.ID, ProjectID: p.ID, Amount: decimal.RequireFromString("0")})
	if err != nil {
		t.Fatalf("SetBudget(0) error = %v", err)
	}
	if !got.PricePerTask.IsZero() {
		t.Fatalf("SetBudget(0) price = %s, want 0", got.PricePerTask)
	}

	entries, err := f.audit.List(ctx, domainaudit.Filter{Action: domainaudit.ActionTaskBudget, ResourceID: p.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Details["new_budget"] != "0.00" {
		t.Fatalf("audit entries = %+v", entries)
	}
}

func TestSetBudgetWithoutTasksPricesZero(t *testing.T) {
	f := setup(t)
	p, _ := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID})

	got, err := f.svc.SetBudget(context.Background(), SetBudgetInput{ActorID: f.owner.ID, ProjectID: p.ID, Amount: decimal.RequireFromString("50")})
	if err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if !got.PricePerTask.IsZero() || !got.Budget.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("SetBudget() = %+v", got)
	}
}

func TestSetBudgetRejectsNegativeAndForeignOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, _ := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID, TaskCount: 2})

	_, err := f.svc.SetBudget(ctx, SetBudgetInput{ActorID: f.owner.ID, ProjectID: p.ID, Amount: decimal.RequireFromString("-1")})
	if !errors.Is(err, project.ErrNegativeBudget) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("SetBudget(-1) error = %v", err)
	}

	other := f.store.SeedAccount(t, "other", account.RoleResearcher, "")
	_, err = f.svc.SetBudget(ctx, SetBudgetInput{ActorID: other.ID, ProjectID: p.ID, Amount: decimal.NewFromInt(5)})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("SetBudget(other owner) error = %v, want forbidden", err)
	}

	_, err = f.svc.SetBudget(ctx, SetBudgetInput{ActorID: f.owner.ID, ProjectID: "missing", Amount: decimal.NewFromInt(5)})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SetBudget(missing) error = %v, want not found", err)
	}
}

func TestPublishRequiresBudget(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, tasks := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID, TaskCount: 3})

	_, err := f.svc.Publish(ctx, ProjectInput{ActorID: f.owner.ID, ProjectID: p.ID})
	if !errors.Is(err, project.ErrInsufficientBudget) {
		t.Fatalf("Publish() error = %v, want insufficient budget", err)
	}
	if got := f.store.TaskStatus(t, tasks[0].ID); got != task.StatusPending {
		t.Fatalf("task status = %s, want pending", got)
	}

	failed, err := f.audit.List(ctx, domainaudit.Filter{Action: domainaudit.ActionTaskPublish})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(failed) != 1 || failed[0].Success {
		t.Fatalf("audit = %+v, want one failed publish", failed)
	}
}

func TestPublishReleasesPendingAndUnpublishKeepsStatuses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, tasks := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID, Budget: "30.00", TaskCount: 3})

	res, err := f.svc.Publish(ctx, ProjectInput{ActorID: f.owner.ID, ProjectID: p.ID})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.TasksReleased != 3 || !res.Project.IsPublished {
		t.Fatalf("Publish() = %+v", res)
	}

	visible, err := f.svc.ListAvailableTasks(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("ListAvailableTasks() error = %v", err)
	}
	if len(visible) != 3 {
		t.Fatalf("ListAvailableTasks() len = %d, want 3", len(visible))
	}

	listings, err := f.svc.ListPublishedProjects(ctx)
	if err != nil {
		t.Fatalf("ListPublishedProjects() error = %v", err)
	}
	if len(listings) != 1 || listings[0].AvailableTasks != 3 {
		t.Fatalf("ListPublishedProjects() = %+v", listings)
	}

	if _, err := f.svc.Unpublish(ctx, ProjectInput{ActorID: f.owner.ID, ProjectID: p.ID}); err != nil {
		t.Fatalf("Unpublish() error = %v", err)
	}
	if got := f.store.TaskStatus(t, tasks[0].ID); got != task.StatusAvailable {
		t.Fatalf("task status after unpublish = %s, want available", got)
	}
	visible, err = f.svc.ListAvailableTasks(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListAvailableTasks() error = %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("ListAvailableTasks() after unpublish len = %d, want 0", len(visible))
	}

	names := f.events.names()
	if len(names) != 2 || names[0] != "project.published" || names[1] != "project.unpublished" {
		t.Fatalf("events = %v", names)
	}

	if _, err := f.svc.SetBudget(ctx, SetBudgetInput{ActorID: f.owner.ID, ProjectID: p.ID, Amount: decimal.Zero}); err != nil {
		t.Fatalf("SetBudget(0) on unpublished error = %v", err)
	}
}

func TestPublishedProjectCannotDropToZeroBudget(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, _ := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID, Budget: "10.00", Published: true, TaskCount: 1})

	_, err := f.svc.SetBudget(ctx, SetBudgetInput{ActorID: f.owner.ID, ProjectID: p.ID, Amount: decimal.Zero})
	if !errors.Is(err, project.ErrInsufficientBudget) {
		t.Fatalf("SetBudget(0) error = %v, want insufficient budget", err)
	}
}

func TestInactiveProjectTasksAreHidden(t *testing.T) {
	f := setup(t)
	f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID, Budget: "10.00", Published: true, Inactive: true, TaskCount: 2})

	visible, err := f.svc.ListAvailableTasks(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListAvailableTasks() error = %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("ListAvailableTasks() len = %d, want 0", len(visible))
	}
}

func TestRecomputeTaskCountsAndStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, tasks := f.store.SeedProject(t, sqlitetest.ProjectSeed{OwnerID: f.owner.ID, Budget: "100.00", Published: true, TaskCount: 4})

	for _, tk := range tasks[:2] {
		if ok, err := f.store.Tasks.CompareAndSetStatus(ctx, tk.ID, []task.Status{task.StatusAvailable}, task.StatusCompleted); err != nil || !ok {
			t.Fatalf("CompareAndSetStatus() = %v, %v", ok, err)
		}
	}

	got, err := f.svc.RecomputeTaskCounts(ctx, p.ID)
	if err != nil {
		t.Fatalf("RecomputeTaskCounts() error = %v", err)
	}
	if got.TotalTasks != 4 || got.CompletedTasks != 2 || !got.PricePerTask.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("RecomputeTaskCounts() = %+v", got)
	}

	stats, err := f.svc.ProjectStats(ctx, ProjectInput{ActorID: f.owner.ID, ProjectID: p.ID})
	if err != nil {
		t.Fatalf("ProjectStats() error = %v", err)
	}
	if !stats.RemainingBudget.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("ProjectStats() remaining = %s, want 50", stats.RemainingBudget)
	}
	if !stats.CompletionPercentage.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("ProjectStats() completion = %s, want 50", stats.CompletionPercentage)
	}
	if stats.TasksByStatus[task.StatusAvailable] != 2 {
		t.Fatalf("ProjectStats() counts = %v", stats.TasksByStatus)
	}
}
