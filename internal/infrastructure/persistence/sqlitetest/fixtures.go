package sqlitetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"viberate/internal/domain/account"
	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/ports"
)

// SeedAccount stores an account; a non-empty wallet gives it a wallet address.
func (s Store) SeedAccount(t testing.TB, username string, role account.Role, wallet string) account.Account {
	t.Helper()
	now := time.Now().UTC()
	a, err := s.Accounts.CreateAccount(context.Background(), account.Account{
		ID:            uuid.NewString(),
		Username:      username,
		Role:          role,
		WalletAddress: wallet,
		Rating:        decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", username, err)
	}
	return a
}

// ProjectSeed describes a project with taskCount imported tasks.
type ProjectSeed struct {
	OwnerID    string
	ExternalID int64
	Budget     string
	Published  bool
	Inactive   bool
	TaskCount  int
}

// SeedProject stores the project and its tasks, then recounts. Tasks start
// available when the project is published and pending otherwise.
func (s Store) SeedProject(t testing.TB, seed ProjectSeed) (project.Project, []task.Task) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	budget := decimal.Zero
	if seed.Budget != "" {
		budget = decimal.RequireFromString(seed.Budget)
	}
	if seed.ExternalID == 0 {
		seed.ExternalID = now.UnixNano()
	}

	p, err := s.Projects.UpsertProject(ctx, project.Project{
		ID:          uuid.NewString(),
		OwnerID:     seed.OwnerID,
		ExternalID:  seed.ExternalID,
		Title:       fmt.Sprintf("project %d", seed.ExternalID),
		Budget:      budget,
		IsActive:    !seed.Inactive,
		IsPublished: seed.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	upserts := make([]ports.TaskUpsert, 0, seed.TaskCount)
	for i := 1; i <= seed.TaskCount; i++ {
		upserts = append(upserts, ports.TaskUpsert{
			ExternalID: int64(i),
			Data:       []byte(fmt.Sprintf(`{"image":"%d.png"}`, i)),
		})
	}
	if _, err := s.Tasks.UpsertTasks(ctx, p.ID, upserts, task.SyncedStatus(seed.Published)); err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	next := p.WithCounts(seed.TaskCount, 0)
	if err := s.Projects.SaveCounts(ctx, p.ID, next.TotalTasks, next.CompletedTasks, next.PricePerTask); err != nil {
		t.Fatalf("seed counts: %v", err)
	}
	p, err = s.Projects.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}

	var tasks []task.Task
	var ids []string
	if err := s.DB.Table("tasks").Where("project_id = ?", p.ID).Order("external_id asc").Pluck("id", &ids).Error; err != nil {
		t.Fatalf("list seeded tasks: %v", err)
	}
	for _, id := range ids {
		tk, err := s.Tasks.GetTask(ctx, id)
		if err != nil {
			t.Fatalf("load seeded task: %v", err)
		}
		tasks = append(tasks, tk)
	}
	return p, tasks
}

// TaskStatus reads a task's current status.
func (s Store) TaskStatus(t testing.TB, id string) task.Status {
	t.Helper()
	tk, err := s.Tasks.GetTask(context.Background(), id)
	if err != nil {
		t.Fatalf("load task %s: %v", id, err)
	}
	return tk.Status
}
