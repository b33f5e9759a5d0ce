package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"viberate/internal/domain/project"
	"viberate/internal/domain/task"
	"viberate/internal/infrastructure/persistence/sqlite/model"
	"viberate/internal/ports"
)

type ProjectRepository struct {
	db *gorm.DB
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) UpsertProject(ctx context.Context, p project.Project) (project.Project, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return project.Project{}, err
	}

	var existing model.Project
	err = db.Where("owner_id = ? AND external_id = ?", p.OwnerID, p.ExternalID).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := model.Project{
			ID:             p.ID,
			OwnerID:        p.OwnerID,
			ExternalID:     p.ExternalID,
			Title:          p.Title,
			Description:    p.Description,
			LabelConfig:    p.LabelConfig,
			Budget:         p.Budget,
			PricePerTask:   p.PricePerTask,
			TotalTasks:     p.TotalTasks,
			CompletedTasks: p.CompletedTasks,
			IsActive:       p.IsActive,
			IsPublished:    p.IsPublished,
			LastSyncedAt:   p.LastSyncedAt,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		}
		if err := db.Create(&row).Error; err != nil {
			return project.Project{}, translateError(err, "create project")
		}
		return mapProject(row), nil
	case err != nil:
		return project.Project{}, translateError(err, "query project by external id")
	}

	if err := db.Model(&existing).Updates(map[string]any{
		"title":          p.Title,
		"description":    p.Description,
		"label_config":   p.LabelConfig,
		"last_synced_at": p.LastSyncedAt,
		"updated_at":     p.UpdatedAt,
	}).Error; err != nil {
		return project.Project{}, translateError(err, "update synced project")
	}
	return r.GetProject(ctx, existing.ID)
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (project.Project, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return project.Project{}, err
	}

	var row model.Project
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return project.Project{}, notFoundOr(err, "project", id, "query project")
	}
	return mapProject(row), nil
}

func (r *ProjectRepository) SaveBudget(ctx context.Context, id string, budget decimal.Decimal, price decimal.Decimal) error {
	return r.update(ctx, id, "save project budget", map[string]any{
		"budget_usdc":    budget,
		"price_per_task": price,
	})
}

func (r *ProjectRepository) SetPublished(ctx context.Context, id string, published bool) error {
	return r.update(ctx, id, "set project published", map[string]any{
		"is_published": published,
	})
}

func (r *ProjectRepository) SaveCounts(ctx context.Context, id string, total int, completed int, price decimal.Decimal) error {
	return r.update(ctx, id, "save project counts", map[string]any{
		"total_tasks":     total,
		"completed_tasks": completed,
		"price_per_task":  price,
	})
}

func (r *ProjectRepository) update(ctx context.Context, id string, op string, values map[string]any) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	values["updated_at"] = time.Now().UTC()
	res := db.Model(&model.Project{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return translateError(res.Error, op)
	}
	if res.RowsAffected == 0 {
		return notFoundOr(gorm.ErrRecordNotFound, "project", id, op)
	}
	return nil
}

func (r *ProjectRepository) ListPublished(ctx context.Context) ([]ports.ProjectListing, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Project
	if err := db.
		Where("is_active = ? AND is_published = ?", true, true).
		Order("created_at desc").
		Find(&rows).Error; err != nil {
		return nil, translateError(err, "query published projects")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var counts []struct {
		ProjectID string
		N         int
	}
	if err := db.Model(&model.Task{}).
		Select("project_id, count(*) as n").
		Where("project_id IN ? AND status = ?", ids, string(task.StatusAvailable)).
		Group("project_id").
		Scan(&counts).Error; err != nil {
		return nil, translateError(err, "count available tasks")
	}
	available := make(map[string]int, len(counts))
	for _, c := range counts {
		available[c.ProjectID] = c.N
	}

	items := make([]ports.ProjectListing, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.ProjectListing{
			Project:        mapProject(row),
			AvailableTasks: available[row.ID],
		})
	}
	return items, nil
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]project.Project, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Project
	if err := db.Where("owner_id = ?", ownerID).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, translateError(err, "query owner projects")
	}

	items := make([]project.Project, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapProject(row))
	}
	return items, nil
}

func mapProject(row model.Project) project.Project {
	return project.Project{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		ExternalID:     row.ExternalID,
		Title:          row.Title,
		Description:    row.Description,
		LabelConfig:    row.LabelConfig,
		Budget:         row.Budget,
		PricePerTask:   row.PricePerTask,
		TotalTasks:     row.TotalTasks,
		CompletedTasks: row.CompletedTasks,
		IsActive:       row.IsActive,
		IsPublished:    row.IsPublished,
		LastSyncedAt:   row.LastSyncedAt,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
