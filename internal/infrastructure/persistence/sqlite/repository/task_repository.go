package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"viberate/internal/domain/task"
	"viberate/internal/infrastructure/persistence/sqlite/model"
	"viberate/internal/ports"
)

const upsertBatchSize = 200

type TaskRepository struct {
	db *gorm.DB
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) UpsertTasks(ctx context.Context, projectID string, tasks []ports.TaskUpsert, initialStatus task.Status) (ports.UpsertResult, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.UpsertResult{}, err
	}
	if len(tasks) == 0 {
		return ports.UpsertResult{}, nil
	}

	externalIDs := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		externalIDs = append(externalIDs, t.ExternalID)
	}

	var existing []int64
	if err := db.Model(&model.Task{}).
		Where("project_id = ? AND external_id IN ?", projectID, externalIDs).
		Pluck("external_id", &existing).Error; err != nil {
		return ports.UpsertResult{}, translateError(err, "query existing tasks")
	}
	known := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	now := time.Now().UTC()
	var result ports.UpsertResult
	fresh := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := known[t.ExternalID]; ok {
			if err := db.Model(&model.Task{}).
				Where("project_id = ? AND external_id = ?", projectID, t.ExternalID).
				Updates(map[string]any{
					"data":       jsonColumn(t.Data, "{}"),
					"updated_at": now,
				}).Error; err != nil {
				return ports.UpsertResult{}, translateError(err, "update synced task")
			}
			result.Updated++
			continue
		}
		known[t.ExternalID] = struct{}{}
		fresh = append(fresh, model.Task{
			ID:           uuid.NewString(),
			ProjectID:    projectID,
			ExternalID:   t.ExternalID,
			Data:         jsonColumn(t.Data, "{}"),
			Status:       string(initialStatus),
			Difficulty:   "medium",
			RewardPoints: 10,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if len(fresh) > 0 {
		if err := db.CreateInBatches(&fresh, upsertBatchSize).Error; err != nil {
			return ports.UpsertResult{}, translateError(err, "insert synced tasks")
		}
		result.Created = len(fresh)
	}
	return result, nil
}

func (r *TaskRepository) GetTask(ctx context.Context, id string) (task.Task, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return task.Task{}, err
	}

	var row model.Task
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return task.Task{}, notFoundOr(err, "task", id, "query task")
	}
	return mapTask(row), nil
}

func (r *TaskRepository) CompareAndSetStatus(ctx context.Context, id string, from []task.Status, to task.Status) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	res := db.Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, toStrings(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translateError(res.Error, "compare and set task status")
	}
	return res.RowsAffected == 1, nil
}

func (r *TaskRepository) PublishPending(ctx context.Context, projectID string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	res := db.Model(&model.Task{}).
		Where("project_id = ? AND status = ?", projectID, string(task.StatusPending)).
		Updates(map[string]any{
			"status":     string(task.StatusAvailable),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, translateError(res.Error, "publish pending tasks")
	}
	return res.RowsAffected, nil
}

func (r *TaskRepository) CountByStatus(ctx context.Context, projectID string) (map[task.Status]int, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		N      int
	}
	if err := db.Model(&model.Task{}).
		Select("status, count(*) as n").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err, "count tasks by status")
	}

	counts := make(map[task.Status]int, len(rows))
	for _, row := range rows {
		counts[task.Status(row.Status)] = row.N
	}
	return counts, nil
}

func (r *TaskRepository) ListVisible(ctx context.Context, filter ports.VisibleTaskFilter) ([]task.Task, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	visible := db.Model(&model.Project{}).
		Select("id").
		Where("is_active = ? AND is_published = ?", true, true)

	query := db.Model(&model.Task{}).
		Where("status = ?", string(task.StatusAvailable)).
		Where("project_id IN (?)", visible)
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Task
	if err := query.Order("created_at asc").Order("external_id asc").Find(&rows).Error; err != nil {
		return nil, translateError(err, "query visible tasks")
	}

	items := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapTask(row))
	}
	return items, nil
}

func mapTask(row model.Task) task.Task {
	return task.Task{
		ID:           row.ID,
		ProjectID:    row.ProjectID,
		ExternalID:   row.ExternalID,
		Data:         rawJSON(row.Data),
		Status:       task.Status(row.Status),
		Difficulty:   row.Difficulty,
		RewardPoints: row.RewardPoints,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
