package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"viberate/internal/domain/task"
	"viberate/internal/infrastructure/persistence/sqlite/model"
	"viberate/internal/ports"
)

type AssignmentRepository struct {
	db *gorm.DB
}

var _ ports.AssignmentRepository = (*AssignmentRepository)(nil)

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) CreateAssignment(ctx context.Context, a task.Assignment) (task.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return task.Assignment{}, err
	}

	row := model.Assignment{
		ID:           a.ID,
		TaskID:       a.TaskID,
		ProjectID:    a.ProjectID,
		AnnotatorID:  a.AnnotatorID,
		Status:       string(a.Status),
		Result:       jsonColumn(a.Result, "null"),
		QualityScore: a.QualityScore,
		Feedback:     a.Feedback,
		AssignedAt:   a.AssignedAt,
		AcceptedAt:   a.AcceptedAt,
		StartedAt:    a.StartedAt,
		SubmittedAt:  a.SubmittedAt,
		CompletedAt:  a.CompletedAt,
		UpdatedAt:    a.AssignedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return task.Assignment{}, translateError(err, "create assignment")
	}
	return mapAssignment(row), nil
}

func (r *AssignmentRepository) GetAssignment(ctx context.Context, id string) (task.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return task.Assignment{}, err
	}

	var row model.Assignment
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return task.Assignment{}, notFoundOr(err, "assignment", id, "query assignment")
	}
	return mapAssignment(row), nil
}

func (r *AssignmentRepository) TransitionAssignment(ctx context.Context, id string, from []task.AssignmentStatus, patch task.AssignmentPatch) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"status":     string(patch.Status),
		"updated_at": time.Now().UTC(),
	}
	if patch.Result != nil {
		updates["annotation_result"] = jsonColumn(patch.Result, "null")
	}
	if patch.QualityScore != nil {
		updates["quality_score"] = *patch.QualityScore
	}
	if patch.Feedback != nil {
		updates["feedback"] = *patch.Feedback
	}
	if patch.AcceptedAt != nil {
		updates["accepted_at"] = *patch.AcceptedAt
	}
	if patch.StartedAt != nil {
		updates["started_at"] = *patch.StartedAt
	}
	if patch.SubmittedAt != nil {
		updates["submitted_at"] = *patch.SubmittedAt
	}
	if patch.CompletedAt != nil {
		updates["completed_at"] = *patch.CompletedAt
	}

	res := db.Model(&model.Assignment{}).
		Where("id = ? AND status IN ?", id, toStrings(from)).
		Updates(updates)
	if res.Error != nil {
		return false, translateError(res.Error, "transition assignment")
	}
	return res.RowsAffected == 1, nil
}

func (r *AssignmentRepository) ListAssignments(ctx context.Context, filter ports.AssignmentFilter) ([]task.Assignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Assignment{})
	if filter.AnnotatorID != "" {
		query = query.Where("annotator_id = ?", filter.AnnotatorID)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.ExcludeCancelled {
		query = query.Where("status <> ?", string(task.AssignmentCancelled))
	}

	var rows []model.Assignment
	if err := query.Order("assigned_at desc").Find(&rows).Error; err != nil {
		return nil, translateError(err, "query assignments")
	}

	items := make([]task.Assignment, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAssignment(row))
	}
	return items, nil
}

func mapAssignment(row model.Assignment) task.Assignment {
	return task.Assignment{
		ID:           row.ID,
		TaskID:       row.TaskID,
		ProjectID:    row.ProjectID,
		AnnotatorID:  row.AnnotatorID,
		Status:       task.AssignmentStatus(row.Status),
		Result:       rawJSON(row.Result),
		QualityScore: row.QualityScore,
		Feedback:     row.Feedback,
		AssignedAt:   row.AssignedAt,
		AcceptedAt:   row.AcceptedAt,
		StartedAt:    row.StartedAt,
		SubmittedAt:  row.SubmittedAt,
		CompletedAt:  row.CompletedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
