package repository

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"viberate/internal/domain/audit"
	"viberate/internal/infrastructure/persistence/sqlite/model"
	"viberate/internal/ports"
)

const defaultAuditListLimit = 100

type AuditRepository struct {
	db *gorm.DB
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) AppendEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return audit.Entry{}, err
	}

	details, err := mapColumn(e.Details)
	if err != nil {
		return audit.Entry{}, err
	}
	row := model.AuditLog{
		ActorID:      e.ActorID,
		Action:       string(e.Action),
		Timestamp:    e.Timestamp,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      details,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
	}
	if err := db.Create(&row).Error; err != nil {
		return audit.Entry{}, translateError(err, "append audit entry")
	}
	return mapAuditEntry(row), nil
}

func (r *AuditRepository) ListEntries(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.AuditLog{})
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action_type = ?", string(filter.Action))
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	var rows []model.AuditLog
	if err := query.Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translateError(err, "query audit entries")
	}

	items := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAuditEntry(row))
	}
	return items, nil
}

// UpdateEntry goes through the model hooks, which refuse every change.
func (r *AuditRepository) UpdateEntry(ctx context.Context, e audit.Entry) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if err := r.ensureExists(db, e.ID); err != nil {
		return err
	}

	err = db.Model(&model.AuditLog{ID: e.ID}).Updates(map[string]any{
		"success":       e.Success,
		"error_message": e.ErrorMessage,
	}).Error
	return translateError(err, "update audit entry")
}

func (r *AuditRepository) DeleteEntry(ctx context.Context, id uint64) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if err := r.ensureExists(db, id); err != nil {
		return err
	}

	err = db.Delete(&model.AuditLog{ID: id}).Error
	return translateError(err, "delete audit entry")
}

func (r *AuditRepository) ensureExists(db *gorm.DB, id uint64) error {
	var row model.AuditLog
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return notFoundOr(err, "audit entry", strconv.FormatUint(id, 10), "query audit entry")
	}
	return nil
}

func mapAuditEntry(row model.AuditLog) audit.Entry {
	return audit.Entry{
		ID:           row.ID,
		ActorID:      row.ActorID,
		Action:       audit.Action(row.Action),
		Timestamp:    row.Timestamp,
		ResourceType: row.ResourceType,
		ResourceID:   row.ResourceID,
		Details:      jsonMap(row.Details),
		IPAddress:    row.IPAddress,
		UserAgent:    row.UserAgent,
		Success:      row.Success,
		ErrorMessage: row.ErrorMessage,
	}
}
