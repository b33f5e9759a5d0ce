package schema

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"viberate/internal/errs"
	"viberate/internal/infrastructure/persistence/sqlite/model"
)

// Version is bumped whenever models or guards change.
const Version = 2

const versionKey = "schema_version"

// Models lists every table owned by the marketplace store.
func Models() []any {
	return []any{
		&model.Account{},
		&model.Project{},
		&model.Task{},
		&model.Assignment{},
		&model.PaymentTransaction{},
		&model.AuditLog{},
		&model.CacheEntry{},
		&SchemaMeta{},
	}
}

// guards are enforced by SQLite itself so that raw SQL cannot bypass the
// model hooks.
var guards = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_live_task
		ON assignments(task_id)
		WHERE status IN ('assigned', 'accepted', 'in_progress', 'submitted')`,
	`CREATE TRIGGER IF NOT EXISTS audit_logs_no_update
		BEFORE UPDATE ON audit_logs
		BEGIN SELECT RAISE(ABORT, 'audit_logs rows are immutable'); END`,
	`CREATE TRIGGER IF NOT EXISTS audit_logs_no_delete
		BEFORE DELETE ON audit_logs
		BEGIN SELECT RAISE(ABORT, 'audit_logs rows are immutable'); END`,
	`CREATE TRIGGER IF NOT EXISTS payment_transactions_fixed_fields
		BEFORE UPDATE ON payment_transactions
		WHEN NEW.assignment_id IS NOT OLD.assignment_id
			OR NEW.recipient_id IS NOT OLD.recipient_id
			OR NEW.amount_usdc IS NOT OLD.amount_usdc
			OR NEW.platform_fee_usdc IS NOT OLD.platform_fee_usdc
			OR NEW.to_address IS NOT OLD.to_address
			OR NEW.network IS NOT OLD.network
			OR (OLD.transaction_hash IS NOT NULL AND NEW.transaction_hash IS NOT OLD.transaction_hash)
		BEGIN SELECT RAISE(ABORT, 'payment_transactions fixed fields are immutable'); END`,
	`CREATE TRIGGER IF NOT EXISTS payment_transactions_no_delete
		BEFORE DELETE ON payment_transactions
		BEGIN SELECT RAISE(ABORT, 'payment_transactions rows are immutable'); END`,
}

// Migrate creates tables, indexes and immutability guards, then records the
// schema version.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	for _, stmt := range guards {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return errs.Wrap(err, "install schema guard")
		}
	}

	meta := SchemaMeta{Key: versionKey, Value: strconv.Itoa(Version)}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error; err != nil {
		return errs.Wrap(err, "record schema version")
	}
	return nil
}

// CurrentVersion reads the recorded schema version, 0 when never migrated.
func CurrentVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var meta SchemaMeta
	err := db.WithContext(ctx).Where("key = ?", versionKey).Take(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(err, "query schema version")
	}
	v, err := strconv.Atoi(meta.Value)
	if err != nil {
		return 0, errs.Wrapf(err, "parse schema version %q", meta.Value)
	}
	return v, nil
}
