// Package sqlitetest opens migrated throwaway stores for tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"viberate/internal/infrastructure/persistence/schema"
	sqliterepo "viberate/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "viberate/internal/infrastructure/persistence/sqlite/uow"
)

// Store bundles every repository over one database.
type Store struct {
	DB          *gorm.DB
	UoW         *sqliteuow.UnitOfWork
	Accounts    *sqliterepo.AccountRepository
	Projects    *sqliterepo.ProjectRepository
	Tasks       *sqliterepo.TaskRepository
	Assignments *sqliterepo.AssignmentRepository
	Payments    *sqliterepo.PaymentRepository
	Audit       *sqliterepo.AuditRepository
}

// Open returns a migrated database in t.TempDir limited to one connection,
// which serializes writers the way a single SQLite file does.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "viberate.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := schema.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return db
}

func NewStore(t testing.TB) Store {
	t.Helper()
	db := Open(t)
	return Store{
		DB:          db,
		UoW:         sqliteuow.NewUnitOfWork(db),
		Accounts:    sqliterepo.NewAccountRepository(db),
		Projects:    sqliterepo.NewProjectRepository(db),
		Tasks:       sqliterepo.NewTaskRepository(db),
		Assignments: sqliterepo.NewAssignmentRepository(db),
		Payments:    sqliterepo.NewPaymentRepository(db),
		Audit:       sqliterepo.NewAuditRepository(db),
	}
}
