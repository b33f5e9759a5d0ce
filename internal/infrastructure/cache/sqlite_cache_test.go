package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"viberate/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "cache.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(&model.CacheEntry{}); err != nil {
		t.Fatalf("auto migrate cache_entries: %v", err)
	}

	return NewSQLiteCache(db)
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "balance:acct-1", "12.500000", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "balance:acct-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "12.500000" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "balance:acct-1", "7.000000", 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, err = cache.Get(ctx, "balance:acct-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "7.000000" {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "balance:acct-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, err := cache.Get(ctx, "balance:acct-1"); err != nil || found {
		t.Fatalf("Get() after delete found=%v err=%v", found, err)
	}
}

func TestSQLiteCacheExpires(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	if err := cache.Set(ctx, "balance:acct-2", "1.000000", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, _ := cache.Get(ctx, "balance:acct-2"); !found {
		t.Fatalf("Get() before expiry found=false")
	}

	cache.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, found, _ := cache.Get(ctx, "balance:acct-2"); found {
		t.Fatalf("Get() after expiry found=true")
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}

func TestMemoryCacheSetGetDelete(t *testing.T) {
	cache, err := NewMemoryCache(1 << 16)
	if err != nil {
		t.Fatalf("NewMemoryCache() error = %v", err)
	}
	defer cache.Close()
	ctx := context.Background()

	if err := cache.Set(ctx, "balance:acct-3", "3.250000", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, found, err := cache.Get(ctx, "balance:acct-3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "3.250000" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "balance:acct-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := cache.Get(ctx, "balance:acct-3"); found {
		t.Fatalf("Get() after delete found=true")
	}
	if err := cache.Set(ctx, "", "x", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
}
