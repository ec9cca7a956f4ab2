package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrations.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	t.Run("applies embedded migrations once", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		manager := NewManager(NewExecutor(db, DialectSQLite), Embedded(), nil)

		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("first RunMigrations failed: %v", err)
		}
		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("second RunMigrations failed: %v", err)
		}

		status, err := manager.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if len(status.PendingMigrations) != 0 {
			t.Fatalf("expected no pending migrations, got %d", len(status.PendingMigrations))
		}
		if status.CurrentVersion != "003" {
			t.Fatalf("expected current version 003, got %q", status.CurrentVersion)
		}

		var count int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count); err != nil {
			t.Fatalf("bookings table missing: %v", err)
		}
	})

	t.Run("rolls back a failing migration", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		files := fstest.MapFS{
			"001_ok.sql":     {Data: []byte("CREATE TABLE a (id TEXT);")},
			"002_broken.sql": {Data: []byte("CREATE TABLE b (id TEXT); INSERT INTO missing VALUES (1);")},
		}
		manager := NewManager(NewExecutor(db, DialectSQLite), files, nil)

		err := manager.RunMigrations(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}

		status, err := manager.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.CurrentVersion != "001" || len(status.PendingMigrations) != 1 {
			t.Fatalf("unexpected status after failure: %+v", status)
		}
		if _, err := db.ExecContext(ctx, `SELECT * FROM b`); err == nil {
			t.Fatalf("expected table b to be rolled back")
		}
	})

	t.Run("detects modified migrations", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		original := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
		if err := NewManager(NewExecutor(db, DialectSQLite), original, nil).RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations failed: %v", err)
		}

		modified := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE a (id TEXT, extra TEXT);")}}
		err := NewManager(NewExecutor(db, DialectSQLite), modified, nil).RunMigrations(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}
