package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/salon-booking/internal/persistence/sqldb"
)

// NewSQLiteStore opens a migrated SQLite store in a temporary directory. The
// store is closed when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqldb.Store {
	tb.Helper()

	dsn := filepath.Join(tb.TempDir(), "salon.db")
	db, err := sqldb.Open(context.Background(), sqldb.Options{Dialect: sqldb.DialectSQLite, DSN: dsn})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return sqldb.NewStore(db)
}
