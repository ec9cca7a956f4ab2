// Package sqldb implements the persistence repositories on database/sql.
// SQLite (modernc.org/sqlite) and PostgreSQL (github.com/lib/pq) share the
// same schema and queries; placeholders are rebound per dialect.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/example/salon-booking/internal/persistence"
	"github.com/example/salon-booking/internal/persistence/sqldb/migration"
)

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Options configures Open.
type Options struct {
	Dialect         Dialect
	DSN             string
	BusyTimeout     time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	Logger          *slog.Logger
}

// DB wraps a *sql.DB with the dialect specific helpers shared by the repositories.
type DB struct {
	db      *sql.DB
	dialect Dialect
	mapper  *ErrorMapper
	logger  *slog.Logger
}

// Open connects to the configured database and applies connection settings.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("sqldb: dsn is required")
	}

	var driver string
	switch opts.Dialect {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("sqldb: unsupported dialect %q", opts.Dialect)
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", driver, err)
	}

	if opts.Dialect == DialectSQLite {
		// PRAGMAs are per connection, so SQLite is pinned to a single one.
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb: ping %s: %w", driver, err)
	}

	if opts.Dialect == DialectSQLite {
		if err := configureSQLite(ctx, db, opts.BusyTimeout); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DB{db: db, dialect: opts.Dialect, mapper: NewErrorMapper(), logger: logger}, nil
}

func configureSQLite(ctx context.Context, db *sql.DB, busyTimeout time.Duration) error {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("sqldb: %s: %w", pragma, err)
		}
	}
	return nil
}

// SQL exposes the underlying connection pool.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Dialect reports the SQL flavour of the connection.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Close closes the connection pool.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Ping tests the database connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	manager := migration.NewManager(migration.NewExecutor(d.db, migration.Dialect(d.dialect)), migration.Embedded(), d.logger)
	return manager.RunMigrations(ctx)
}

// TransactionFunc represents a function that executes within a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction runs fn inside a transaction, rolling back when fn returns
// an error or panics.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqldb: commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, d.rebind(query), args...)
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store combines every repository on a single connection pool.
type Store struct {
	*DB
	*BookingRepository
	*ContactRepository
	*UserRepository
	*SessionRepository
}

var _ persistence.Store = (*Store)(nil)

// NewStore wires the repositories onto db.
func NewStore(db *DB) *Store {
	return &Store{
		DB:                db,
		BookingRepository: NewBookingRepository(db),
		ContactRepository: NewContactRepository(db),
		UserRepository:    NewUserRepository(db),
		SessionRepository: NewSessionRepository(db),
	}
}

// timeLayout keeps fractional seconds at a fixed width so stored timestamps
// sort and compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
