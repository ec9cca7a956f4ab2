package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager orchestrates scanning and executing pending migrations.
type Manager struct {
	executor *Executor
	files    fs.FS
	logger   *slog.Logger
}

// NewManager creates a Manager reading migration files from files.
func NewManager(executor *Executor, files fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{executor: executor, files: files, logger: logger.With("component", "migration")}
}

// RunMigrations executes all pending migrations in version order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	start := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "schema version",
		"current_version", status.CurrentVersion,
		"pending", len(status.PendingMigrations),
	)

	for i, migration := range status.PendingMigrations {
		logger := m.logger.With("version", migration.Version, "description", migration.Description)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "total", len(status.PendingMigrations))

		if err := m.executor.Execute(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return err
		}
	}

	if len(status.PendingMigrations) > 0 {
		m.logger.InfoContext(ctx, "migrations completed",
			"applied", len(status.PendingMigrations),
			"duration", time.Since(start),
		)
	}
	return nil
}

// Status compares the embedded files against schema_migrations. Applied files
// whose checksum changed are reported as an error.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	migrations, err := Scan(m.files)
	if err != nil {
		return Status{}, err
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	checksums := make(map[string]string, len(applied))
	status := Status{AppliedMigrations: applied}
	for _, record := range applied {
		checksums[record.Version] = record.Checksum
		status.CurrentVersion = record.Version
	}

	for _, migration := range migrations {
		checksum, ok := checksums[migration.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if checksum != "" && checksum != migration.Checksum {
			return Status{}, NewMigrationError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, checksum, migration.Checksum))
		}
	}
	return status, nil
}
