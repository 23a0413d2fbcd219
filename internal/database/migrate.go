package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means a previous migration stopped halfway. It has to be
// repaired with a forced version before the service can start.
var ErrDirtySchema = errors.New("database schema is dirty")

// Migrator applies the embedded employee, attendance and embedding schema.
type Migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

// Open connects to databaseURL and prepares a Migrator that owns the
// connection until Close.
func Open(ctx context.Context, databaseURL string) (*Migrator, error) {
	dbName, err := DatabaseName(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := openMigrationDB(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	m, err := NewMigrator(db, dbName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	m.db = db
	return m, nil
}

// NewMigrator wraps an existing handle. The caller keeps ownership of db.
func NewMigrator(db *sql.DB, dbName string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		DatabaseName: dbName,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// RunMigrations brings the schema at databaseURL to the latest version.
// The API calls it on startup; a dirty schema stops it with ErrDirtySchema.
func RunMigrations(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	m, err := Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.WarnContext(ctx, "close migrator", slog.String("error", err.Error()))
		}
	}()

	before, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, before)
	}

	if err := m.Up(); err != nil {
		return err
	}

	after, _, err := m.Version()
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "database schema ready",
		slog.Uint64("from_version", uint64(before)),
		slog.Uint64("version", uint64(after)),
	)
	return nil
}

// Up applies pending migrations; an up-to-date schema is not an error.
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back one migration. Development only.
func (m *Migrator) Down() error {
	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// Version reports 0 for a database that was never migrated.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clean without running anything.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if m.db != nil {
		// the postgres driver may already have closed it
		_ = m.db.Close()
	}
	return errors.Join(srcErr, dbErr)
}
