// Package migrations applies the versioned SQL under migrations/ with golang-migrate. It is the
// alternative to the runtime schema provisioner for teams that keep schema in version control.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type migrator interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
}

var migratorFactory = func(sourceURL string, driver database.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	Dir             string
	MigrationsTable string
	Logger          Logger
}

// Status is the migration state recorded in the database.
type Status struct {
	Version uint
	Dirty   bool
	// Pristine is true when no migration has ever been applied.
	Pristine bool
}

// Up applies every pending migration. Nothing pending is not an error.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	return withMigrator(ctx, db, &cfg, "up", func(m migrator) error {
		cfg.info("Running SQL migrations", "dir", cfg.Dir, "table", cfg.MigrationsTable)
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				cfg.info("No migrations to apply")
				return nil
			}
			return err
		}
		cfg.info("Migrations applied successfully")
		return nil
	})
}

// Down reverts the most recently applied migration.
func Down(ctx context.Context, db *sql.DB, cfg Config) error {
	return withMigrator(ctx, db, &cfg, "down", func(m migrator) error {
		if err := m.Steps(-1); err != nil {
			if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, migrate.ErrNilVersion) {
				cfg.info("No migrations to revert")
				return nil
			}
			return err
		}
		cfg.info("Reverted one migration")
		return nil
	})
}

// Version reports the currently applied migration.
func Version(ctx context.Context, db *sql.DB, cfg Config) (Status, error) {
	// Buffered so a migrator that finishes after cancellation never blocks.
	result := make(chan Status, 1)
	err := withMigrator(ctx, db, &cfg, "version", func(m migrator) error {
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			result <- Status{Pristine: true}
			return nil
		}
		if err != nil {
			return err
		}
		result <- Status{Version: v, Dirty: dirty}
		return nil
	})
	if err != nil {
		return Status{}, err
	}
	return <-result, nil
}

func (cfg *Config) info(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Info(msg, args...)
	}
}

func (cfg *Config) warn(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, args...)
	}
}

func sourceURLFor(dir string) (string, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("migrations: resolve dir: %w", err)
	}

	// Build a proper file:// URL with correct escaping and path separators.
	// Use ToSlash to normalize Windows backslashes to forward slashes.
	return (&url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absDir),
	}).String(), absDir, nil
}

// withMigrator opens a migrator, runs op on it and closes it. migrate takes no context, so
// cancellation closes the migrator and returns ctx.Err() without waiting for op.
func withMigrator(ctx context.Context, db *sql.DB, cfg *Config, name string, op func(migrator) error) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = "migrations"
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = "schema_migrations"
	}

	sourceURL, absDir, err := sourceURLFor(cfg.Dir)
	if err != nil {
		return err
	}
	cfg.Dir = absDir

	driver, err := driverFactory(db, *cfg)
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}

	m, err := migratorFactory(sourceURL, driver)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}

	closeOnce := sync.Once{}
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if srcErr != nil {
				cfg.warn("Migrations source close error", "error", srcErr)
			}
			if dbErr != nil {
				cfg.warn("Migrations db close error", "error", dbErr)
			}
		})
	}
	defer closeMigrator()

	errCh := make(chan error, 1)
	go func() {
		errCh <- op(m)
	}()

	select {
	case <-ctx.Done():
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("migrations: %s: %w", name, err)
		}
		return nil
	}
}
