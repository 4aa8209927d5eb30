package postgres

import (
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// newMigrate builds a migrate instance over the connection. An empty
// migrationsDir selects the migrations compiled into the binary.
func (c *Connection) newMigrate(migrationsDir string) (*migrate.Migrate, error) {
	driver, err := pgxmigrate.WithInstance(c.db, &pgxmigrate.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}

	if migrationsDir == "" {
		src, err := iofs.New(embeddedMigrations, "migrations")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open embedded migrations")
		}
		m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
		}
		return m, nil
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "pgx5", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return m, nil
}

// RunMigrations applies all pending migrations. Being up to date is not an
// error.
func (c *Connection) RunMigrations(migrationsDir string) error {
	m, err := c.newMigrate(migrationsDir)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		return errors.Wrapf(err, errors.ErrCodeDatabaseError, "failed to run migrations (current version: %d)", version)
	}

	version, dirty, err := m.Version()
	if err != nil && !stderrors.Is(err, migrate.ErrNilVersion) {
		c.logger.Warn("Failed to get migration version", logging.Err(err))
	}
	c.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// MigrationStatus returns the applied version and dirty flag. A database
// without any applied migration reports version 0.
func (c *Connection) MigrationStatus(migrationsDir string) (version uint, dirty bool, err error) {
	m, err := c.newMigrate(migrationsDir)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return version, dirty, nil
}

// RollbackMigration rolls back steps migrations.
func (c *Connection) RollbackMigration(migrationsDir string, steps int) error {
	if steps <= 0 {
		return errors.New(errors.ErrCodeValidation, "steps must be greater than 0")
	}
	m, err := c.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeConflict, "no migrations to roll back")
		}
		return errors.Wrapf(err, errors.ErrCodeDatabaseError, "failed to rollback %d step(s)", steps)
	}
	return nil
}
