package postgres

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
)

// Migrator applies the SQL files under a golang-migrate source URL
// (file://migrations by default).  It talks to the server through lib/pq,
// separately from the pgx pool.
type Migrator struct {
	dsn    string
	source string
	logger logging.Logger
}

func NewMigrator(cfg config.DatabaseConfig, log logging.Logger) *Migrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Migrator{dsn: cfg.DSN(), source: cfg.MigrationPath, logger: log}
}

// open returns a migrate instance and a close func for both it and the
// database handle.
func (m *Migrator) open() (*migrate.Migrate, func(), error) {
	if m.source == "" {
		return nil, nil, fmt.Errorf("postgres: migration path is empty")
	}
	db, err := sql.Open("postgres", m.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: open migration connection: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres: create migration driver: %w", err)
	}
	mg, err := migrate.NewWithDatabaseInstance(m.source, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres: create migrate instance: %w", err)
	}
	return mg, func() { _, _ = mg.Close() }, nil
}

// Up applies all pending migrations.  No pending migrations is not an error.
func (m *Migrator) Up() error {
	mg, done, err := m.open()
	if err != nil {
		return err
	}
	defer done()

	if err := mg.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: apply migrations: %w", err)
	}
	v, dirty, _ := mg.Version()
	m.logger.Info("database migrations applied", logging.Int64("version", int64(v)), logging.Bool("dirty", dirty))
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("postgres: steps must be greater than 0, got %d", steps)
	}
	mg, done, err := m.open()
	if err != nil {
		return err
	}
	defer done()

	if err := mg.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("postgres: no migrations to roll back")
		}
		return fmt.Errorf("postgres: roll back %d step(s): %w", steps, err)
	}
	return nil
}

// Status reports the applied version; 0 when nothing has been applied.
func (m *Migrator) Status() (version uint, dirty bool, err error) {
	mg, done, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer done()

	version, dirty, err = mg.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the version without running migrations, to recover a dirty
// schema by hand.
func (m *Migrator) Force(version int) error {
	mg, done, err := m.open()
	if err != nil {
		return err
	}
	defer done()

	if err := mg.Force(version); err != nil {
		return fmt.Errorf("postgres: force version %d: %w", version, err)
	}
	return nil
}

//Personal.AI order the ending
