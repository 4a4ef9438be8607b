package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrate applies ("up"), rolls back ("down") or reports ("version") the schema migrations.
func (s *Store) RunMigrate(command string) error {
	switch command {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown migrate command: %s (use: up, down, version)", command)
	}

	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	m.Log = &migrateLogger{logger: s.logger}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		ver, dirty, _ := m.Version()
		s.logger.Debug("migration complete", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		s.logger.Info("all migrations rolled back")
	case "version":
		ver, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			s.logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		s.logger.Info("current version", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	}
	return nil
}

// SchemaVersion returns the applied migration version, 0 when none.
func (s *Store) SchemaVersion() (uint, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, err
	}
	defer m.Close()
	ver, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return ver, err
}

// migrator runs on its own connection pool. Closing the returned Migrate closes that pool,
// never the store's.
func (s *Store) migrator() (*migrate.Migrate, error) {
	db, err := sql.Open(string(s.Dialect()), s.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}

	var (
		driver database.Driver
		dir    string
	)
	switch s.Dialect() {
	case SQLite:
		dir = "migrations/sqlite"
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case Postgres:
		dir = "migrations/postgres"
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		err = fmt.Errorf("unsupported dialect %q", s.Dialect())
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(s.Dialect()), driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
