package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Dialect selects placeholder style and migration set. Values match the database/sql driver names.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "pgx"
)

// sqliteParams are appended to every SQLite DSN. Immediate transactions take the write lock
// at BEGIN so two writers wait on the busy timeout instead of failing mid-transaction.
var sqliteParams = []string{"_foreign_keys=on", "_busy_timeout=5000", "_txlock=immediate"}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the data-access operations against either the pool or one transaction.
type Queries struct {
	db      dbtx
	dialect Dialect
}

type Store struct {
	*Queries
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, log *slog.Logger, driver, dsn string) (*Store, error) {
	s, err := Connect(ctx, log, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err = s.RunMigrate("up"); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Connect opens and pings the database without touching the schema.
func Connect(ctx context.Context, log *slog.Logger, driver, dsn string) (*Store, error) {
	dialect := Dialect(driver)
	switch dialect {
	case SQLite:
		dsn = sqliteDSN(dsn)
	case Postgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == Postgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		Queries: &Queries{db: db, dialect: dialect},
		db:      db,
		dsn:     dsn,
		logger:  log.With(slog.String("service", "store")),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() Dialect {
	return s.Queries.dialect
}

// InTx runs fn inside one transaction. fn's error rolls the transaction back and is returned as is.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&Queries{db: tx, dialect: s.Queries.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", slog.Any("error", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL. Queries in this package never
// contain a literal question mark.
func (q *Queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

// forUpdate is the row-lock suffix for SELECTs inside a transaction. SQLite has no row locks;
// its transactions already hold the write lock from BEGIN.
func (q *Queries) forUpdate() string {
	if q.dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

func (q *Queries) lockRow(ctx context.Context, table string, id int64) error {
	var got int64
	err := q.queryRow(ctx, "SELECT id FROM "+table+" WHERE id = ?"+q.forUpdate(), id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s row: %w", table, err)
	}
	return nil
}

// LockUser serialises writers that act on one user's rows until the transaction ends.
func (q *Queries) LockUser(ctx context.Context, id int64) error {
	return q.lockRow(ctx, "users", id)
}

// LockConversation serialises writers on one conversation until the transaction ends.
func (q *Queries) LockConversation(ctx context.Context, id int64) error {
	return q.lockRow(ctx, "conversations", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func sqliteDSN(dsn string) string {
	var missing []string
	for _, p := range sqliteParams {
		key := p[:strings.IndexByte(p, '=')+1]
		if !strings.Contains(dsn, key) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}

func now() time.Time {
	return time.Now().UTC()
}
