package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const queryTimeout = 5 * time.Second

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrDisallowedField is returned by the update methods for a field
	// name outside the entity's allow-list.
	ErrDisallowedField = errors.New("field cannot be updated")
)

// Fields holds a partial update keyed by API field name.
type Fields map[string]any

// DBConfig describes how to open the backing database.
type DBConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

// Store is the entity repository for users, projects and tasks. Every
// write targets a single row and is last-write-wins.
type Store struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used for timestamps and due-date buckets.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open connects to the configured database, verifies the connection and
// applies pending migrations.
func Open(cfg DBConfig, opts ...Option) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	}
	// Every connection to an in-memory SQLite database is a separate database.
	if cfg.Driver == DriverSQLite && strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s db: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &Store{db: db, driver: cfg.Driver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// exec runs a single-row write and maps zero affected rows to ErrNotFound.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

// setClause turns an allow-listed partial update into "col = ?" pairs.
func setClause(fields Fields, allowed map[string]string) ([]string, []any, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := allowed[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrDisallowedField, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		sets = append(sets, allowed[name]+" = ?")
		args = append(args, fields[name])
	}
	return sets, args, nil
}
