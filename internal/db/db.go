package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

type Config struct {
	Driver Driver
	DSN    string
}

// Open opens a connection pool and ensures the schema exists.
func Open(ctx context.Context, c Config) (*sql.DB, error) {
	var name string
	switch c.Driver {
	case DriverPostgres:
		name = "pgx"
	case DriverSQLite:
		name = "sqlite"
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", c.Driver)
	}

	if c.DSN == "" {
		return nil, fmt.Errorf("db: empty dsn for driver %q", c.Driver)
	}

	db, err := sql.Open(name, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, stderrors.Join(fmt.Errorf("db: ping: %w", err), db.Close())
	}

	if err := Migrate(ctx, db, c.Driver); err != nil {
		return nil, stderrors.Join(err, db.Close())
	}

	return db, nil
}

// Migrate applies the idempotent schema for the driver's dialect.
func Migrate(ctx context.Context, db *sql.DB, d Driver) error {
	var stmts []string
	switch d {
	case DriverPostgres:
		stmts = schemaPostgres
	case DriverSQLite:
		stmts = schemaSQLite
	default:
		return fmt.Errorf("db: unsupported driver %q", d)
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: migrate: %w", err)
		}
	}

	return nil
}

// IsUniqueViolation reports whether err was caused by a unique constraint,
// for either supported driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}

	var liteErr *sqlite.Error
	if stderrors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

// Millis converts a time to the integer representation used in timestamp columns.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// FromMillis is the inverse of Millis.
func FromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
