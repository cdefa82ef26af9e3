package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// DB is the PostgreSQL implementation of store.Store.
type DB struct {
	conn    *sql.DB
	log     *zap.Logger
	timeout time.Duration
}

// Connect opens a PostgreSQL pool and verifies it with a ping. Every query is
// bounded by timeout when it is positive.
func Connect(ctx context.Context, dsn string, timeout time.Duration, log *zap.Logger) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	d := &DB{conn: conn, log: log.Named("db"), timeout: timeout}
	if err := d.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	d.log.Info("connected to PostgreSQL")
	return d, nil
}

// Close releases the connection pool.
func (d *DB) Close(context.Context) error {
	return d.conn.Close()
}

// Ping checks the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.conn.PingContext(ctx)
}

// Migrate applies the embedded migrations in file name order. Each file is
// idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations dir: %w", err)
	}

	for _, entry := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if _, err := d.conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", entry.Name(), err)
		}
		d.log.Info("applied migration", zap.String("file", entry.Name()))
	}
	return nil
}

func (d *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
