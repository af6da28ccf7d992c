// Package sqldb implements the repositories on top of sqlx. The same queries
// run against postgres (lib/pq or pgx), mysql and sqlite3: placeholders are
// written as ? and rebound per driver, and dates are stored as ISO text.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/grocerystock/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const timestampLayout = time.RFC3339Nano

type DB struct {
	*sqlx.DB
	driver string
	sem    *semaphore.Weighted
}

// NewDB opens a connection pool for cfg.Driver and verifies it with a ping
func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	configurePool(db, cfg.Driver)

	return &DB{
		DB:     db,
		driver: cfg.Driver,
		sem:    semaphore.NewWeighted(10),
	}, nil
}

func configurePool(db *sqlx.DB, driver string) {
	if driver == "sqlite3" {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// Driver returns the database/sql driver name in use
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) isPostgres() bool {
	return db.driver == "postgres" || db.driver == "pgx"
}

// WithTx executes fn as one unit of work: committed when fn returns nil,
// rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// insertID runs an INSERT and returns the generated id. Postgres has no
// LastInsertId, so the query gets a RETURNING clause there.
func (db *DB) insertID(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	if db.isPostgres() {
		var id int64
		if err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
