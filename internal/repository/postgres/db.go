package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/stockintel/internal/config"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens a lib/pq connection pool from the database config.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	return Open("postgres", cfg.DSN(), cfg.MaxConns)
}

// Open connects with any registered database/sql driver ("postgres" for
// lib/pq, "pgx" for the pgx stdlib driver).
func Open(driver, dsn string, maxConcurrent int) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return Wrap(db, maxConcurrent), nil
}

// Wrap adds the transaction semaphore to an existing handle.
func Wrap(db *sqlx.DB, maxConcurrent int) *DB {
	if maxConcurrent < 1 {
		maxConcurrent = 10
	}
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	// Acquire semaphore
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

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id                TEXT PRIMARY KEY,
	sku               TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL DEFAULT '',
	unit_price        NUMERIC(14,2) NOT NULL DEFAULT 0,
	cost_price        NUMERIC(14,2) NOT NULL DEFAULT 0,
	moq               NUMERIC(14,2) NOT NULL DEFAULT 0,
	lead_time_days    NUMERIC(8,2) NOT NULL DEFAULT 0,
	lead_time_std_dev NUMERIC(8,2),
	max_lead_time     NUMERIC(8,2),
	safety_stock      NUMERIC(14,2),
	reorder_point     NUMERIC(14,2),
	current_stock     NUMERIC(14,2),
	on_order          NUMERIC(14,2) NOT NULL DEFAULT 0,
	abc_grade         CHAR(1),
	xyz_grade         CHAR(1),
	is_overstock      BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS demand_history (
	product_id TEXT NOT NULL REFERENCES products(id),
	period     DATE NOT NULL,
	quantity   NUMERIC(14,2) NOT NULL CHECK (quantity >= 0),
	revenue    NUMERIC(14,2) NOT NULL DEFAULT 0,
	PRIMARY KEY (product_id, period)
);

CREATE TABLE IF NOT EXISTS grade_history (
	id             BIGSERIAL PRIMARY KEY,
	run_id         UUID NOT NULL,
	product_id     TEXT NOT NULL REFERENCES products(id),
	sku            TEXT NOT NULL,
	period         DATE NOT NULL,
	abc_grade      CHAR(1) NOT NULL,
	xyz_grade      CHAR(1) NOT NULL,
	combined_grade CHAR(2) NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (product_id, period)
);

CREATE INDEX IF NOT EXISTS idx_grade_history_product_period ON grade_history (product_id, period DESC);
`

// EnsureSchema creates the tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
