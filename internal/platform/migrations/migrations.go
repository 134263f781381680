// Package migrations creates the relational schema. Statements are idempotent
// so Apply can run unconditionally at startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS canteens (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meals (
		id TEXT PRIMARY KEY,
		canteen_id TEXT NOT NULL REFERENCES canteens (id),
		name TEXT NOT NULL,
		price BIGINT NOT NULL CHECK (price > 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	// order_records: the composite unique constraint is the final arbiter of
	// the one-order-per-user-per-day rule under concurrent inserts. Snapshot
	// columns are denormalized on purpose and never updated.
	`CREATE TABLE IF NOT EXISTS order_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users (id),
		meal_id TEXT NOT NULL,
		meal_name_snapshot TEXT NOT NULL,
		price_snapshot BIGINT NOT NULL,
		order_date DATE NOT NULL,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT order_user_day_uc UNIQUE (user_id, order_date)
	)`,
	`CREATE INDEX IF NOT EXISTS order_records_order_date_idx ON order_records (order_date)`,
}

// Apply executes all schema statements against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
