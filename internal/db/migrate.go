package db

import (
	"context"
	"fmt"
)

// Migrate creates the schema if it does not exist. Statements are
// idempotent so the server can run them on every start, the way the
// original single-location deployments expect.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price BIGINT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			category_id BIGINT REFERENCES categories(id),
			low_stock_threshold INTEGER NOT NULL DEFAULT 5,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS staff (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			pin_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS day_sessions (
			id BIGSERIAL PRIMARY KEY,
			date DATE,
			started_by BIGINT NOT NULL REFERENCES staff(id),
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			closed_at TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			total_revenue BIGINT,
			total_orders INTEGER
		)`,
		// Process-wide singleton backstop: at most one active session.
		`CREATE UNIQUE INDEX IF NOT EXISTS day_sessions_single_active
			ON day_sessions (is_active) WHERE is_active`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			staff_id BIGINT NOT NULL REFERENCES staff(id),
			session_id BIGINT REFERENCES day_sessions(id),
			table_number INTEGER NOT NULL DEFAULT 1,
			total BIGINT NOT NULL,
			customer_name TEXT,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		// One open order per table.
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_open_table
			ON orders (table_number) WHERE status = 'open'`,
		`CREATE INDEX IF NOT EXISTS orders_session_id ON orders (session_id)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			product_id BIGINT NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price_at_sale BIGINT NOT NULL,
			UNIQUE (order_id, product_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
