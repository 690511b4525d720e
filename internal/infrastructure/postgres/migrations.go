package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema DDL idempotente. Las FK son RESTRICT: nunca se borra en cascada historial ni stock.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('admin', 'bodeguero', 'vendedor')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,

	`CREATE TABLE IF NOT EXISTS products (
		id         BIGSERIAL PRIMARY KEY,
		barcode    TEXT NOT NULL,
		name       TEXT NOT NULL,
		price      NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// El código de barras distingue mayúsculas: "ab1" y "AB1" son productos distintos.
	`DROP INDEX IF EXISTS products_barcode_key`,
	`CREATE UNIQUE INDEX IF NOT EXISTS products_barcode_uniq ON products (barcode)`,

	`CREATE TABLE IF NOT EXISTS warehouses (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		product_id BIGINT REFERENCES products (id) ON DELETE RESTRICT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS stock (
		product_id          BIGINT NOT NULL REFERENCES products (id) ON DELETE RESTRICT,
		warehouse_id        BIGINT NOT NULL REFERENCES warehouses (id) ON DELETE RESTRICT,
		quantity            BIGINT NOT NULL DEFAULT 0,
		last_transaction_id TEXT NOT NULL DEFAULT '',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (product_id, warehouse_id),
		CONSTRAINT stock_quantity_non_negative CHECK (quantity >= 0)
	)`,

	`CREATE TABLE IF NOT EXISTS stock_entries (
		id             BIGSERIAL PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		user_id        BIGINT NOT NULL,
		product_id     BIGINT NOT NULL REFERENCES products (id) ON DELETE RESTRICT,
		warehouse_id   BIGINT NOT NULL REFERENCES warehouses (id) ON DELETE RESTRICT,
		quantity       BIGINT NOT NULL CHECK (quantity > 0),
		note           TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS stock_entries_created_idx ON stock_entries (created_at, id)`,
	`CREATE INDEX IF NOT EXISTS stock_entries_product_idx ON stock_entries (product_id)`,

	`CREATE TABLE IF NOT EXISTS stock_exits (
		id             BIGSERIAL PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		user_id        BIGINT NOT NULL,
		product_id     BIGINT NOT NULL REFERENCES products (id) ON DELETE RESTRICT,
		quantity       BIGINT NOT NULL CHECK (quantity > 0),
		reason         TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS stock_exits_created_idx ON stock_exits (created_at, id)`,
	`CREATE INDEX IF NOT EXISTS stock_exits_product_idx ON stock_exits (product_id)`,
}

// Migrate aplica el esquema. Es seguro ejecutarlo en cada arranque.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migración %d: %w", i, err)
		}
	}
	return nil
}
