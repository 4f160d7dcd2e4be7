// Package dbtest provides a migrated Postgres pool for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"storefront/internal/migrate"
)

// Pool connects to TEST_DB_DSN, applies migrations and truncates every table.
// The test is skipped when TEST_DB_DSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "connect db")
	t.Cleanup(pool.Close)

	require.NoError(t, migrate.Apply(ctx, pool, nil), "apply migrations")
	_, err = pool.Exec(ctx, `TRUNCATE wishlist_items, order_status_history, order_items, orders,
cart_items, carts, product_reviews, products, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "truncate tables")
	return pool
}

// InsertUser creates a user row and returns its id.
func InsertUser(t *testing.T, pool *pgxpool.Pool, email, role string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO users (name, email, password_hash, role) VALUES ($1, $1, 'x', $2) RETURNING id::text
`, email, role).Scan(&id)
	require.NoError(t, err, "insert user")
	return id
}

// InsertProduct creates an active product with the given price and stock.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO products (name, description, price, category, stock)
VALUES ($1, 'test product', $2::numeric, 'home', $3)
RETURNING id::text
`, name, price, stock).Scan(&id)
	require.NoError(t, err, "insert product")
	return id
}

// Stock reads the current stock of a product.
func Stock(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()
	var stock int
	err := pool.QueryRow(context.Background(), `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	require.NoError(t, err, "read stock")
	return stock
}
