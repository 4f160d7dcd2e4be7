package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/dbtest"
	"storefront/internal/domain"
)

func TestPostgres_Stats(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	repo := NewPostgres(pool, nil)

	buyer := dbtest.InsertUser(t, pool, "buyer@example.com", "user")
	dbtest.InsertUser(t, pool, "admin@example.com", "admin")
	mug := dbtest.InsertProduct(t, pool, "Mug", "8.00", 3)
	dbtest.InsertProduct(t, pool, "Lamp", "40.00", 50)

	insertOrder := func(total string, paid bool, status domain.OrderStatus, qty int) {
		var id string
		require.NoError(t, pool.QueryRow(ctx, `
INSERT INTO orders (user_id, shipping_address, total_price, status, is_paid)
VALUES ($1, '{}'::jsonb, $2::numeric, $3, $4)
RETURNING id::text
`, buyer, total, status, paid).Scan(&id))
		_, err := pool.Exec(ctx, `
INSERT INTO order_items (order_id, position, product_id, name, quantity, price)
VALUES ($1, 0, $2, 'Mug', $3, 8.00)
`, id, mug, qty)
		require.NoError(t, err)
	}
	insertOrder("18.80", true, domain.StatusDelivered, 1)
	insertOrder("27.60", false, domain.StatusProcessing, 2)

	stats, err := repo.Stats(ctx, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.True(t, stats.TotalRevenue.Equal(decimal.RequireFromString("18.80")), stats.TotalRevenue.String())
	assert.Len(t, stats.OrdersByStatus, 2)
	assert.Len(t, stats.RecentOrders, 2)
	assert.Equal(t, "buyer@example.com", stats.RecentOrders[0].UserEmail)

	require.Len(t, stats.MonthlyRevenue, 1)
	assert.Equal(t, 1, stats.MonthlyRevenue[0].Orders)

	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, mug, stats.TopProducts[0].ProductID)
	assert.Equal(t, 3, stats.TopProducts[0].Quantity)
	assert.True(t, stats.TopProducts[0].Revenue.Equal(decimal.NewFromInt(24)))

	require.Len(t, stats.LowStockProducts, 1)
	assert.Equal(t, "Mug", stats.LowStockProducts[0].Name)
}
