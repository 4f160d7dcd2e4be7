package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("dashboard_repo")}
}

// Stats runs the independent aggregate queries concurrently. Each goroutine
// writes a distinct field of stats.
func (r *postgresRepo) Stats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.pool.QueryRow(ctx, `
SELECT
    (SELECT COUNT(*) FROM users WHERE role = 'user'),
    (SELECT COUNT(*) FROM products),
    (SELECT COUNT(*) FROM orders),
    (SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE is_paid)
`).Scan(&stats.TotalUsers, &stats.TotalProducts, &stats.TotalOrders, &stats.TotalRevenue)
	})
	g.Go(func() error {
		var err error
		stats.OrdersByStatus, err = r.ordersByStatus(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.RecentOrders, err = r.recentOrders(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.MonthlyRevenue, err = r.monthlyRevenue(ctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TopProducts, err = r.topProducts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.LowStockProducts, err = r.lowStock(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

func (r *postgresRepo) ordersByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.StatusCount{}
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *postgresRepo) recentOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	rows, err := r.pool.Query(ctx, `
SELECT o.id::text, u.name, u.email, o.total_price, o.status, o.is_paid, o.created_at
FROM orders o
JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC
LIMIT $1
`, recentOrdersLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.OrderSummary{}
	for rows.Next() {
		var s domain.OrderSummary
		if err := rows.Scan(&s.ID, &s.UserName, &s.UserEmail, &s.TotalPrice, &s.Status, &s.IsPaid, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// monthlyRevenue reports paid revenue per calendar month, oldest first,
// starting revenueWindowMonth months before now.
func (r *postgresRepo) monthlyRevenue(ctx context.Context, now time.Time) ([]domain.MonthlyRevenue, error) {
	now = now.UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -revenueWindowMonth, 0)
	rows, err := r.pool.Query(ctx, `
SELECT EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS y,
       EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS m,
       SUM(total_price),
       COUNT(*)
FROM orders
WHERE is_paid AND created_at >= $1
GROUP BY y, m
ORDER BY y, m
`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.MonthlyRevenue{}
	for rows.Next() {
		var m domain.MonthlyRevenue
		if err := rows.Scan(&m.Year, &m.Month, &m.Revenue, &m.Orders); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// topProducts ranks products by units sold across all orders. Products that
// no longer exist are left out.
func (r *postgresRepo) topProducts(ctx context.Context) ([]domain.ProductSales, error) {
	rows, err := r.pool.Query(ctx, `
SELECT p.id::text, p.name, s.sold, s.revenue
FROM (
    SELECT product_id, SUM(quantity) AS sold, SUM(quantity * price) AS revenue
    FROM order_items
    GROUP BY product_id
) s
JOIN products p ON p.id = s.product_id
ORDER BY s.sold DESC, p.name
LIMIT $1
`, topProductsLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.ProductSales{}
	for rows.Next() {
		var (
			ps      domain.ProductSales
			revenue decimal.Decimal
		)
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Quantity, &revenue); err != nil {
			return nil, err
		}
		ps.Revenue = revenue.Round(2)
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (r *postgresRepo) lowStock(ctx context.Context) ([]domain.LowStockProduct, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, name, stock, category
FROM products
WHERE is_active AND stock <= $1
ORDER BY stock, name
LIMIT $2
`, lowStockThreshold, lowStockLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.LowStockProduct{}
	for rows.Next() {
		var p domain.LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.Category); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
