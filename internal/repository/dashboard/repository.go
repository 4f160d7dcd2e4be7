package dashboard

import (
	"context"
	"time"

	"storefront/internal/domain"
)

const (
	recentOrdersLimit  = 5
	topProductsLimit   = 5
	lowStockThreshold  = 10
	lowStockLimit      = 10
	revenueWindowMonth = 6
)

// Repository computes the admin overview.
type Repository interface {
	Stats(ctx context.Context, now time.Time) (*domain.DashboardStats, error)
}
