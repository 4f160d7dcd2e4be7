package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats is the admin overview of the store.
type DashboardStats struct {
	TotalUsers       int               `json:"totalUsers"`
	TotalProducts    int               `json:"totalProducts"`
	TotalOrders      int               `json:"totalOrders"`
	TotalRevenue     decimal.Decimal   `json:"totalRevenue"`
	OrdersByStatus   []StatusCount     `json:"ordersByStatus"`
	RecentOrders     []OrderSummary    `json:"recentOrders"`
	MonthlyRevenue   []MonthlyRevenue  `json:"monthlyRevenue"`
	TopProducts      []ProductSales    `json:"topProducts"`
	LowStockProducts []LowStockProduct `json:"lowStockProducts"`
}

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int         `json:"count"`
}

type OrderSummary struct {
	ID         string          `json:"id"`
	UserName   string          `json:"userName"`
	UserEmail  string          `json:"userEmail"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     OrderStatus     `json:"orderStatus"`
	IsPaid     bool            `json:"isPaid"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type MonthlyRevenue struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type ProductSales struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"totalSold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type LowStockProduct struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Stock    int      `json:"stock"`
	Category Category `json:"category"`
}
