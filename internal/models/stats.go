package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyRevenue is the summed order value of a single day
type DailyRevenue struct {
	Date    time.Time       `db:"day" json:"date"`
	Revenue decimal.Decimal `db:"revenue" json:"revenue"`
}

// DashboardStats summarises the catalog and order book for the admin dashboard
type DashboardStats struct {
	TotalProducts     int             `json:"total_products"`
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	RevenueByDate     []DailyRevenue  `json:"revenue_by_date"`
}
