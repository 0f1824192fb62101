package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vaidashi/storefront-api/internal/database"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// StatsRepository runs the dashboard aggregate queries
type StatsRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *database.Database, logger logger.Logger) *StatsRepository {
	return &StatsRepository{
		db:     db,
		logger: logger,
	}
}

// Totals returns product count, order count, and summed order value
func (r *StatsRepository) Totals(ctx context.Context) (*models.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM products) AS total_products,
			COUNT(*) AS total_orders,
			COALESCE(SUM(total_price), 0) AS total_revenue
		FROM orders
	`

	var row struct {
		TotalProducts int             `db:"total_products"`
		TotalOrders   int             `db:"total_orders"`
		TotalRevenue  decimal.Decimal `db:"total_revenue"`
	}

	if err := r.db.DB.GetContext(ctx, &row, query); err != nil {
		r.logger.Error("Failed to load dashboard totals", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &models.DashboardStats{
		TotalProducts: row.TotalProducts,
		TotalOrders:   row.TotalOrders,
		TotalRevenue:  row.TotalRevenue,
	}, nil
}

// RevenueByDate sums order value per calendar day, oldest first
func (r *StatsRepository) RevenueByDate(ctx context.Context) ([]models.DailyRevenue, error) {
	query := `
		SELECT DATE(order_date) AS day, SUM(total_price) AS revenue
		FROM orders
		GROUP BY DATE(order_date)
		ORDER BY day ASC
	`

	revenue := []models.DailyRevenue{}
	if err := r.db.DB.SelectContext(ctx, &revenue, query); err != nil {
		r.logger.Error("Failed to load revenue by date", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return revenue, nil
}
