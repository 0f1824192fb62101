package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vaidashi/storefront-api/internal/models"
	apperrors "github.com/vaidashi/storefront-api/pkg/errors"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// StatsStore runs the dashboard aggregates
type StatsStore interface {
	Totals(ctx context.Context) (*models.DashboardStats, error)
	RevenueByDate(ctx context.Context) ([]models.DailyRevenue, error)
}

// StatsService builds the admin dashboard summary
type StatsService struct {
	stats  StatsStore
	logger logger.Logger
}

func NewStatsService(stats StatsStore, logger logger.Logger) *StatsService {
	return &StatsService{stats: stats, logger: logger}
}

// Dashboard returns totals, average order value and revenue per day
func (s *StatsService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	stats, err := s.stats.Totals(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load stats", err)
	}

	stats.AverageOrderValue = decimal.Zero
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.
			Div(decimal.NewFromInt(int64(stats.TotalOrders))).
			Round(2)
	}

	stats.RevenueByDate, err = s.stats.RevenueByDate(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load stats", err)
	}

	return stats, nil
}
