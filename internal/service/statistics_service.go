package service

import (
	"context"
	"fmt"
	"time"

	"metvil/internal/model"
	"metvil/internal/repository"
)

type DashboardStats struct {
	PendingRequests  int64  `json:"pending_requests"`
	ApprovedRequests int64  `json:"approved_requests"`
	RejectedRequests int64  `json:"rejected_requests"`
	TotalRevenue     string `json:"total_revenue"`
	MonthRevenue     string `json:"month_revenue"`
}

// StatisticsService aggregates workflow and ledger counters for the dashboard.
type StatisticsService interface {
	Dashboard(ctx context.Context, p model.Principal) (DashboardStats, error)
}

type statisticsService struct {
	purchases repository.PurchaseRepository
	sales     repository.SaleRepository
}

func NewStatisticsService(purchases repository.PurchaseRepository, sales repository.SaleRepository) StatisticsService {
	return &statisticsService{purchases: purchases, sales: sales}
}

func (s *statisticsService) Dashboard(ctx context.Context, p model.Principal) (DashboardStats, error) {
	if !p.IsApprover() {
		return DashboardStats{}, fmt.Errorf("%w: only approvers may view dashboard statistics", ErrPermissionDenied)
	}

	var stats DashboardStats
	var err error

	if stats.PendingRequests, err = s.purchases.CountByStatus(ctx, model.PurchasePending); err != nil {
		return DashboardStats{}, fmt.Errorf("failed to count pending requests: %w", err)
	}
	if stats.ApprovedRequests, err = s.purchases.CountByStatus(ctx, model.PurchaseApproved); err != nil {
		return DashboardStats{}, fmt.Errorf("failed to count approved requests: %w", err)
	}
	if stats.RejectedRequests, err = s.purchases.CountByStatus(ctx, model.PurchaseRejected); err != nil {
		return DashboardStats{}, fmt.Errorf("failed to count rejected requests: %w", err)
	}

	totalRevenue, err := s.sales.SumTotals(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("failed to sum sale totals: %w", err)
	}
	stats.TotalRevenue = totalRevenue.StringFixed(2)

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	monthRevenue, err := s.sales.SumTotalsBetween(ctx, monthStart, now)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("failed to sum monthly sale totals: %w", err)
	}
	stats.MonthRevenue = monthRevenue.StringFixed(2)

	return stats, nil
}
