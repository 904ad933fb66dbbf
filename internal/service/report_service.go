package service

import (
	"context"
	"fmt"
	"time"

	"metvil/internal/model"
	"metvil/internal/report"
	"metvil/internal/repository"
)

// ReportService produces the downloadable PDF reports.
type ReportService interface {
	SalesReport(ctx context.Context, p model.Principal, from, to time.Time) (*report.Document, error)
	InventoryReport(ctx context.Context, p model.Principal) (*report.Document, error)
}

type reportService struct {
	sales    repository.SaleRepository
	products repository.ProductRepository
	renderer report.Renderer
}

func NewReportService(sales repository.SaleRepository, products repository.ProductRepository, renderer report.Renderer) ReportService {
	return &reportService{sales: sales, products: products, renderer: renderer}
}

func (s *reportService) SalesReport(ctx context.Context, p model.Principal, from, to time.Time) (*report.Document, error) {
	if !p.IsApprover() {
		return nil, fmt.Errorf("%w: only approvers may generate reports", ErrPermissionDenied)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: report range end precedes start", ErrValidation)
	}

	sales, err := s.sales.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales for report: %w", err)
	}
	total, err := s.sales.SumTotalsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum sales for report: %w", err)
	}

	doc, err := s.renderer.RenderSalesReport(sales, total)
	if err != nil {
		return nil, fmt.Errorf("failed to render sales report: %w", err)
	}
	return doc, nil
}

func (s *reportService) InventoryReport(ctx context.Context, p model.Principal) (*report.Document, error) {
	if !p.IsApprover() {
		return nil, fmt.Errorf("%w: only approvers may generate reports", ErrPermissionDenied)
	}

	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products for report: %w", err)
	}

	doc, err := s.renderer.RenderInventoryReport(products)
	if err != nil {
		return nil, fmt.Errorf("failed to render inventory report: %w", err)
	}
	return doc, nil
}
