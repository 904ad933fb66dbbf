package service

import (
	"context"
	"fmt"
	"time"

	"metvil/internal/model"
	"metvil/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateSaleDTO struct {
	ClientName string `json:"client_name" binding:"required"`
	ProductID  string `json:"product_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
	UnitPrice  string `json:"unit_price" binding:"required"`
}

type UpdateSaleDTO struct {
	ClientName string `json:"client_name"`
	ProductID  string `json:"product_id"`
	Quantity   *int   `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}

type SaleFilter struct {
	Origin string // DIRECT, FROM_REQUEST or empty for all
	Page   int
	Limit  int
}

type SaleResponse struct {
	ID              string  `json:"id"`
	ClientName      string  `json:"client_name"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name,omitempty"`
	Quantity        int     `json:"quantity"`
	UnitPrice       string  `json:"unit_price"`
	Total           string  `json:"total"`
	Origin          string  `json:"origin"`
	SourceRequestID *string `json:"source_request_id"`
	SellerID        *string `json:"seller_id"`
	CreatedAt       string  `json:"created_at"`
}

type SalesSummary struct {
	TotalRevenue string `json:"total_revenue"`
	MonthRevenue string `json:"month_revenue"`
	SaleCount    int64  `json:"sale_count"`
}

// --- Interface ---

// SaleService is the sales ledger. Direct sales are fully managed here;
// FROM_REQUEST sales are read-only to every operation of this service.
type SaleService interface {
	CreateDirect(ctx context.Context, p model.Principal, req CreateSaleDTO) (SaleResponse, error)
	Update(ctx context.Context, p model.Principal, id string, req UpdateSaleDTO) (SaleResponse, error)
	Delete(ctx context.Context, p model.Principal, id string) error
	Get(ctx context.Context, p model.Principal, id string) (SaleResponse, error)
	List(ctx context.Context, p model.Principal, filter SaleFilter) ([]SaleResponse, int64, error)
	Summary(ctx context.Context, p model.Principal) (SalesSummary, error)
}

type saleService struct {
	sales    repository.SaleRepository
	products repository.ProductRepository
	audits   repository.AuditRepository
	tx       repository.TransactionManager
	logger   *zap.Logger
}

func NewSaleService(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	audits repository.AuditRepository,
	tx repository.TransactionManager,
	logger *zap.Logger,
) SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saleService{
		sales:    sales,
		products: products,
		audits:   audits,
		tx:       tx,
		logger:   logger,
	}
}

// --- Implementation ---

func (s *saleService) CreateDirect(ctx context.Context, p model.Principal, req CreateSaleDTO) (SaleResponse, error) {
	if !p.IsApprover() {
		return SaleResponse{}, fmt.Errorf("%w: only approvers may record sales", ErrPermissionDenied)
	}

	if req.ClientName == "" {
		return SaleResponse{}, fmt.Errorf("%w: client name is required", ErrValidation)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return SaleResponse{}, fmt.Errorf("%w: invalid product_id", ErrValidation)
	}
	if req.Quantity <= 0 {
		return SaleResponse{}, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || !unitPrice.IsPositive() {
		return SaleResponse{}, fmt.Errorf("%w: unit price must be a positive decimal", ErrValidation)
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return SaleResponse{}, wrapNotFound(err, "product "+req.ProductID)
	}

	sale := &model.Sale{
		ClientName: req.ClientName,
		ProductID:  productID,
		Quantity:   req.Quantity,
		UnitPrice:  unitPrice,
		Origin:     model.SaleOriginDirect,
		SellerID:   &p.ID,
	}
	sale.ComputeTotal()

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.sales.Create(txCtx, sale); createErr != nil {
			return fmt.Errorf("failed to create sale: %w", createErr)
		}
		return writeAudit(txCtx, s.audits, &p.ID, model.ActionCreateDirectSale, sale.ID.String(), map[string]interface{}{
			"client_name": sale.ClientName,
			"total":       sale.Total.StringFixed(4),
		})
	})
	if err != nil {
		return SaleResponse{}, err
	}

	return toSaleResponse(*sale), nil
}

func (s *saleService) Update(ctx context.Context, p model.Principal, id string, req UpdateSaleDTO) (SaleResponse, error) {
	if !p.IsApprover() {
		return SaleResponse{}, fmt.Errorf("%w: only approvers may manage sales", ErrPermissionDenied)
	}

	saleID, err := uuid.Parse(id)
	if err != nil {
		return SaleResponse{}, fmt.Errorf("%w: invalid sale id", ErrValidation)
	}

	var sale *model.Sale
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, findErr := s.sales.FindByID(txCtx, saleID)
		if findErr != nil {
			return wrapNotFound(findErr, "sale "+id)
		}
		if found.Origin == model.SaleOriginFromRequest {
			return fmt.Errorf("%w: sales created from an approved purchase request cannot be modified", ErrImmutableRecord)
		}

		if req.ClientName != "" {
			found.ClientName = req.ClientName
		}
		if req.ProductID != "" {
			productID, parseErr := uuid.Parse(req.ProductID)
			if parseErr != nil {
				return fmt.Errorf("%w: invalid product_id", ErrValidation)
			}
			if _, resolveErr := s.products.FindByID(txCtx, productID); resolveErr != nil {
				return wrapNotFound(resolveErr, "product "+req.ProductID)
			}
			found.ProductID = productID
		}
		if req.Quantity != nil {
			if *req.Quantity <= 0 {
				return fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
			}
			found.Quantity = *req.Quantity
		}
		if req.UnitPrice != "" {
			unitPrice, parseErr := decimal.NewFromString(req.UnitPrice)
			if parseErr != nil || !unitPrice.IsPositive() {
				return fmt.Errorf("%w: unit price must be a positive decimal", ErrValidation)
			}
			found.UnitPrice = unitPrice
		}
		found.ComputeTotal()

		if saveErr := s.sales.Update(txCtx, found); saveErr != nil {
			return fmt.Errorf("failed to update sale: %w", saveErr)
		}

		sale = found
		return writeAudit(txCtx, s.audits, &p.ID, model.ActionUpdateDirectSale, found.ID.String(), map[string]interface{}{
			"total": found.Total.StringFixed(4),
		})
	})
	if err != nil {
		return SaleResponse{}, err
	}

	return toSaleResponse(*sale), nil
}

func (s *saleService) Delete(ctx context.Context, p model.Principal, id string) error {
	if !p.IsApprover() {
		return fmt.Errorf("%w: only approvers may manage sales", ErrPermissionDenied)
	}

	saleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid sale id", ErrValidation)
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, findErr := s.sales.FindByID(txCtx, saleID)
		if findErr != nil {
			return wrapNotFound(findErr, "sale "+id)
		}
		if found.Origin == model.SaleOriginFromRequest {
			return fmt.Errorf("%w: sales created from an approved purchase request cannot be deleted", ErrImmutableRecord)
		}

		if delErr := s.sales.Delete(txCtx, found.ID); delErr != nil {
			return fmt.Errorf("failed to delete sale: %w", delErr)
		}

		return writeAudit(txCtx, s.audits, &p.ID, model.ActionDeleteDirectSale, found.ID.String(), map[string]interface{}{
			"client_name": found.ClientName,
			"total":       found.Total.StringFixed(4),
		})
	})
}

func (s *saleService) Get(ctx context.Context, p model.Principal, id string) (SaleResponse, error) {
	if !p.IsApprover() {
		return SaleResponse{}, fmt.Errorf("%w: only approvers may view sales", ErrPermissionDenied)
	}

	saleID, err := uuid.Parse(id)
	if err != nil {
		return SaleResponse{}, fmt.Errorf("%w: invalid sale id", ErrValidation)
	}

	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return SaleResponse{}, wrapNotFound(err, "sale "+id)
	}
	return toSaleResponse(*sale), nil
}

func (s *saleService) List(ctx context.Context, p model.Principal, filter SaleFilter) ([]SaleResponse, int64, error) {
	if !p.IsApprover() {
		return nil, 0, fmt.Errorf("%w: only approvers may view sales", ErrPermissionDenied)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	sales, total, err := s.sales.List(ctx, filter.Origin, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch sales: %w", err)
	}

	result := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		result = append(result, toSaleResponse(sale))
	}
	return result, total, nil
}

func (s *saleService) Summary(ctx context.Context, p model.Principal) (SalesSummary, error) {
	if !p.IsApprover() {
		return SalesSummary{}, fmt.Errorf("%w: only approvers may view sales summaries", ErrPermissionDenied)
	}

	totalRevenue, err := s.sales.SumTotals(ctx)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("failed to sum sale totals: %w", err)
	}

	// Current month in server-local time, first of the month at midnight.
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	monthRevenue, err := s.sales.SumTotalsBetween(ctx, monthStart, now)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("failed to sum monthly sale totals: %w", err)
	}

	_, count, err := s.sales.List(ctx, "", 1, 1)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("failed to count sales: %w", err)
	}

	return SalesSummary{
		TotalRevenue: totalRevenue.StringFixed(2),
		MonthRevenue: monthRevenue.StringFixed(2),
		SaleCount:    count,
	}, nil
}

func toSaleResponse(sale model.Sale) SaleResponse {
	resp := SaleResponse{
		ID:         sale.ID.String(),
		ClientName: sale.ClientName,
		ProductID:  sale.ProductID.String(),
		Quantity:   sale.Quantity,
		UnitPrice:  sale.UnitPrice.StringFixed(2),
		Total:      sale.Total.StringFixed(2),
		Origin:     sale.Origin,
		CreatedAt:  sale.CreatedAt.Format(time.RFC3339),
	}
	if sale.Product != nil {
		resp.ProductName = sale.Product.Name
	}
	if sale.SourceRequestID != nil {
		id := sale.SourceRequestID.String()
		resp.SourceRequestID = &id
	}
	if sale.SellerID != nil {
		id := sale.SellerID.String()
		resp.SellerID = &id
	}
	return resp
}
