package repository

import (
	"context"
	"time"

	"metvil/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindBySourceRequest(ctx context.Context, requestID uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, origin string, page, limit int) ([]model.Sale, int64, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	Update(ctx context.Context, sale *model.Sale) error
	Delete(ctx context.Context, id uuid.UUID) error
	SumTotals(ctx context.Context) (decimal.Decimal, error)
	SumTotalsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Create(sale).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).Preload("Product").Preload("Seller").First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindBySourceRequest(ctx context.Context, requestID uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).Where("source_request_id = ?", requestID).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, origin string, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Sale{})
	if origin != "" {
		query = query.Where("origin = ?", origin)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Product").Preload("Seller")
	if origin != "" {
		fetchQuery = fetchQuery.Where("origin = ?", origin)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

func (r *saleRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	if err := GetDB(ctx, r.db).Preload("Product").Preload("Seller").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at DESC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) Update(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Save(sale).Error
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Sale{}).Error
}

func (r *saleRepository) SumTotals(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("COALESCE(SUM(total), 0) as total").
		Scan(&result).Error
	return result.Total, err
}

func (r *saleRepository) SumTotalsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("COALESCE(SUM(total), 0) as total").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&result).Error
	return result.Total, err
}
