package service

import (
	"context"
	"fmt"

	"metvil/internal/model"
	"metvil/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductDTO struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	Image       string `json:"image"`
}

type UpdateProductDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       *int   `json:"stock"`
	Category    string `json:"category"`
	Image       string `json:"image"`
}

type ProductService interface {
	Create(ctx context.Context, p model.Principal, req CreateProductDTO) (*model.Product, error)
	Update(ctx context.Context, p model.Principal, id string, req UpdateProductDTO) (*model.Product, error)
	Delete(ctx context.Context, p model.Principal, id string) error
	Get(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
}

type productService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

func (s *productService) Create(ctx context.Context, p model.Principal, req CreateProductDTO) (*model.Product, error) {
	if !p.IsApprover() {
		return nil, fmt.Errorf("%w: only approvers may manage the catalog", ErrPermissionDenied)
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be a positive decimal", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}

	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		Category:    req.Category,
		Image:       req.Image,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, p model.Principal, id string, req UpdateProductDTO) (*model.Product, error) {
	if !p.IsApprover() {
		return nil, fmt.Errorf("%w: only approvers may manage the catalog", ErrPermissionDenied)
	}

	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", ErrValidation)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, wrapNotFound(err, "product "+id)
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price != "" {
		price, parseErr := decimal.NewFromString(req.Price)
		if parseErr != nil || !price.IsPositive() {
			return nil, fmt.Errorf("%w: price must be a positive decimal", ErrValidation)
		}
		product.Price = price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
		}
		product.Stock = *req.Stock
	}
	if req.Category != "" {
		product.Category = req.Category
	}
	if req.Image != "" {
		product.Image = req.Image
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, p model.Principal, id string) error {
	if !p.IsApprover() {
		return fmt.Errorf("%w: only approvers may manage the catalog", ErrPermissionDenied)
	}

	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return wrapNotFound(err, "product "+id)
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, wrapNotFound(err, "product "+id)
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	products, total, err := s.products.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, total, nil
}
