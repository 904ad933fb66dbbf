package service

import (
	"context"
	"fmt"

	"metvil/internal/model"
	"metvil/internal/repository"

	"github.com/google/uuid"
)

type CreateSupplierDTO struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
}

type UpdateSupplierDTO struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	IsActive      *bool  `json:"is_active"`
}

type SupplierService interface {
	Create(ctx context.Context, p model.Principal, req CreateSupplierDTO) (*model.Supplier, error)
	Update(ctx context.Context, p model.Principal, id string, req UpdateSupplierDTO) (*model.Supplier, error)
	Delete(ctx context.Context, p model.Principal, id string) error
	Get(ctx context.Context, id string) (*model.Supplier, error)
	List(ctx context.Context, page, limit int) ([]model.Supplier, int64, error)
}

type supplierService struct {
	suppliers repository.SupplierRepository
}

func NewSupplierService(suppliers repository.SupplierRepository) SupplierService {
	return &supplierService{suppliers: suppliers}
}

func (s *supplierService) Create(ctx context.Context, p model.Principal, req CreateSupplierDTO) (*model.Supplier, error) {
	if !p.IsApprover() {
		return nil, fmt.Errorf("%w: only approvers may manage suppliers", ErrPermissionDenied)
	}

	supplier := &model.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}
	if err := s.suppliers.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) Update(ctx context.Context, p model.Principal, id string, req UpdateSupplierDTO) (*model.Supplier, error) {
	if !p.IsApprover() {
		return nil, fmt.Errorf("%w: only approvers may manage suppliers", ErrPermissionDenied)
	}

	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid supplier id", ErrValidation)
	}

	supplier, err := s.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return nil, wrapNotFound(err, "supplier "+id)
	}

	if req.Name != "" {
		supplier.Name = req.Name
	}
	if req.ContactPerson != "" {
		supplier.ContactPerson = req.ContactPerson
	}
	if req.Phone != "" {
		supplier.Phone = req.Phone
	}
	if req.Email != "" {
		supplier.Email = req.Email
	}
	if req.Address != "" {
		supplier.Address = req.Address
	}
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}

	if err := s.suppliers.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) Delete(ctx context.Context, p model.Principal, id string) error {
	if !p.IsApprover() {
		return fmt.Errorf("%w: only approvers may manage suppliers", ErrPermissionDenied)
	}

	supplierID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid supplier id", ErrValidation)
	}
	if _, err := s.suppliers.FindByID(ctx, supplierID); err != nil {
		return wrapNotFound(err, "supplier "+id)
	}
	if err := s.suppliers.Delete(ctx, supplierID); err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	return nil
}

func (s *supplierService) Get(ctx context.Context, id string) (*model.Supplier, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid supplier id", ErrValidation)
	}
	supplier, err := s.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return nil, wrapNotFound(err, "supplier "+id)
	}
	return supplier, nil
}

func (s *supplierService) List(ctx context.Context, page, limit int) ([]model.Supplier, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	suppliers, total, err := s.suppliers.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch suppliers: %w", err)
	}
	return suppliers, total, nil
}
