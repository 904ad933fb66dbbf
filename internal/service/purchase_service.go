package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"metvil/internal/model"
	"metvil/internal/report"
	"metvil/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Comment filled in when an approver rejects without giving a reason.
const defaultRejectionComment = "Rejected by administrator"

// Client name used on auto-created sales when the requester record is gone.
const unknownClientName = "Unknown Client"

// --- DTOs ---

type SubmitPurchaseDTO struct {
	SupplierID string `json:"supplier_id" binding:"required"`
	ProductID  string `json:"product_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
	UnitPrice  string `json:"unit_price" binding:"required"`
}

type EditPurchaseDTO struct {
	SupplierID string `json:"supplier_id"`
	ProductID  string `json:"product_id"`
	Quantity   *int   `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}

type DecisionDTO struct {
	Comments string `json:"comments"`
}

type PurchaseFilter struct {
	Status string // PENDING, APPROVED, REJECTED or empty for all
	Page   int
	Limit  int
}

type PurchaseResponse struct {
	ID            string  `json:"id"`
	RequesterID   string  `json:"requester_id"`
	RequesterName string  `json:"requester_name,omitempty"`
	SupplierID    string  `json:"supplier_id"`
	SupplierName  string  `json:"supplier_name,omitempty"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name,omitempty"`
	Quantity      int     `json:"quantity"`
	UnitPrice     string  `json:"unit_price"`
	Total         string  `json:"total"`
	Status        string  `json:"status"`
	ApproverID    *string `json:"approver_id"`
	ApproverName  string  `json:"approver_name,omitempty"`
	DecidedAt     *string `json:"decided_at"`
	Comments      string  `json:"comments"`
	CreatedAt     string  `json:"created_at"`
}

// Broadcaster pushes workflow events to connected clients. Nil-safe: services
// simply skip broadcasting when no hub is wired.
type Broadcaster interface {
	BroadcastJSON(event string, payload interface{})
}

// --- Interface ---

// PurchaseService is the purchase-approval workflow engine: it validates
// state transitions, computes totals, and spawns the linked sale on approval.
type PurchaseService interface {
	Submit(ctx context.Context, p model.Principal, req SubmitPurchaseDTO) (PurchaseResponse, error)
	Approve(ctx context.Context, p model.Principal, id, comments string) (PurchaseResponse, *SaleResponse, error)
	Reject(ctx context.Context, p model.Principal, id, comments string) (PurchaseResponse, error)
	Edit(ctx context.Context, p model.Principal, id string, req EditPurchaseDTO) (PurchaseResponse, error)
	Withdraw(ctx context.Context, p model.Principal, id string) error
	IssueInvoice(ctx context.Context, p model.Principal, id string) (*report.Document, error)
	List(ctx context.Context, p model.Principal, filter PurchaseFilter) ([]PurchaseResponse, int64, error)
}

type purchaseService struct {
	purchases repository.PurchaseRepository
	sales     repository.SaleRepository
	products  repository.ProductRepository
	suppliers repository.SupplierRepository
	users     repository.UserRepository
	audits    repository.AuditRepository
	tx        repository.TransactionManager
	renderer  report.Renderer
	hub       Broadcaster
	logger    *zap.Logger
}

func NewPurchaseService(
	purchases repository.PurchaseRepository,
	sales repository.SaleRepository,
	products repository.ProductRepository,
	suppliers repository.SupplierRepository,
	users repository.UserRepository,
	audits repository.AuditRepository,
	tx repository.TransactionManager,
	renderer report.Renderer,
	hub Broadcaster,
	logger *zap.Logger,
) PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &purchaseService{
		purchases: purchases,
		sales:     sales,
		products:  products,
		suppliers: suppliers,
		users:     users,
		audits:    audits,
		tx:        tx,
		renderer:  renderer,
		hub:       hub,
		logger:    logger,
	}
}

// --- Implementation ---

func (s *purchaseService) Submit(ctx context.Context, p model.Principal, req SubmitPurchaseDTO) (PurchaseResponse, error) {
	if !p.IsRequester() {
		return PurchaseResponse{}, fmt.Errorf("%w: only requesters may submit purchase requests", ErrPermissionDenied)
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return PurchaseResponse{}, fmt.Errorf("%w: invalid supplier_id", ErrValidation)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return PurchaseResponse{}, fmt.Errorf("%w: invalid product_id", ErrValidation)
	}
	if req.Quantity <= 0 {
		return PurchaseResponse{}, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || !unitPrice.IsPositive() {
		return PurchaseResponse{}, fmt.Errorf("%w: unit price must be a positive decimal", ErrValidation)
	}

	if _, err := s.suppliers.FindByID(ctx, supplierID); err != nil {
		return PurchaseResponse{}, wrapNotFound(err, "supplier "+req.SupplierID)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return PurchaseResponse{}, wrapNotFound(err, "product "+req.ProductID)
	}

	purchase := &model.PurchaseRequest{
		RequesterID: p.ID,
		SupplierID:  supplierID,
		ProductID:   productID,
		Quantity:    req.Quantity,
		UnitPrice:   unitPrice,
		Status:      model.PurchasePending,
	}
	purchase.ComputeTotal()

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.purchases.Create(txCtx, purchase); createErr != nil {
			return fmt.Errorf("failed to create purchase request: %w", createErr)
		}
		return writeAudit(txCtx, s.audits, &p.ID, model.ActionSubmitPurchase, purchase.ID.String(), map[string]interface{}{
			"supplier_id": req.SupplierID,
			"product_id":  req.ProductID,
			"quantity":    req.Quantity,
			"total":       purchase.Total.StringFixed(4),
		})
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	s.broadcast("purchase.submitted", map[string]interface{}{
		"purchase_id":  purchase.ID.String(),
		"requester_id": p.ID.String(),
		"total":        purchase.Total.StringFixed(2),
	})

	return s.reload(ctx, purchase)
}

func (s *purchaseService) Approve(ctx context.Context, p model.Principal, id, comments string) (PurchaseResponse, *SaleResponse, error) {
	if !p.IsApprover() {
		return PurchaseResponse{}, nil, fmt.Errorf("%w: only approvers may decide purchase requests", ErrPermissionDenied)
	}

	purchaseID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseResponse{}, nil, fmt.Errorf("%w: invalid purchase request id", ErrValidation)
	}

	var purchase *model.PurchaseRequest
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pr, findErr := s.purchases.FindByIDForUpdate(txCtx, purchaseID)
		if findErr != nil {
			return wrapNotFound(findErr, "purchase request "+id)
		}
		if pr.Status != model.PurchasePending {
			return fmt.Errorf("%w: purchase request is already %s", ErrInvalidTransition, pr.Status)
		}

		now := time.Now()
		pr.Status = model.PurchaseApproved
		pr.ApproverID = &p.ID
		pr.DecidedAt = &now
		pr.Comments = comments

		if saveErr := s.purchases.Update(txCtx, pr); saveErr != nil {
			return fmt.Errorf("failed to update purchase request: %w", saveErr)
		}

		purchase = pr
		return writeAudit(txCtx, s.audits, &p.ID, model.ActionApprovePurchase, pr.ID.String(), map[string]interface{}{
			"total":    pr.Total.StringFixed(4),
			"comments": comments,
		})
	})
	if err != nil {
		return PurchaseResponse{}, nil, err
	}

	// The decision is committed and final. Sale creation below is a
	// best-effort side effect: a failure here must not undo the approval.
	sale, saleErr := s.spawnSale(ctx, purchase, p)

	s.broadcast("purchase.approved", map[string]interface{}{
		"purchase_id": purchase.ID.String(),
		"approver_id": p.ID.String(),
	})

	resp, reloadErr := s.reload(ctx, purchase)
	if reloadErr != nil {
		resp = toPurchaseResponse(*purchase)
	}

	if saleErr != nil {
		s.logger.Warn("sale creation failed after approval committed",
			zap.String("purchase_id", purchase.ID.String()),
			zap.Error(saleErr))
		return resp, nil, fmt.Errorf("%w: %v", ErrDownstreamFailure, saleErr)
	}

	saleResp := toSaleResponse(*sale)
	return resp, &saleResp, nil
}

func (s *purchaseService) Reject(ctx context.Context, p model.Principal, id, comments string) (PurchaseResponse, error) {
	if !p.IsApprover() {
		return PurchaseResponse{}, fmt.Errorf("%w: only approvers may decide purchase requests", ErrPermissionDenied)
	}

	purchaseID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseResponse{}, fmt.Errorf("%w: invalid purchase request id", ErrValidation)
	}

	if comments == "" {
		comments = defaultRejectionComment
	}

	var purchase *model.PurchaseRequest
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pr, findErr := s.purchases.FindByIDForUpdate(txCtx, purchaseID)
		if findErr != nil {
			return wrapNotFound(findErr, "purchase request "+id)
		}
		if pr.Status != model.PurchasePending {
			return fmt.Errorf("%w: purchase request is already %s", ErrInvalidTransition, pr.Status)
		}

		now := time.Now()
		pr.Status = model.PurchaseRejected
		pr.ApproverID = &p.ID
		pr.DecidedAt = &now
		pr.Comments = comments

		if saveErr := s.purchases.Update(txCtx, pr); saveErr != nil {
			return fmt.Errorf("failed to update purchase request: %w", saveErr)
		}

		purchase = pr
		return writeAudit(txCtx, s.audits, &p.ID, model.ActionRejectPurchase, pr.ID.String(), map[string]interface{}{
			"comments": comments,
		})
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	s.broadcast("purchase.rejected", map[string]interface{}{
		"purchase_id": purchase.ID.String(),
		"approver_id": p.ID.String(),
	})

	return s.reload(ctx, purchase)
}

func (s *purchaseService) Edit(ctx context.Context, p model.Principal, id string, req EditPurchaseDTO) (PurchaseResponse, error) {
	purchaseID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseResponse{}, fmt.Errorf("%w: invalid purchase request id", ErrValidation)
	}

	var purchase *model.PurchaseRequest
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pr, findErr := s.purchases.FindByIDForUpdate(txCtx, purchaseID)
		if findErr != nil {
			return wrapNotFound(findErr, "purchase request "+id)
		}
		if pr.RequesterID != p.ID {
			return fmt.Errorf("%w: only the owning requester may edit a purchase request", ErrPermissionDenied)
		}
		if pr.Status != model.PurchasePending {
			return fmt.Errorf("%w: only pending purchase requests may be edited", ErrInvalidTransition)
		}

		if req.SupplierID != "" {
			supplierID, parseErr := uuid.Parse(req.SupplierID)
			if parseErr != nil {
				return fmt.Errorf("%w: invalid supplier_id", ErrValidation)
			}
			if _, resolveErr := s.suppliers.FindByID(txCtx, supplierID); resolveErr != nil {
				return wrapNotFound(resolveErr, "supplier "+req.SupplierID)
			}
			pr.SupplierID = supplierID
		}
		if req.ProductID != "" {
			productID, parseErr := uuid.Parse(req.ProductID)
			if parseErr != nil {
				return fmt.Errorf("%w: invalid product_id", ErrValidation)
			}
			if _, resolveErr := s.products.FindByID(txCtx, productID); resolveErr != nil {
				return wrapNotFound(resolveErr, "product "+req.ProductID)
			}
			pr.ProductID = productID
		}
		if req.Quantity != nil {
			if *req.Quantity <= 0 {
				return fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
			}
			pr.Quantity = *req.Quantity
		}
		if req.UnitPrice != "" {
			unitPrice, parseErr := decimal.NewFromString(req.UnitPrice)
			if parseErr != nil || !unitPrice.IsPositive() {
				return fmt.Errorf("%w: unit price must be a positive decimal", ErrValidation)
			}
			pr.UnitPrice = unitPrice
		}
		pr.ComputeTotal()

		if saveErr := s.purchases.Update(txCtx, pr); saveErr != nil {
			return fmt.Errorf("failed to update purchase request: %w", saveErr)
		}

		purchase = pr
		return writeAudit(txCtx, s.audits, &p.ID, model.ActionEditPurchase, pr.ID.String(), map[string]interface{}{
			"quantity": pr.Quantity,
			"total":    pr.Total.StringFixed(4),
		})
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	return s.reload(ctx, purchase)
}

func (s *purchaseService) Withdraw(ctx context.Context, p model.Principal, id string) error {
	purchaseID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid purchase request id", ErrValidation)
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pr, findErr := s.purchases.FindByIDForUpdate(txCtx, purchaseID)
		if findErr != nil {
			return wrapNotFound(findErr, "purchase request "+id)
		}
		if pr.RequesterID != p.ID {
			return fmt.Errorf("%w: only the owning requester may withdraw a purchase request", ErrPermissionDenied)
		}
		if pr.Status != model.PurchasePending {
			return fmt.Errorf("%w: only pending purchase requests may be withdrawn", ErrInvalidTransition)
		}

		if delErr := s.purchases.Delete(txCtx, pr.ID); delErr != nil {
			return fmt.Errorf("failed to delete purchase request: %w", delErr)
		}

		return writeAudit(txCtx, s.audits, &p.ID, model.ActionWithdrawPurchase, pr.ID.String(), map[string]interface{}{
			"total": pr.Total.StringFixed(4),
		})
	})
}

func (s *purchaseService) IssueInvoice(ctx context.Context, p model.Principal, id string) (*report.Document, error) {
	purchaseID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid purchase request id", ErrValidation)
	}

	purchase, err := s.purchases.FindByIDWithRelations(ctx, purchaseID)
	if err != nil {
		return nil, wrapNotFound(err, "purchase request "+id)
	}

	if !p.IsApprover() && purchase.RequesterID != p.ID {
		return nil, fmt.Errorf("%w: only the owner or an approver may view this invoice", ErrPermissionDenied)
	}
	if purchase.Status != model.PurchaseApproved {
		return nil, fmt.Errorf("%w: only approved purchase requests may be invoiced", ErrInvalidTransition)
	}

	inv := report.Invoice{
		Request:       *purchase,
		RequesterName: unknownClientName,
		SupplierName:  "",
		ProductName:   "",
	}
	if purchase.Requester != nil {
		inv.RequesterName = purchase.Requester.Name
	}
	if purchase.Supplier != nil {
		inv.SupplierName = purchase.Supplier.Name
	}
	if purchase.Product != nil {
		inv.ProductName = purchase.Product.Name
	}

	doc, err := s.renderer.RenderInvoice(inv)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return doc, nil
}

func (s *purchaseService) List(ctx context.Context, p model.Principal, filter PurchaseFilter) ([]PurchaseResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var (
		requests []model.PurchaseRequest
		total    int64
		err      error
	)
	if p.IsApprover() {
		requests, total, err = s.purchases.List(ctx, filter.Status, filter.Page, filter.Limit)
	} else {
		// Requesters only ever see their own requests.
		requests, total, err = s.purchases.ListByRequester(ctx, p.ID, filter.Page, filter.Limit)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchase requests: %w", err)
	}

	result := make([]PurchaseResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toPurchaseResponse(r))
	}
	return result, total, nil
}

// spawnSale creates the FROM_REQUEST sale for a freshly approved purchase.
// Runs in its own transaction, after the approval already committed.
func (s *purchaseService) spawnSale(ctx context.Context, purchase *model.PurchaseRequest, p model.Principal) (*model.Sale, error) {
	clientName := unknownClientName
	if requester, err := s.users.GetByID(ctx, purchase.RequesterID.String()); err == nil {
		clientName = requester.Name
	}

	sale := &model.Sale{
		ClientName:      clientName,
		ProductID:       purchase.ProductID,
		Quantity:        purchase.Quantity,
		UnitPrice:       purchase.UnitPrice,
		Origin:          model.SaleOriginFromRequest,
		SourceRequestID: &purchase.ID,
		SellerID:        &p.ID,
	}
	sale.ComputeTotal()

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.sales.Create(txCtx, sale); createErr != nil {
			return fmt.Errorf("failed to create sale: %w", createErr)
		}
		return writeAudit(txCtx, s.audits, purchase.ApproverID, model.ActionCreateSaleFromApproval, sale.ID.String(), map[string]interface{}{
			"purchase_id": purchase.ID.String(),
			"client_name": clientName,
			"total":       sale.Total.StringFixed(4),
		})
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// --- Helpers ---

func writeAudit(ctx context.Context, audits repository.AuditRepository, userID *uuid.UUID, action, entityID string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:   userID,
		Action:   action,
		EntityID: entityID,
		Details:  string(payload),
	}
	if err := audits.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *purchaseService) broadcast(event string, payload map[string]interface{}) {
	if s.hub != nil {
		s.hub.BroadcastJSON(event, payload)
	}
}

func (s *purchaseService) reload(ctx context.Context, purchase *model.PurchaseRequest) (PurchaseResponse, error) {
	loaded, err := s.purchases.FindByIDWithRelations(ctx, purchase.ID)
	if err != nil {
		return PurchaseResponse{}, fmt.Errorf("failed to reload purchase request: %w", err)
	}
	return toPurchaseResponse(*loaded), nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func toPurchaseResponse(r model.PurchaseRequest) PurchaseResponse {
	resp := PurchaseResponse{
		ID:          r.ID.String(),
		RequesterID: r.RequesterID.String(),
		SupplierID:  r.SupplierID.String(),
		ProductID:   r.ProductID.String(),
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice.StringFixed(2),
		Total:       r.Total.StringFixed(2),
		Status:      r.Status,
		Comments:    r.Comments,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}

	if r.Requester != nil {
		resp.RequesterName = r.Requester.Name
	}
	if r.Supplier != nil {
		resp.SupplierName = r.Supplier.Name
	}
	if r.Product != nil {
		resp.ProductName = r.Product.Name
	}
	if r.ApproverID != nil {
		s := r.ApproverID.String()
		resp.ApproverID = &s
	}
	if r.Approver != nil {
		resp.ApproverName = r.Approver.Name
	}
	if r.DecidedAt != nil {
		s := r.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &s
	}

	return resp
}
