package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"metvil/internal/model"
	"metvil/internal/report"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory fakes so the workflow can be exercised without a database.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- users ---

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	user, ok := r.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, uid)
	return nil
}

// --- suppliers ---

type fakeSupplierRepo struct {
	items map[uuid.UUID]*model.Supplier
}

func newFakeSupplierRepo() *fakeSupplierRepo {
	return &fakeSupplierRepo{items: make(map[uuid.UUID]*model.Supplier)}
}

func (r *fakeSupplierRepo) Create(_ context.Context, s *model.Supplier) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.items[s.ID] = s
	return nil
}

func (r *fakeSupplierRepo) Update(_ context.Context, s *model.Supplier) error {
	r.items[s.ID] = s
	return nil
}

func (r *fakeSupplierRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *fakeSupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	s, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeSupplierRepo) List(_ context.Context, _, _ int) ([]model.Supplier, int64, error) {
	out := make([]model.Supplier, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

// --- products ---

type fakeProductRepo struct {
	items map[uuid.UUID]*model.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{items: make(map[uuid.UUID]*model.Product)}
}

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.items[p.ID] = p
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *model.Product) error {
	r.items[p.ID] = p
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) List(_ context.Context, _, _ int, search string) ([]model.Product, int64, error) {
	out := make([]model.Product, 0, len(r.items))
	for _, p := range r.items {
		if search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) ListAll(_ context.Context) ([]model.Product, error) {
	out := make([]model.Product, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, *p)
	}
	return out, nil
}

// --- purchase requests ---

type fakePurchaseRepo struct {
	items     map[uuid.UUID]*model.PurchaseRequest
	users     *fakeUserRepo
	suppliers *fakeSupplierRepo
	products  *fakeProductRepo
}

func (r *fakePurchaseRepo) Create(_ context.Context, req *model.PurchaseRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now()
	stored := *req
	r.items[req.ID] = &stored
	return nil
}

func (r *fakePurchaseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	stored, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakePurchaseRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *fakePurchaseRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	req, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u, ok := r.users.users[req.RequesterID]; ok {
		req.Requester = u
	}
	if req.ApproverID != nil {
		if u, ok := r.users.users[*req.ApproverID]; ok {
			req.Approver = u
		}
	}
	if s, ok := r.suppliers.items[req.SupplierID]; ok {
		req.Supplier = s
	}
	if p, ok := r.products.items[req.ProductID]; ok {
		req.Product = p
	}
	return req, nil
}

func (r *fakePurchaseRepo) List(_ context.Context, status string, _, _ int) ([]model.PurchaseRequest, int64, error) {
	out := make([]model.PurchaseRequest, 0, len(r.items))
	for _, req := range r.items {
		if status == "" || req.Status == status {
			out = append(out, *req)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePurchaseRepo) ListByRequester(_ context.Context, requesterID uuid.UUID, _, _ int) ([]model.PurchaseRequest, int64, error) {
	out := make([]model.PurchaseRequest, 0)
	for _, req := range r.items {
		if req.RequesterID == requesterID {
			out = append(out, *req)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePurchaseRepo) Update(_ context.Context, req *model.PurchaseRequest) error {
	if _, ok := r.items[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *req
	r.items[req.ID] = &stored
	return nil
}

func (r *fakePurchaseRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakePurchaseRepo) CountByStatus(_ context.Context, status string) (int64, error) {
	var n int64
	for _, req := range r.items {
		if req.Status == status {
			n++
		}
	}
	return n, nil
}

// --- sales ---

type fakeSaleRepo struct {
	items      map[uuid.UUID]*model.Sale
	failCreate bool
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{items: make(map[uuid.UUID]*model.Sale)}
}

func (r *fakeSaleRepo) Create(_ context.Context, sale *model.Sale) error {
	if r.failCreate {
		return errors.New("sale insert failed")
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	sale.CreatedAt = time.Now()
	stored := *sale
	r.items[sale.ID] = &stored
	return nil
}

func (r *fakeSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	stored, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeSaleRepo) FindBySourceRequest(_ context.Context, requestID uuid.UUID) (*model.Sale, error) {
	for _, sale := range r.items {
		if sale.SourceRequestID != nil && *sale.SourceRequestID == requestID {
			cp := *sale
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSaleRepo) List(_ context.Context, origin string, _, _ int) ([]model.Sale, int64, error) {
	out := make([]model.Sale, 0, len(r.items))
	for _, sale := range r.items {
		if origin == "" || sale.Origin == origin {
			out = append(out, *sale)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSaleRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Sale, error) {
	out := make([]model.Sale, 0)
	for _, sale := range r.items {
		if !sale.CreatedAt.Before(from) && !sale.CreatedAt.After(to) {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) Update(_ context.Context, sale *model.Sale) error {
	if _, ok := r.items[sale.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *sale
	r.items[sale.ID] = &stored
	return nil
}

func (r *fakeSaleRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeSaleRepo) SumTotals(_ context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, sale := range r.items {
		sum = sum.Add(sale.Total)
	}
	return sum, nil
}

func (r *fakeSaleRepo) SumTotalsBetween(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, sale := range r.items {
		if !sale.CreatedAt.Before(from) && !sale.CreatedAt.After(to) {
			sum = sum.Add(sale.Total)
		}
	}
	return sum, nil
}

// --- audit ---

type fakeAuditRepo struct {
	entries []*model.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, action string, _, _ int) ([]model.AuditLog, int64, error) {
	out := make([]model.AuditLog, 0, len(r.entries))
	for _, e := range r.entries {
		if action == "" || e.Action == action {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- renderer ---

type stubRenderer struct {
	fail bool
}

func (r stubRenderer) RenderInvoice(inv report.Invoice) (*report.Document, error) {
	if r.fail {
		return nil, errors.New("render failed")
	}
	return &report.Document{
		Filename:    fmt.Sprintf("invoice_purchase_%s.pdf", inv.Request.ID),
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 stub"),
	}, nil
}

func (r stubRenderer) RenderSalesReport(_ []model.Sale, _ decimal.Decimal) (*report.Document, error) {
	if r.fail {
		return nil, errors.New("render failed")
	}
	return &report.Document{Filename: "sales_report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 stub")}, nil
}

func (r stubRenderer) RenderInventoryReport(_ []model.Product) (*report.Document, error) {
	if r.fail {
		return nil, errors.New("render failed")
	}
	return &report.Document{Filename: "inventory_report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 stub")}, nil
}
