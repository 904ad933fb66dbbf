package service

import (
	"context"
	"errors"
	"testing"

	"metvil/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

type engineFixture struct {
	svc       PurchaseService
	users     *fakeUserRepo
	suppliers *fakeSupplierRepo
	products  *fakeProductRepo
	purchases *fakePurchaseRepo
	sales     *fakeSaleRepo
	audits    *fakeAuditRepo

	requester model.Principal
	approver  model.Principal
	supplier  *model.Supplier
	product   *model.Product
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	users := newFakeUserRepo()
	suppliers := newFakeSupplierRepo()
	products := newFakeProductRepo()
	sales := newFakeSaleRepo()
	audits := &fakeAuditRepo{}
	purchases := &fakePurchaseRepo{
		items:     make(map[uuid.UUID]*model.PurchaseRequest),
		users:     users,
		suppliers: suppliers,
		products:  products,
	}

	ctx := context.Background()
	requester := &model.User{Name: "Ana Torres", Username: "ana", Email: "ana@metvil.test", Role: model.RoleRequester}
	approver := &model.User{Name: "Luis Vega", Username: "luis", Email: "luis@metvil.test", Role: model.RoleApprover}
	if err := users.Create(ctx, requester); err != nil {
		t.Fatalf("seed requester: %v", err)
	}
	if err := users.Create(ctx, approver); err != nil {
		t.Fatalf("seed approver: %v", err)
	}

	supplier := &model.Supplier{Name: "Maderas del Norte", IsActive: true}
	if err := suppliers.Create(ctx, supplier); err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	product := &model.Product{Name: "Oak Dining Table", Price: decimal.NewFromInt(250), Stock: 10}
	if err := products.Create(ctx, product); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	svc := NewPurchaseService(purchases, sales, products, suppliers, users, audits,
		fakeTxManager{}, stubRenderer{}, nil, zaptest.NewLogger(t))

	return &engineFixture{
		svc:       svc,
		users:     users,
		suppliers: suppliers,
		products:  products,
		purchases: purchases,
		sales:     sales,
		audits:    audits,
		requester: model.Principal{ID: requester.ID, Role: model.RoleRequester},
		approver:  model.Principal{ID: approver.ID, Role: model.RoleApprover},
		supplier:  supplier,
		product:   product,
	}
}

func (f *engineFixture) submit(t *testing.T, qty int, price string) PurchaseResponse {
	t.Helper()
	resp, err := f.svc.Submit(context.Background(), f.requester, SubmitPurchaseDTO{
		SupplierID: f.supplier.ID.String(),
		ProductID:  f.product.ID.String(),
		Quantity:   qty,
		UnitPrice:  price,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return resp
}

func TestSubmitComputesTotalAndStartsPending(t *testing.T) {
	f := newEngineFixture(t)

	resp := f.submit(t, 3, "149.99")

	if resp.Status != model.PurchasePending {
		t.Errorf("expected status PENDING, got %s", resp.Status)
	}
	if resp.Total != "449.97" {
		t.Errorf("expected total 449.97, got %s", resp.Total)
	}
	if resp.RequesterName != "Ana Torres" {
		t.Errorf("expected requester name resolved, got %q", resp.RequesterName)
	}
	if len(f.audits.entries) != 1 || f.audits.entries[0].Action != model.ActionSubmitPurchase {
		t.Errorf("expected a submit audit entry, got %v", f.audits.actions())
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  SubmitPurchaseDTO
	}{
		{"zero quantity", SubmitPurchaseDTO{SupplierID: f.supplier.ID.String(), ProductID: f.product.ID.String(), Quantity: 0, UnitPrice: "10"}},
		{"negative quantity", SubmitPurchaseDTO{SupplierID: f.supplier.ID.String(), ProductID: f.product.ID.String(), Quantity: -2, UnitPrice: "10"}},
		{"zero price", SubmitPurchaseDTO{SupplierID: f.supplier.ID.String(), ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: "0"}},
		{"negative price", SubmitPurchaseDTO{SupplierID: f.supplier.ID.String(), ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: "-5"}},
		{"malformed price", SubmitPurchaseDTO{SupplierID: f.supplier.ID.String(), ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: "abc"}},
		{"bad supplier id", SubmitPurchaseDTO{SupplierID: "nope", ProductID: f.product.ID.String(), Quantity: 1, UnitPrice: "10"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, f.requester, tc.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestSubmitUnknownCatalogReferences(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.requester, SubmitPurchaseDTO{
		SupplierID: uuid.NewString(),
		ProductID:  f.product.ID.String(),
		Quantity:   1,
		UnitPrice:  "10",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown supplier, got %v", err)
	}

	_, err = f.svc.Submit(ctx, f.requester, SubmitPurchaseDTO{
		SupplierID: f.supplier.ID.String(),
		ProductID:  uuid.NewString(),
		Quantity:   1,
		UnitPrice:  "10",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestSubmitRequiresRequesterRole(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.svc.Submit(context.Background(), f.approver, SubmitPurchaseDTO{
		SupplierID: f.supplier.ID.String(),
		ProductID:  f.product.ID.String(),
		Quantity:   1,
		UnitPrice:  "10",
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for approver submit, got %v", err)
	}
}

func TestApproveSpawnsLinkedSale(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 2, "300.50")

	purchase, sale, err := f.svc.Approve(ctx, f.approver, submitted.ID, "looks good")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if purchase.Status != model.PurchaseApproved {
		t.Errorf("expected status APPROVED, got %s", purchase.Status)
	}
	if purchase.DecidedAt == nil {
		t.Error("expected decided_at to be set")
	}
	if purchase.ApproverID == nil || *purchase.ApproverID != f.approver.ID.String() {
		t.Error("expected approver id recorded on the request")
	}
	if purchase.Comments != "looks good" {
		t.Errorf("expected comments preserved, got %q", purchase.Comments)
	}

	if sale == nil {
		t.Fatal("expected a sale to be spawned")
	}
	if sale.Origin != model.SaleOriginFromRequest {
		t.Errorf("expected sale origin FROM_REQUEST, got %s", sale.Origin)
	}
	if sale.SourceRequestID == nil || *sale.SourceRequestID != submitted.ID {
		t.Error("expected sale to reference the source request")
	}
	if sale.Total != purchase.Total {
		t.Errorf("sale total %s does not match purchase total %s", sale.Total, purchase.Total)
	}
	if sale.ClientName != "Ana Torres" {
		t.Errorf("expected client name from requester, got %q", sale.ClientName)
	}

	if len(f.sales.items) != 1 {
		t.Errorf("expected exactly one sale in the ledger, got %d", len(f.sales.items))
	}
}

func TestApproveTwiceConflicts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")

	if _, _, err := f.svc.Approve(ctx, f.approver, submitted.ID, ""); err != nil {
		t.Fatalf("first Approve failed: %v", err)
	}
	_, _, err := f.svc.Approve(ctx, f.approver, submitted.ID, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on second approve, got %v", err)
	}

	// Still exactly one sale after the conflicting retry.
	if len(f.sales.items) != 1 {
		t.Errorf("expected exactly one sale, got %d", len(f.sales.items))
	}
}

func TestApproveRejectedRequestConflicts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")

	if _, err := f.svc.Reject(ctx, f.approver, submitted.ID, "no budget"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	_, _, err := f.svc.Approve(ctx, f.approver, submitted.ID, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition approving a rejected request, got %v", err)
	}
	if len(f.sales.items) != 0 {
		t.Errorf("expected no sales after rejection, got %d", len(f.sales.items))
	}
}

func TestApproveRequiresApproverRole(t *testing.T) {
	f := newEngineFixture(t)

	submitted := f.submit(t, 1, "100")

	_, _, err := f.svc.Approve(context.Background(), f.requester, submitted.ID, "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestApproveSurvivesSaleFailure(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")
	f.sales.failCreate = true

	purchase, sale, err := f.svc.Approve(ctx, f.approver, submitted.ID, "")
	if !errors.Is(err, ErrDownstreamFailure) {
		t.Fatalf("expected ErrDownstreamFailure, got %v", err)
	}
	if sale != nil {
		t.Error("expected no sale on downstream failure")
	}

	// The approval itself must stand.
	if purchase.Status != model.PurchaseApproved {
		t.Errorf("expected returned purchase APPROVED, got %s", purchase.Status)
	}
	stored, storeErr := f.purchases.FindByID(ctx, mustParse(t, submitted.ID))
	if storeErr != nil {
		t.Fatalf("stored purchase lookup failed: %v", storeErr)
	}
	if stored.Status != model.PurchaseApproved {
		t.Errorf("expected stored purchase APPROVED, got %s", stored.Status)
	}
}

func TestRejectDefaultsComment(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")

	resp, err := f.svc.Reject(ctx, f.approver, submitted.ID, "")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if resp.Status != model.PurchaseRejected {
		t.Errorf("expected status REJECTED, got %s", resp.Status)
	}
	if resp.Comments != defaultRejectionComment {
		t.Errorf("expected default rejection comment, got %q", resp.Comments)
	}
}

func TestEditRecomputesTotal(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 2, "100")

	qty := 5
	resp, err := f.svc.Edit(ctx, f.requester, submitted.ID, EditPurchaseDTO{Quantity: &qty, UnitPrice: "80.10"})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if resp.Total != "400.50" {
		t.Errorf("expected recomputed total 400.50, got %s", resp.Total)
	}
}

func TestEditGuards(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")

	// Another requester cannot edit someone else's request.
	stranger := model.Principal{ID: uuid.New(), Role: model.RoleRequester}
	qty := 2
	if _, err := f.svc.Edit(ctx, stranger, submitted.ID, EditPurchaseDTO{Quantity: &qty}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for non-owner edit, got %v", err)
	}

	// Decided requests are frozen for the requester.
	if _, _, err := f.svc.Approve(ctx, f.approver, submitted.ID, ""); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if _, err := f.svc.Edit(ctx, f.requester, submitted.ID, EditPurchaseDTO{Quantity: &qty}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition editing an approved request, got %v", err)
	}
}

func TestWithdrawRemovesPendingRequest(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")

	if err := f.svc.Withdraw(ctx, f.requester, submitted.ID); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if _, err := f.purchases.FindByID(ctx, mustParse(t, submitted.ID)); err == nil {
		t.Error("expected request to be gone after withdrawal")
	}
}

func TestWithdrawGuards(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")

	stranger := model.Principal{ID: uuid.New(), Role: model.RoleRequester}
	if err := f.svc.Withdraw(ctx, stranger, submitted.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for non-owner withdraw, got %v", err)
	}

	if _, _, err := f.svc.Approve(ctx, f.approver, submitted.ID, ""); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := f.svc.Withdraw(ctx, f.requester, submitted.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition withdrawing an approved request, got %v", err)
	}
}

func TestInvoiceOnlyForApprovedRequests(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	submitted := f.submit(t, 1, "100")

	if _, err := f.svc.IssueInvoice(ctx, f.requester, submitted.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition invoicing a pending request, got %v", err)
	}

	if _, _, err := f.svc.Approve(ctx, f.approver, submitted.ID, ""); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	doc, err := f.svc.IssueInvoice(ctx, f.requester, submitted.ID)
	if err != nil {
		t.Fatalf("IssueInvoice failed: %v", err)
	}
	if doc.ContentType != "application/pdf" {
		t.Errorf("expected PDF content type, got %s", doc.ContentType)
	}

	// Invoices are repeat-downloadable.
	if _, err := f.svc.IssueInvoice(ctx, f.approver, submitted.ID); err != nil {
		t.Errorf("expected repeated invoice download to succeed, got %v", err)
	}

	stranger := model.Principal{ID: uuid.New(), Role: model.RoleRequester}
	if _, err := f.svc.IssueInvoice(ctx, stranger, submitted.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for stranger invoice, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.submit(t, 1, "100")
	f.submit(t, 2, "50")

	// A second requester with their own request.
	other := &model.User{Name: "Marta Ruiz", Username: "marta", Email: "marta@metvil.test", Role: model.RoleRequester}
	if err := f.users.Create(ctx, other); err != nil {
		t.Fatalf("seed second requester: %v", err)
	}
	otherPrincipal := model.Principal{ID: other.ID, Role: model.RoleRequester}
	if _, err := f.svc.Submit(ctx, otherPrincipal, SubmitPurchaseDTO{
		SupplierID: f.supplier.ID.String(),
		ProductID:  f.product.ID.String(),
		Quantity:   1,
		UnitPrice:  "75",
	}); err != nil {
		t.Fatalf("second requester submit failed: %v", err)
	}

	mine, _, err := f.svc.List(ctx, f.requester, PurchaseFilter{})
	if err != nil {
		t.Fatalf("requester List failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected requester to see 2 own requests, got %d", len(mine))
	}

	all, _, err := f.svc.List(ctx, f.approver, PurchaseFilter{})
	if err != nil {
		t.Fatalf("approver List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected approver to see all 3 requests, got %d", len(all))
	}
}

func mustParse(t *testing.T, id string) uuid.UUID {
	t.Helper()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("invalid uuid %q: %v", id, err)
	}
	return parsed
}
