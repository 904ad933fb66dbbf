package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"metvil/internal/middleware"
	"metvil/internal/model"
	"metvil/internal/report"
	"metvil/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// stubPurchaseService lets each test script the engine's behavior.
type stubPurchaseService struct {
	approveFn func(ctx context.Context, p model.Principal, id, comments string) (service.PurchaseResponse, *service.SaleResponse, error)
	invoiceFn func(ctx context.Context, p model.Principal, id string) (*report.Document, error)
	submitFn  func(ctx context.Context, p model.Principal, req service.SubmitPurchaseDTO) (service.PurchaseResponse, error)
}

func (s *stubPurchaseService) Submit(ctx context.Context, p model.Principal, req service.SubmitPurchaseDTO) (service.PurchaseResponse, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, p, req)
	}
	return service.PurchaseResponse{}, nil
}

func (s *stubPurchaseService) Approve(ctx context.Context, p model.Principal, id, comments string) (service.PurchaseResponse, *service.SaleResponse, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, p, id, comments)
	}
	return service.PurchaseResponse{}, nil, nil
}

func (s *stubPurchaseService) Reject(context.Context, model.Principal, string, string) (service.PurchaseResponse, error) {
	return service.PurchaseResponse{}, nil
}

func (s *stubPurchaseService) Edit(context.Context, model.Principal, string, service.EditPurchaseDTO) (service.PurchaseResponse, error) {
	return service.PurchaseResponse{}, nil
}

func (s *stubPurchaseService) Withdraw(context.Context, model.Principal, string) error {
	return nil
}

func (s *stubPurchaseService) IssueInvoice(ctx context.Context, p model.Principal, id string) (*report.Document, error) {
	if s.invoiceFn != nil {
		return s.invoiceFn(ctx, p, id)
	}
	return nil, nil
}

func (s *stubPurchaseService) List(context.Context, model.Principal, service.PurchaseFilter) ([]service.PurchaseResponse, int64, error) {
	return nil, 0, nil
}

func newPurchaseRouter(stub *stubPurchaseService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewPurchaseHandler(stub).RegisterRoutes(router.Group(""))
	return router
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return "Bearer " + signed
}

func TestApproveReturnsSaleOnSuccess(t *testing.T) {
	stub := &stubPurchaseService{
		approveFn: func(_ context.Context, _ model.Principal, id, _ string) (service.PurchaseResponse, *service.SaleResponse, error) {
			return service.PurchaseResponse{ID: id, Status: model.PurchaseApproved},
				&service.SaleResponse{ID: uuid.NewString(), Origin: model.SaleOriginFromRequest}, nil
		},
	}
	router := newPurchaseRouter(stub)

	req := httptest.NewRequest(http.MethodPut, "/api/purchases/"+uuid.NewString()+"/approve", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, model.RoleApprover))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Purchase service.PurchaseResponse `json:"purchase"`
			Sale     *service.SaleResponse    `json:"sale"`
		} `json:"data"`
		Warning string `json:"warning"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Data.Sale == nil {
		t.Error("expected the spawned sale in the response")
	}
	if body.Warning != "" {
		t.Errorf("expected no warning, got %q", body.Warning)
	}
}

func TestApproveDownstreamFailureReturnsWarning(t *testing.T) {
	stub := &stubPurchaseService{
		approveFn: func(_ context.Context, _ model.Principal, id, _ string) (service.PurchaseResponse, *service.SaleResponse, error) {
			return service.PurchaseResponse{ID: id, Status: model.PurchaseApproved}, nil,
				fmt.Errorf("%w: sale insert failed", service.ErrDownstreamFailure)
		},
	}
	router := newPurchaseRouter(stub)

	req := httptest.NewRequest(http.MethodPut, "/api/purchases/"+uuid.NewString()+"/approve", nil)
	req.Header.Set("Authorization", bearer(t, model.RoleApprover))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The approval stands, so the handler must still answer 200.
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var body struct {
		Status  string `json:"status"`
		Warning string `json:"warning"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status != "success" {
		t.Errorf("expected success status, got %q", body.Status)
	}
	if body.Warning == "" {
		t.Error("expected a warning about the failed sale")
	}
}

func TestApproveErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: purchase request x", service.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: already APPROVED", service.ErrInvalidTransition), http.StatusConflict},
		{"validation", fmt.Errorf("%w: invalid id", service.ErrValidation), http.StatusBadRequest},
		{"denied", fmt.Errorf("%w: nope", service.ErrPermissionDenied), http.StatusForbidden},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubPurchaseService{
				approveFn: func(context.Context, model.Principal, string, string) (service.PurchaseResponse, *service.SaleResponse, error) {
					return service.PurchaseResponse{}, nil, tc.err
				},
			}
			router := newPurchaseRouter(stub)

			req := httptest.NewRequest(http.MethodPut, "/api/purchases/"+uuid.NewString()+"/approve", nil)
			req.Header.Set("Authorization", bearer(t, model.RoleApprover))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestApproveRequiresApproverRole(t *testing.T) {
	router := newPurchaseRouter(&stubPurchaseService{})

	req := httptest.NewRequest(http.MethodPut, "/api/purchases/"+uuid.NewString()+"/approve", nil)
	req.Header.Set("Authorization", bearer(t, model.RoleRequester))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for requester, got %d", w.Code)
	}
}

func TestInvoiceDownloadHeaders(t *testing.T) {
	stub := &stubPurchaseService{
		invoiceFn: func(_ context.Context, _ model.Principal, id string) (*report.Document, error) {
			return &report.Document{
				Filename:    "invoice_purchase_" + id + ".pdf",
				ContentType: "application/pdf",
				Data:        []byte("%PDF-1.4 stub"),
			}, nil
		},
	}
	router := newPurchaseRouter(stub)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/purchases/"+id+"/invoice", nil)
	req.Header.Set("Authorization", bearer(t, model.RoleRequester))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", got)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "invoice_purchase_"+id+".pdf") {
		t.Errorf("expected filename in Content-Disposition, got %q", got)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Error("expected PDF bytes in the body")
	}
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	router := newPurchaseRouter(&stubPurchaseService{})

	req := httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(`{"quantity": "not a number"`))
	req.Header.Set("Authorization", bearer(t, model.RoleRequester))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed payload, got %d", w.Code)
	}
}
