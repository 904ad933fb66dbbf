package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"metvil/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sampleInvoice() Invoice {
	now := time.Now()
	req := model.PurchaseRequest{
		ID:        uuid.New(),
		Quantity:  2,
		UnitPrice: decimal.NewFromFloat(125.50),
		Status:    model.PurchaseApproved,
		DecidedAt: &now,
	}
	req.ComputeTotal()
	return Invoice{
		Request:       req,
		RequesterName: "Ana Torres",
		SupplierName:  "Maderas del Norte",
		ProductName:   "Oak Dining Table",
	}
}

func assertPDF(t *testing.T, doc *Document) {
	t.Helper()
	if doc == nil {
		t.Fatal("expected a document")
	}
	if doc.ContentType != "application/pdf" {
		t.Errorf("expected content type application/pdf, got %s", doc.ContentType)
	}
	if !bytes.HasPrefix(doc.Data, []byte("%PDF")) {
		t.Error("expected document data to start with the PDF magic bytes")
	}
}

func TestRenderInvoice(t *testing.T) {
	renderer := NewPDFRenderer("")
	inv := sampleInvoice()

	doc, err := renderer.RenderInvoice(inv)
	if err != nil {
		t.Fatalf("RenderInvoice failed: %v", err)
	}

	assertPDF(t, doc)
	want := "invoice_purchase_" + inv.Request.ID.String() + ".pdf"
	if doc.Filename != want {
		t.Errorf("expected filename %s, got %s", want, doc.Filename)
	}
}

func TestRenderSalesReport(t *testing.T) {
	renderer := NewPDFRenderer("Test Furniture Co")

	sales := []model.Sale{
		{ID: uuid.New(), ClientName: "Carlos Mena", Quantity: 1, UnitPrice: decimal.NewFromInt(100), Total: decimal.NewFromInt(100), Origin: model.SaleOriginDirect, CreatedAt: time.Now()},
		{ID: uuid.New(), ClientName: "Ana Torres", Quantity: 2, UnitPrice: decimal.NewFromInt(50), Total: decimal.NewFromInt(100), Origin: model.SaleOriginFromRequest, CreatedAt: time.Now()},
	}

	doc, err := renderer.RenderSalesReport(sales, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("RenderSalesReport failed: %v", err)
	}

	assertPDF(t, doc)
	if !strings.HasPrefix(doc.Filename, "sales_report_") || !strings.HasSuffix(doc.Filename, ".pdf") {
		t.Errorf("unexpected filename %s", doc.Filename)
	}
}

func TestRenderSalesReportEmpty(t *testing.T) {
	renderer := NewPDFRenderer("")

	doc, err := renderer.RenderSalesReport(nil, decimal.Zero)
	if err != nil {
		t.Fatalf("RenderSalesReport with no sales failed: %v", err)
	}
	assertPDF(t, doc)
}

func TestRenderInventoryReport(t *testing.T) {
	renderer := NewPDFRenderer("")

	products := []model.Product{
		{ID: uuid.New(), Name: "Oak Dining Table", Category: "tables", Price: decimal.NewFromInt(250), Stock: 10},
		{ID: uuid.New(), Name: "Walnut Bookshelf", Category: "storage", Price: decimal.NewFromInt(180), Stock: 4},
	}

	doc, err := renderer.RenderInventoryReport(products)
	if err != nil {
		t.Fatalf("RenderInventoryReport failed: %v", err)
	}

	assertPDF(t, doc)
	if !strings.HasPrefix(doc.Filename, "inventory_report_") {
		t.Errorf("unexpected filename %s", doc.Filename)
	}
}
