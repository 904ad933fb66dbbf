// Package report renders finalized workflow records into downloadable
// documents. The workflow engine only sees the Renderer interface; the PDF
// implementation lives in pdf.go.
package report

import (
	"metvil/internal/model"

	"github.com/shopspring/decimal"
)

// Document is an opaque rendered report, ready to be sent to the client.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Invoice carries everything needed to render a purchase invoice. Names are
// resolved by the caller so the renderer never touches storage.
type Invoice struct {
	Request       model.PurchaseRequest
	RequesterName string
	SupplierName  string
	ProductName   string
}

// Renderer produces documents from finalized records.
type Renderer interface {
	RenderInvoice(inv Invoice) (*Document, error)
	RenderSalesReport(sales []model.Sale, total decimal.Decimal) (*Document, error)
	RenderInventoryReport(products []model.Product) (*Document, error)
}
