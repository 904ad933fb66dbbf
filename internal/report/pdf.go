package report

import (
	"bytes"
	"fmt"
	"time"

	"metvil/internal/model"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const pdfContentType = "application/pdf"

// PDFRenderer renders invoices and reports as PDF documents.
type PDFRenderer struct {
	companyName string
}

func NewPDFRenderer(companyName string) *PDFRenderer {
	if companyName == "" {
		companyName = "MUEBLES MET VIL"
	}
	return &PDFRenderer{companyName: companyName}
}

func (r *PDFRenderer) newDoc(subtitle string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(13, 110, 253)
	pdf.CellFormat(0, 12, r.companyName, "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, subtitle, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return pdf
}

func (r *PDFRenderer) finish(pdf *gofpdf.Fpdf, filename string) (*Document, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return &Document{
		Filename:    filename,
		ContentType: pdfContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (r *PDFRenderer) RenderInvoice(inv Invoice) (*Document, error) {
	req := inv.Request
	pdf := r.newDoc("Purchase Invoice")

	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Invoice for request:", req.ID.String()},
		{"Date issued:", time.Now().Format("02/01/2006 15:04")},
		{"Requested by:", inv.RequesterName},
		{"Supplier:", inv.SupplierName},
		{"Status:", req.Status},
	}
	if req.DecidedAt != nil {
		rows = append(rows, [2]string{"Approved at:", req.DecidedAt.Format("02/01/2006 15:04")})
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Line item table
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(80, 9, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 9, "Quantity", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 9, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 9, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(80, 9, inv.ProductName, "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 9, fmt.Sprintf("%d", req.Quantity), "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 9, "$"+req.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 9, "$"+req.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(145, 10, "TOTAL", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 10, "$"+req.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	return r.finish(pdf, fmt.Sprintf("invoice_purchase_%s.pdf", req.ID))
}

func (r *PDFRenderer) RenderSalesReport(sales []model.Sale, total decimal.Decimal) (*Document, error) {
	pdf := r.newDoc("Sales Report")

	direct := 0
	fromRequest := 0
	for _, s := range sales {
		if s.Origin == model.SaleOriginFromRequest {
			fromRequest++
		} else {
			direct++
		}
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Generated: %s", time.Now().Format("02/01/2006 15:04:05")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Sales: %d (direct: %d, from approved requests: %d)", len(sales), direct, fromRequest), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Total revenue: $"+total.StringFixed(2), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(55, 8, "Client", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Origin", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 8, "Date", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, s := range sales {
		pdf.CellFormat(55, 8, s.ClientName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, s.Origin, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", s.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, "$"+s.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, "$"+s.Total.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 8, s.CreatedAt.Format("02/01/2006"), "1", 1, "C", false, 0, "")
	}

	return r.finish(pdf, fmt.Sprintf("sales_report_%s.pdf", time.Now().Format("20060102_150405")))
}

func (r *PDFRenderer) RenderInventoryReport(products []model.Product) (*Document, error) {
	pdf := r.newDoc("Inventory Report")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Generated: %s", time.Now().Format("02/01/2006 15:04:05")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Products: %d", len(products)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 8, "Name", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 8, "Stock", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, p := range products {
		pdf.CellFormat(70, 8, p.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, p.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, "$"+p.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", p.Stock), "1", 1, "R", false, 0, "")
	}

	return r.finish(pdf, fmt.Sprintf("inventory_report_%s.pdf", time.Now().Format("20060102_150405")))
}
