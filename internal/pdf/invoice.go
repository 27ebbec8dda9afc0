package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Generator renders order invoices to disk.
type Generator interface {
	GenerateInvoice(data InvoiceData) (string, error)
}

type InvoiceGenerator struct {
	RootDir string
}

type InvoiceLine struct {
	Title    string
	Quantity int
	Price    decimal.Decimal
}

type InvoiceData struct {
	OrderID   int
	Customer  string
	Address   string
	Lines     []InvoiceLine
	Total     decimal.Decimal
	OrderDate time.Time
	Filename  string // basename only; generated when empty
}

func NewInvoiceGenerator(rootDir string) *InvoiceGenerator {
	return &InvoiceGenerator{RootDir: filepath.Clean(rootDir)}
}

func (g *InvoiceGenerator) GenerateInvoice(data InvoiceData) (string, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("invoice_order_%d.pdf", data.OrderID)
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice #%d", data.OrderID), false)
	pdf.SetAuthor("Shopsite", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	sub := fmt.Sprintf("No. SHP-%06d  of  %s", data.OrderID, data.OrderDate.Format("02.01.2006"))
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, "Customer")
	g.kvLine(pdf, "Name", data.Customer)
	g.kvLine(pdf, "Shipping address", data.Address)
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Items")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(95, 7, "Product", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 7, "Amount", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range data.Lines {
		pdf.CellFormat(95, 7, line.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, line.Price.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(120, 7, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, data.Total.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.Ln(4)
	g.hr(pdf)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, "Thank you for your order. This invoice was generated automatically and is valid without a signature.", "", "L", false)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

func (g *InvoiceGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
}

func (g *InvoiceGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *InvoiceGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *InvoiceGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename) // no path traversal
	return filepath.Join(g.RootDir, filename), nil
}
