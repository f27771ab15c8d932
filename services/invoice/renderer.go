package invoice

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"marketplace/models"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02 15:04:05"

// Table column widths in points.
var columnWidths = [4]float64{200, 50, 100, 100}

// Document is everything printed on an invoice.
type Document struct {
	OrderID       string
	CustomerEmail string
	CreatedAt     time.Time
	Items         []models.LineItem
	Total         decimal.Decimal
}

// NewDocument captures an order and its recipient for rendering.
func NewDocument(order *models.Order, customerEmail string) Document {
	return Document{
		OrderID:       order.ID,
		CustomerEmail: customerEmail,
		CreatedAt:     order.CreatedAt,
		Items:         order.Items,
		Total:         order.TotalAmount,
	}
}

// Renderer produces uncompressed PDF invoices. The output for a given
// Document is byte-for-byte stable.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Render lays out a Letter page: title, order header, then the item table
// ending in a Total Amount row.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.CreatedAt)
	pdf.SetModificationDate(doc.CreatedAt)
	pdf.SetTitle("Invoice "+doc.OrderID, true)
	pdf.SetMargins(72, 72, 72)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 28, "Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		"Order ID: " + doc.OrderID,
		"Customer: " + doc.CustomerEmail,
		"Date: " + doc.CreatedAt.Format(dateLayout),
	} {
		pdf.CellFormat(0, 16, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(24)

	const rowHeight = 20
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for i, title := range []string{"Product", "Quantity", "Unit Price", "Total"} {
		pdf.CellFormat(columnWidths[i], rowHeight, title, "1", 0, align(i), true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	for _, item := range doc.Items {
		cells := [4]string{
			fit(pdf, tr(item.ProductName), columnWidths[0]-6),
			strconv.Itoa(item.Quantity),
			money(item.UnitPrice),
			money(item.Total()),
		}
		for i, text := range cells {
			pdf.CellFormat(columnWidths[i], rowHeight, text, "1", 0, align(i), false, 0, "")
		}
		pdf.Ln(-1)
	}
	for i, text := range [4]string{"", "", "Total Amount", money(doc.Total)} {
		pdf.CellFormat(columnWidths[i], rowHeight, text, "1", 0, align(i), false, 0, "")
	}
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice for order %s: %w", doc.OrderID, err)
	}
	return buf.Bytes(), nil
}

// Money columns are right-aligned.
func align(column int) string {
	if column >= 2 {
		return "R"
	}
	return "L"
}

// fit truncates text with an ellipsis so it stays within width.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
