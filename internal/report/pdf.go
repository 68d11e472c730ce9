package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// Page geometry in millimetres. The title sits at (14,16) and the table
// starts at y=22; page breaks are left to fpdf.
const (
	pageMargin  = 14.0
	titleY      = 16.0
	tableStartY = 22.0
	rowHeight   = 8.0
)

// column widths add up to the printable width of an A4 portrait page
var pdfColumnWidths = []float64{18, 64, 34, 34, 32}

// WritePDF renders doc as a single table PDF
func WritePDF(w io.Writer, doc Document) error {
	return writePDF(w, doc, true)
}

func writePDF(w io.Writer, doc Document, compress bool) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("rezscan", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(pageMargin, titleY, tr(doc.Title))

	pdf.SetXY(pageMargin, tableStartY)

	// header
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	for i, col := range doc.Columns {
		pdf.CellFormat(columnWidth(i), rowHeight, tr(col), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(rowHeight)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for n, row := range doc.Rows {
		// striped body like the on-screen table
		fill := n%2 == 1
		pdf.SetFillColor(245, 245, 245)
		for i, cell := range row.Cells() {
			width := columnWidth(i)
			align := "C"
			if i == 1 {
				align = "L"
			}
			pdf.CellFormat(width, rowHeight, fitText(pdf, tr, cell, width-2), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func columnWidth(i int) float64 {
	if i < len(pdfColumnWidths) {
		return pdfColumnWidths[i]
	}
	return pdfColumnWidths[len(pdfColumnWidths)-1]
}

// fitText shortens s with an ellipsis until it fits in width and returns the
// translated text
func fitText(pdf *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if encoded := tr(s); pdf.GetStringWidth(encoded) <= width {
		return encoded
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := tr(string(runes) + "...")
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}
