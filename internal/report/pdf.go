package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pavelanni/gradereport/internal/cell"
)

const (
	pdfMargin     = 10.0
	pdfLineHeight = 6.0
	pdfFont       = "Helvetica"
)

// pdfEpoch pins the document dates so equal inputs give equal bytes.
var pdfEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// WritePDF writes the document as an A4 landscape table, one block per
// section, repeating the column headers after every page break.
func WritePDF(w io.Writer, doc *Document) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+5)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetCatalogSort(true)

	// Core fonts are cp1252; accented labels need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin - 3)
		pdf.SetFont(pdfFont, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, tr(doc.Generated)+"   "+strconv.Itoa(pdf.PageNo())+"/{nb}", "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 8, tr(doc.Title), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, pdfLineHeight, tr(doc.Subtitle), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(doc.Sections) == 0 {
		pdf.SetFont(pdfFont, "I", 10)
		pdf.CellFormat(0, pdfLineHeight, tr(doc.Empty), "", 1, "L", false, 0, "")
		return outputPDF(pdf, w)
	}

	pageW, _ := pdf.GetPageSize()
	widths := columnWidths(len(doc.Columns), pageW-2*pdfMargin)
	_, pageH := pdf.GetPageSize()

	header := func() {
		pdf.SetFont(pdfFont, "B", 9)
		pdf.SetFillColor(0x30, 0x54, 0x96)
		pdf.SetTextColor(255, 255, 255)
		for i, col := range doc.Columns {
			pdf.CellFormat(widths[i], pdfLineHeight+1, tr(col), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	for _, s := range doc.Sections {
		// Keep a section title with at least its header and first row.
		if pdf.GetY()+4*pdfLineHeight > pageH-pdfMargin-5 {
			pdf.AddPage()
		}
		pdf.SetFont(pdfFont, "B", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
		pdf.CellFormat(0, pdfLineHeight+1, tr(s.Title()), "", 1, "L", false, 0, "")
		header()

		for _, r := range s.Rows {
			if pdf.GetY()+pdfLineHeight > pageH-pdfMargin-5 {
				pdf.AddPage()
				header()
			}
			for i, c := range r.Cells {
				style := c.Style
				if r.Summary {
					style.FontStyle = cell.FontBold
				}
				fill := applyPDFStyle(pdf, style)
				pdf.CellFormat(widths[i], pdfLineHeight, tr(c.Value), "1", 0, "L", fill, 0, "")
			}
			pdf.Ln(-1)
		}
	}
	return outputPDF(pdf, w)
}

func outputPDF(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// columnWidths splits total so that the grade column, which holds the
// longest values, gets twice the room of the others.
func columnWidths(n int, total float64) []float64 {
	if n == 0 {
		return nil
	}
	weights := make([]float64, n)
	var sum float64
	for i := range weights {
		weights[i] = 1
		if i == n-2 {
			weights[i] = 2
		}
		sum += weights[i]
	}
	out := make([]float64, n)
	for i, wt := range weights {
		out[i] = total * wt / sum
	}
	return out
}

// applyPDFStyle sets font and colors for s and reports whether the cell
// must be filled.
func applyPDFStyle(pdf *fpdf.Fpdf, s cell.Style) bool {
	fontStyle := ""
	switch s.FontStyle {
	case cell.FontBold:
		fontStyle = "B"
	case cell.FontItalic:
		fontStyle = "I"
	}
	pdf.SetFont(pdfFont, fontStyle, 9)

	r, g, b := hexColor(s.Color)
	pdf.SetTextColor(r, g, b)
	if s.BackgroundColor == "" {
		return false
	}
	r, g, b = hexColor(s.BackgroundColor)
	pdf.SetFillColor(r, g, b)
	return true
}

// hexColor parses #RRGGBB. Malformed values give black.
func hexColor(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}
