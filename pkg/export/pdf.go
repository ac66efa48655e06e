package export

import (
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
)

// Custom page geometry for wide tables, in points. The width extends
// well past A4 landscape (841.89pt) while keeping the standard height.
const (
	pageWidth  = 1200.0
	pageHeight = 595.26

	marginLeft   = 20.0
	marginRight  = 20.0
	marginTop    = 30.0
	marginBottom = 30.0

	// Column width heuristic bounds.
	minColWidth = 40.0
	maxColWidth = 200.0
	charWidth   = 0.6 // width per character as a fraction of the font size
)

// PDFOptions configures the paginated document output.
type PDFOptions struct {
	// Title is rendered above the table when non-empty.
	Title string

	// FontSize is the base font size in points. Defaults to 8.
	FontSize float64
}

// WritePDF renders the dataset as a paginated landscape table with a
// styled header row repeated on every page, striped data rows, and page
// numbers.
func WritePDF(ds *Dataset, path string, opts PDFOptions) error {
	if ds.Len() == 0 {
		log.Warn().Str("path", path).Msg("No data to export to PDF")
		return nil
	}

	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = 8
	}

	rowHeight := fontSize + 4
	if rowHeight < 16 {
		rowHeight = 16
	}

	widths := columnWidths(ds, fontSize)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(pageHeight - marginBottom + 10)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	if opts.Title != "" {
		pdf.SetFont("Helvetica", "B", fontSize+2)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, rowHeight+4, tr(opts.Title), "", 1, "C", false, 0, "")
	}

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", fontSize)
		pdf.SetFillColor(0x4F, 0x81, 0xBD)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetDrawColor(128, 128, 128)
		for c, col := range ds.Columns {
			pdf.CellFormat(widths[c], rowHeight, tr(col), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	writeHeader()
	pdf.SetFont("Helvetica", "", fontSize)

	for i := 0; i < ds.Len(); i++ {
		if pdf.GetY()+rowHeight > pageHeight-marginBottom {
			pdf.AddPage()
			writeHeader()
			pdf.SetFont("Helvetica", "", fontSize)
		}

		// Stripe every second data row.
		if i%2 == 1 {
			pdf.SetFillColor(0xE6, 0xE6, 0xE6)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetTextColor(0, 0, 0)

		for c, value := range ds.Row(i) {
			pdf.CellFormat(widths[c], rowHeight, tr(value), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("records", ds.Len()).
		Msg("Wide-format PDF generated")
	return nil
}

// columnWidths sizes each column from its longest cell, bounded to keep
// narrow columns readable and wide ones from swallowing the page.
func columnWidths(ds *Dataset, fontSize float64) []float64 {
	widths := make([]float64, len(ds.Columns))

	for c, col := range ds.Columns {
		maxLen := len(col)
		for i := 0; i < ds.Len(); i++ {
			if v, ok := ds.Records[i][col]; ok {
				if l := len(CellString(v)); l > maxLen {
					maxLen = l
				}
			}
		}

		w := charWidth * fontSize * float64(maxLen)
		if w < minColWidth {
			w = minColWidth
		}
		if w > maxColWidth {
			w = maxColWidth
		}
		widths[c] = w
	}

	return widths
}
