// Package report writes answer sheets as downloadable documents.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/render"
)

// WritePDF renders the sheet as a paginated A4 PDF: centered title, one
// heading per part, an italic subtitle per section, then bold question
// lines followed by flattened answers.
func WritePDF(w io.Writer, sheet *answer.Sheet) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Core fonts are cp1252; answers arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(sheet.Title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	for _, part := range sheet.Parts {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, tr(part.Display), "", 1, "L", false, 0, "")
		pdf.Ln(3)

		for _, sec := range part.Sections {
			pdf.SetFont("Helvetica", "I", 12)
			pdf.CellFormat(0, 10, tr(sec.Label), "", 1, "L", false, 0, "")
			pdf.Ln(2)

			for _, rec := range sec.Records {
				pdf.SetFont("Helvetica", "B", 12)
				pdf.MultiCell(0, 10, tr(fmt.Sprintf("Q%s: %s", rec.Number, rec.Question)), "", "L", false)
				pdf.Ln(3)

				pdf.SetFont("Helvetica", "", 12)
				pdf.MultiCell(0, 8, tr("Answer: "+flattenAnswer(rec.Answer)), "", "L", false)
				pdf.Ln(5)
			}
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// flattenAnswer resolves markdown to plain text and folds the answer onto
// single-space separation so MultiCell controls all wrapping.
func flattenAnswer(text string) string {
	return strings.Join(strings.Fields(render.PlainText(text)), " ")
}
