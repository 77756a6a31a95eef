package report

import (
	"fmt"
	"io"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/textqa/internal/answer"
)

// WriteDOCX renders the sheet as a Word document with the same layout as
// the PDF writer: title, part headings, section subtitles, question and
// answer paragraphs.
func WriteDOCX(w io.Writer, sheet *answer.Sheet) error {
	doc := docx.New().WithDefaultTheme()

	title := doc.AddParagraph().Justification("center")
	title.AddText(sheet.Title).Size("32").Bold()

	for _, part := range sheet.Parts {
		doc.AddParagraph().AddText(part.Display).Size("28").Bold()

		for _, sec := range part.Sections {
			doc.AddParagraph().AddText(sec.Label).Size("24").Italic()

			for _, rec := range sec.Records {
				q := doc.AddParagraph()
				q.AddText(fmt.Sprintf("Q%s: %s", rec.Number, rec.Question)).Bold()

				a := doc.AddParagraph()
				a.AddText("Answer: " + flattenAnswer(rec.Answer))

				doc.AddParagraph() // spacer
			}
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
