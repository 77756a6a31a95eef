package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/pdftext"
)

func testSheet() *answer.Sheet {
	return &answer.Sheet{
		Title: "Answer Sheet",
		Parts: []answer.PartAnswers{
			{
				Label:   "PART A",
				Display: "PART A: Descriptive Answers",
				Sections: []answer.SectionAnswers{
					{
						Label: "SECTION 1",
						Records: []answer.Record{
							{
								Number:   "1",
								Question: "Define photosynthesis.",
								Answer:   "Photosynthesis converts light energy into chemical energy.",
								Marks:    5,
							},
							{
								Number:   "2",
								Question: "Name the powerhouse of the cell.",
								Answer:   "The **mitochondrion** is the powerhouse of the cell.",
								Marks:    5,
							},
						},
					},
				},
			},
		},
	}
}

// stripSpace removes all whitespace so layout differences between the
// writer and the extractor do not affect comparison.
func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestWritePDF_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, testSheet()); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}

	ex := &pdftext.Extractor{}
	pages, err := ex.Extract(buf.Bytes())
	if err != nil {
		t.Fatalf("re-extract: %v", err)
	}
	var all strings.Builder
	for _, p := range pages {
		all.WriteString(p.Text)
	}
	got := stripSpace(all.String())

	for _, want := range []string{
		"AnswerSheet",
		"PARTA:DescriptiveAnswers",
		"SECTION1",
		"Q1:Definephotosynthesis.",
		"Answer:Photosynthesisconvertslightenergyintochemicalenergy.",
		"Q2:Namethepowerhouseofthecell.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("extracted PDF text missing %q", want)
		}
	}
	// Markdown emphasis must be flattened, not carried through.
	if strings.Contains(got, "**") {
		t.Error("markdown markers leaked into the PDF")
	}
	if !strings.Contains(got, "mitochondrion") {
		t.Error("emphasised word missing from the PDF")
	}
}

func TestWriteDOCX_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDOCX(&buf, testSheet()); err != nil {
		t.Fatalf("WriteDOCX: %v", err)
	}

	doc, err := docx.Parse(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}

	var all strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if txt, ok := rc.(*docx.Text); ok {
					all.WriteString(txt.Text)
				}
			}
		}
		all.WriteString("\n")
	}
	got := all.String()

	for _, want := range []string{
		"Answer Sheet",
		"PART A: Descriptive Answers",
		"Q1: Define photosynthesis.",
		"Answer: Photosynthesis converts light energy into chemical energy.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("docx text missing %q", want)
		}
	}
}
