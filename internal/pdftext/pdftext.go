package pdftext

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/textqa/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

// ErrUnreadable marks input bytes that are not a valid PDF. It is fatal to
// the request that carried the document; there is nothing to retry.
var ErrUnreadable = errors.New("unreadable document")

// Extractor pulls per-page plain text out of PDF bytes. It tries the Go
// library first, then falls back to pdftotext if available.
type Extractor struct {
	FallbackPdftotext bool
}

// Extract returns one Page per non-blank source page, in reading order.
// Page numbers stay aligned with the source: a blank page advances the
// number but emits nothing.
func (e *Extractor) Extract(data []byte) ([]document.Page, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "textqa-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPages(tmpPath)
	if err != nil && e.FallbackPdftotext {
		pages, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return pages, nil
}

func extractPages(path string) ([]document.Page, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []document.Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, document.Page{Number: i, Text: text})
	}
	return pages, nil
}

func extractPdftotext(path string) ([]document.Page, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	var pages []document.Page
	// pdftotext separates pages with form feeds.
	for i, text := range strings.Split(string(out), "\f") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, document.Page{Number: i + 1, Text: text})
	}
	return pages, nil
}
