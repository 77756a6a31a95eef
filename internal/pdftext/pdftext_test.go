package pdftext

import (
	"errors"
	"testing"
)

func TestExtract_RejectsGarbageBytes(t *testing.T) {
	e := &Extractor{}
	_, err := e.Extract([]byte("this is not a pdf document at all"))
	if err == nil {
		t.Fatal("expected error for non-PDF bytes")
	}
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}

func TestExtract_RejectsEmptyInput(t *testing.T) {
	e := &Extractor{}
	_, err := e.Extract(nil)
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable for empty input, got %v", err)
	}
}

func TestExtract_RejectsTruncatedHeader(t *testing.T) {
	// A bare PDF magic line without a body is not a readable document.
	e := &Extractor{}
	_, err := e.Extract([]byte("%PDF-1.7\n"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable for truncated PDF, got %v", err)
	}
}
