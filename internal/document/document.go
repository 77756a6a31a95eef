package document

// Page is one page of extracted document text. Numbers are 1-based and
// strictly increasing; pages with no extractable text are never emitted.
type Page struct {
	Number int    // Source page number.
	Text   string // Raw extracted text, never empty.
}

// Fragment is a bounded slice of page text, the unit of retrieval.
// A fragment always traces back to exactly one source page.
type Fragment struct {
	Text   string    // Fragment text content.
	Page   int       // Page number inherited from the source page.
	Vector []float32 // Embedding vector, fixed length per index.
}
