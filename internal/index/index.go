package index

import (
	"crypto/sha256"
	"fmt"
	"math"
	"sort"

	"github.com/dgallion1/textqa/internal/document"
	"github.com/dgallion1/textqa/internal/embed"
)

// Index is a queryable similarity index over a document's fragments. It is
// read-only after construction and safe for concurrent searches. An index is
// keyed by the fingerprint of the raw source bytes: a changed document is a
// different index, never a mutation of this one.
type Index struct {
	Fingerprint string
	EmbedConfig embed.Config
	Fragments   []document.Fragment
}

// Fingerprint computes the content hash that keys an index. SHA-256 hex of
// the raw source bytes.
func Fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// Scored pairs a fragment with its similarity to a query.
type Scored struct {
	Fragment document.Fragment
	Score    float64
}

// Search returns the k fragments most similar to the query vector, best
// first. Scores are cosine similarities.
func (ix *Index) Search(query []float32, k int) []Scored {
	if k <= 0 {
		k = 5
	}
	scored := make([]Scored, 0, len(ix.Fragments))
	for _, f := range ix.Fragments {
		scored = append(scored, Scored{Fragment: f, Score: cosine(query, f.Vector)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
