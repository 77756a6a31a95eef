package index

import "github.com/dgallion1/textqa/internal/document"

// mmrLambda balances query relevance against diversity when selecting the
// final fragment set. 0.5 weighs both equally.
const mmrLambda = 0.5

// SearchMMR retrieves a diverse top-k fragment set: it scores a wider
// candidate pool of fetchK fragments by cosine similarity, then greedily
// selects k of them by maximal marginal relevance. Overlapping windows from
// adjacent slices score near-identically on plain similarity; penalizing
// closeness to already-selected fragments keeps the result from being k
// copies of the same passage.
func (ix *Index) SearchMMR(query []float32, fetchK, k int) []document.Fragment {
	if fetchK <= 0 {
		fetchK = 15
	}
	if k <= 0 {
		k = 6
	}
	candidates := ix.Search(query, fetchK)
	if len(candidates) <= k {
		out := make([]document.Fragment, len(candidates))
		for i, c := range candidates {
			out[i] = c.Fragment
		}
		return out
	}

	selected := make([]document.Fragment, 0, k)
	remaining := make([]Scored, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := float64(-1 << 30)
		for i, cand := range remaining {
			redundancy := 0.0
			for _, sel := range selected {
				if sim := cosine(cand.Fragment.Vector, sel.Vector); sim > redundancy {
					redundancy = sim
				}
			}
			score := mmrLambda*cand.Score - (1-mmrLambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx].Fragment)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}
