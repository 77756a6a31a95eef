package splitter

import "github.com/dgallion1/textqa/internal/document"

// Config controls fragment splitting.
type Config struct {
	Window  int // Target fragment size in characters.
	Overlap int // Characters shared between consecutive fragments.
}

// DefaultConfig returns the standard window sizing. ~1000 characters keeps a
// fragment well inside the generation model's effective context; the 200
// character overlap preserves continuity across slice boundaries.
func DefaultConfig() Config {
	return Config{
		Window:  1000,
		Overlap: 200,
	}
}

// Split slices each page into overlapping fragments. Splitting is total and
// order-preserving: dropping the leading Overlap characters of every fragment
// after the first reconstructs the page text exactly. The final fragment of a
// page may be shorter than the window. Vectors are left nil for the embedding
// stage to fill.
func Split(pages []document.Page, cfg Config) []document.Fragment {
	if cfg.Window <= 0 {
		cfg.Window = 1000
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	step := cfg.Window - cfg.Overlap
	if step <= 0 {
		step = cfg.Window
	}

	var fragments []document.Fragment
	for _, page := range pages {
		runes := []rune(page.Text)
		total := len(runes)
		if total == 0 {
			continue
		}
		for start := 0; start < total; start += step {
			end := start + cfg.Window
			if end > total {
				end = total
			}
			fragments = append(fragments, document.Fragment{
				Text: string(runes[start:end]),
				Page: page.Number,
			})
			if end == total {
				break
			}
		}
	}
	return fragments
}
