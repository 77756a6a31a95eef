package question

import (
	"regexp"
	"strconv"
)

var (
	marksMultiplierRe = regexp.MustCompile(`(?i)(\d+)\s*[x×*]\s*(\d+)`)
	marksPhraseRe     = regexp.MustCompile(`(?i)(\d+)\s*marks?\b`)
)

// estimateMarks resolves a question's mark value from its section's captured
// marks hint: a "<count> x <marks>" multiplier yields the per-item value, an
// explicit "<n> mark(s)" phrase yields n. The fallback of 1 is lossy: a paper
// that states marks in a form we don't recognize gets its questions weighted
// as 1 mark, which skews answer-length calibration low.
func estimateMarks(hint string) int {
	if m := marksMultiplierRe.FindStringSubmatch(hint); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			return n
		}
	}
	if m := marksPhraseRe.FindStringSubmatch(hint); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
