package question

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

var charReplacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"‘", "'", // left single quote
	"’", "'", // right single quote
)

// normalizeLine unifies dash and quote variants and collapses internal
// whitespace, so the line regexes only ever see one shape of punctuation.
func normalizeLine(line string) string {
	line = charReplacer.Replace(line)
	line = whitespaceRe.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

var instructionRes = compileInstructionPatterns()

// Imperative prefixes that mark a line as an instruction to the candidate
// rather than a question. Instruction lines configure a section but carry no
// answerable content, so the parser discards them.
func compileInstructionPatterns() []*regexp.Regexp {
	patterns := []string{
		`^answer (any|the)`, `^choose`, `^fill in`, `^rewrite`, `^rearrange`,
		`^punctuate`, `^report`, `^combine`, `^quote`, `^match the`,
		`^complete the following`, `^read the`, `^write (a|an|the)?`,
		`^identify`, `^make notes`, `^paraphrase`, `^prepare`,
		`^each question carries`, `^attempt any`, `^section [a-z]+ carries`,
	}
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return res
}

func isInstructionLine(line string) bool {
	for _, re := range instructionRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
