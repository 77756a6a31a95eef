package question

import (
	"regexp"
	"strings"

	"github.com/dgallion1/textqa/internal/document"
)

var (
	partRe     = regexp.MustCompile(`(?i)^part\s*-?\s*(\w+)\b`)
	sectionRe  = regexp.MustCompile(`(?i)^section\s*-?\s*(\w+)\s*(.*)$`)
	questionRe = regexp.MustCompile(`^\(?(\d+[A-Za-z]?)\)?[.)]?\s*(\S.*)$`)
	// A dedicated option line: "(a) ...", "b) ..." or "c. ...". Labels run
	// a through d only.
	optionLineRe = regexp.MustCompile(`^(?:\(([a-dA-D])\)|([a-dA-D])[.)])\s*(\S.*)$`)
	// Option markers embedded in a question line: "What is Y? (a) foo (b) bar".
	inlineOptionRe = regexp.MustCompile(`\(([a-dA-D])\)\s*`)
)

// Parse scans the pages of a question paper into a Tree. It never fails:
// unrecognized lines are either discarded (instructions) or folded into the
// nearest open question as continuation text, and a paper with no PART or
// SECTION headers parses into a single implicit part and section.
func Parse(pages []document.Page) *Tree {
	st := newState()
	for _, page := range pages {
		for _, raw := range strings.Split(page.Text, "\n") {
			line := normalizeLine(raw)
			if line == "" {
				continue
			}
			st.feed(line)
		}
	}
	return st.finish()
}

// state is the parser's explicit fold state: the tree under construction
// plus the cursor (current part, section, open question). Each feed call is
// one transition of the line state machine.
type state struct {
	tree    *Tree
	part    *Part
	section *Section
	open    *Node

	// A SECTION header may be followed by a "<count> x <marks>" line that
	// belongs to the header, not the content.
	awaitMarksHint bool
	// Option lines attach only in an unbroken run after the question line.
	acceptingOptions bool
}

func newState() *state {
	return &state{tree: &Tree{}}
}

func (st *state) feed(line string) {
	if st.awaitMarksHint {
		st.awaitMarksHint = false
		if marksMultiplierRe.MatchString(line) {
			if st.section != nil && st.section.MarksHint == "" {
				st.section.MarksHint = line
			}
			return
		}
	}

	if m := partRe.FindStringSubmatch(line); m != nil {
		st.closeQuestion()
		st.part = &Part{Label: "Part " + strings.ToUpper(m[1])}
		st.tree.Parts = append(st.tree.Parts, st.part)
		st.section = nil
		return
	}

	if m := sectionRe.FindStringSubmatch(line); m != nil {
		st.closeQuestion()
		st.ensurePart()
		st.section = &Section{Label: "Section " + m[1]}
		if rest := strings.TrimSpace(m[2]); marksMultiplierRe.MatchString(rest) {
			st.section.MarksHint = rest
		}
		st.part.Sections = append(st.part.Sections, st.section)
		st.awaitMarksHint = true
		return
	}

	if isInstructionLine(line) {
		return
	}

	if st.acceptingOptions && st.open != nil {
		if m := optionLineRe.FindStringSubmatch(line); m != nil && len(st.open.Options) < 4 {
			label := m[1]
			if label == "" {
				label = m[2]
			}
			st.open.Options = append(st.open.Options, Option{
				Label: strings.ToLower(label),
				Text:  strings.TrimSpace(m[3]),
			})
			st.open.MultipleChoice = true
			return
		}
	}

	if m := questionRe.FindStringSubmatch(line); m != nil {
		st.closeQuestion()
		st.ensureSection()

		node := &Node{
			Number: strings.Trim(m[1], "()."),
			Text:   strings.TrimSpace(m[2]),
			Marks:  estimateMarks(st.section.MarksHint),
		}
		if stem, opts, ok := splitInlineOptions(node.Text); ok {
			node.Text = stem
			node.Options = opts
			node.MultipleChoice = true
		}
		st.section.Questions = append(st.section.Questions, node)
		st.open = node
		st.acceptingOptions = true
		return
	}

	// Continuation of a wrapped question line.
	if st.open != nil {
		st.open.Text += " " + line
		st.acceptingOptions = false
	}
}

// closeQuestion seals the open question: once closed, the labeled options
// block is folded into the question text and the node is immutable.
func (st *state) closeQuestion() {
	if st.open == nil {
		return
	}
	if st.open.MultipleChoice {
		var sb strings.Builder
		sb.WriteString(st.open.Text)
		sb.WriteString("\nOptions:")
		for _, opt := range st.open.Options {
			sb.WriteString("\n(")
			sb.WriteString(opt.Label)
			sb.WriteString(") ")
			sb.WriteString(opt.Text)
		}
		st.open.Text = sb.String()
	}
	st.open = nil
	st.acceptingOptions = false
}

func (st *state) ensurePart() {
	if st.part == nil {
		st.part = &Part{Label: "Part 1"}
		st.tree.Parts = append(st.tree.Parts, st.part)
	}
}

func (st *state) ensureSection() {
	st.ensurePart()
	if st.section == nil {
		st.section = &Section{Label: "General"}
		st.part.Sections = append(st.part.Sections, st.section)
	}
}

func (st *state) finish() *Tree {
	st.closeQuestion()
	st.tree.decorate()
	return st.tree
}

// splitInlineOptions detects multiple-choice options embedded in the
// question line itself. At least two markers are required and the first must
// be (a); anything less reads as prose like "see figure (b)".
func splitInlineOptions(text string) (string, []Option, bool) {
	locs := inlineOptionRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) < 2 {
		return text, nil, false
	}
	firstLabel := strings.ToLower(text[locs[0][2]:locs[0][3]])
	if firstLabel != "a" {
		return text, nil, false
	}

	stem := strings.TrimSpace(text[:locs[0][0]])
	opts := make([]Option, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		opts = append(opts, Option{
			Label: strings.ToLower(text[loc[2]:loc[3]]),
			Text:  strings.TrimSpace(text[loc[1]:end]),
		})
	}
	return stem, opts, true
}
