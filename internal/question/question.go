package question

import "fmt"

// Option is one labeled multiple-choice option.
type Option struct {
	Label string // "a" through "d".
	Text  string
}

// Node is a single parsed question. Mutable only while the parser holds it
// open for continuation lines; immutable once the next question starts.
type Node struct {
	Number         string // Numbering token, may carry a letter suffix ("12a").
	Text           string
	Marks          int // Point weight, used to calibrate answer depth.
	MultipleChoice bool
	Options        []Option // Ordered, only set when MultipleChoice.
}

// Section groups questions under a part. MarksHint keeps the raw marks text
// ("5 x 2 marks") captured from the paper for mark estimation.
type Section struct {
	Label     string
	MarksHint string
	Questions []*Node
}

// Part is a top-level division of a question paper.
type Part struct {
	Label    string
	Display  string // Label decorated with a mark-derived category suffix.
	Sections []*Section
}

// Tree is the parsed hierarchy of a question paper: ordered parts, each with
// ordered sections, each with ordered questions.
type Tree struct {
	Parts []*Part
}

// QuestionCount returns the number of leaf questions in the tree.
func (t *Tree) QuestionCount() int {
	n := 0
	for _, p := range t.Parts {
		for _, s := range p.Sections {
			n += len(s.Questions)
		}
	}
	return n
}

// decorate appends a category suffix to each part's display name, derived
// from the distinct mark values observed within the part.
func (t *Tree) decorate() {
	for _, p := range t.Parts {
		marks := map[int]bool{}
		min, max := 0, 0
		for _, s := range p.Sections {
			for _, q := range s.Questions {
				if !marks[q.Marks] {
					marks[q.Marks] = true
					if min == 0 || q.Marks < min {
						min = q.Marks
					}
					if q.Marks > max {
						max = q.Marks
					}
				}
			}
		}
		switch {
		case len(marks) == 0:
			p.Display = p.Label
		case len(marks) == 1 && min == 1:
			p.Display = p.Label + " - Short Answer"
		case len(marks) == 1:
			p.Display = p.Label + " - Descriptive Answers"
		default:
			p.Display = fmt.Sprintf("%s - Questions (%d-%d Marks)", p.Label, min, max)
		}
	}
}
