package answer

import (
	"fmt"
	"strings"

	"github.com/dgallion1/textqa/internal/document"
)

const tutorRules = `You are an intelligent, highly knowledgeable tutor AI. Answer the question based strictly on the provided textbook context. Follow these rules:

1. For multiple-choice questions, select exactly one of the given options and repeat its label and text verbatim. Never invent options of your own.
2. Calibrate depth to the mark value: high-mark questions (more than 3 marks) get detailed answers with explanations, examples, or steps; low-mark questions (1-2 marks) get brief answers with only the key information.
3. If the query is not a valid question (an instruction or a bare formula), respond with: "This is not a valid question."
4. Format the answer in Markdown: use ## for headings, bullet points for lists, $$ delimiters for display equations, and fenced code blocks where code is needed.
5. Be concise yet complete, and never go beyond the context.`

// buildPrompt assembles the generation prompt: the rules, the retrieved
// fragment texts as context, the question, and, when known, the mark value
// and multiple-choice options.
func buildPrompt(fragments []document.Fragment, q Query) string {
	var sb strings.Builder
	sb.WriteString(tutorRules)

	sb.WriteString("\n\n---\n## Context:\n")
	for i, f := range fragments {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Page %d]\n%s", f.Page, f.Text)
	}

	sb.WriteString("\n\n---\n## Question:\n")
	sb.WriteString(q.Text)

	if q.Marks > 0 {
		fmt.Fprintf(&sb, "\n\n## Marks:\n%d", q.Marks)
	}
	if q.MultipleChoice && q.OptionsText != "" {
		sb.WriteString("\n\n## Options:\n")
		sb.WriteString(q.OptionsText)
	}

	sb.WriteString("\n\n---\n## Answer:\n")
	return sb.String()
}
