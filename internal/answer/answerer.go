package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgallion1/textqa/internal/document"
	"github.com/dgallion1/textqa/internal/embed"
	"github.com/dgallion1/textqa/internal/index"
	"github.com/dgallion1/textqa/internal/llm"
	"github.com/dgallion1/textqa/internal/question"
)

// ErrorMarker is the in-band prefix recorded in place of an answer when the
// generation service fails. Failures are recorded, never dropped, and never
// abort the sibling questions of a tree.
const ErrorMarker = "[error] answer generation failed"

// Query is one question to answer against an index. Marks and the
// multiple-choice fields are optional annotations that shape the prompt.
type Query struct {
	Text           string
	Marks          int
	MultipleChoice bool
	OptionsText    string
}

// Result is a generated answer plus the fragments it was grounded on. The
// fragments are the ones actually placed in the prompt context, never
// anything outside the index.
type Result struct {
	Text    string
	Sources []document.Fragment
}

// Answerer combines index retrieval with prompt generation.
type Answerer struct {
	client llm.Client
	fetchK int
	topK   int
	log    *slog.Logger
}

func New(client llm.Client, log *slog.Logger) *Answerer {
	return &Answerer{
		client: client,
		fetchK: 15,
		topK:   6,
		log:    log,
	}
}

// Answer embeds the query with the index's own embedder, retrieves a diverse
// top-k fragment set, and runs one generation call. An embedding or
// generation failure is returned as an error; converting it to an in-band
// record is the tree walker's job.
func (a *Answerer) Answer(ctx context.Context, ix *index.Index, embedder embed.Embedder, q Query) (Result, error) {
	vec, err := embedder.Embed(ctx, q.Text)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}

	fragments := ix.SearchMMR(vec, a.fetchK, a.topK)
	prompt := buildPrompt(fragments, q)

	text, err := a.client.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w", err)
	}

	return Result{Text: text, Sources: fragments}, nil
}

// Record is the answered form of one question.
type Record struct {
	Number   string
	Question string
	Answer   string
	Marks    int
	Sources  []document.Fragment
	Failed   bool
}

// SectionAnswers mirrors a question section with its records in order.
type SectionAnswers struct {
	Label   string
	Records []Record
}

// PartAnswers mirrors a question part.
type PartAnswers struct {
	Label    string
	Display  string
	Sections []SectionAnswers
}

// Sheet is the fully answered question tree.
type Sheet struct {
	Title string
	Parts []PartAnswers
}

// Progress is called once per answered question, in no particular order.
type Progress func(rec Record)

// AnswerTree answers every question in the tree against the index. Questions
// are independent: they run with bounded concurrency, and a failure on one
// becomes an ErrorMarker record without touching its siblings. The sheet
// preserves the tree's part/section/question order regardless of completion
// order.
func (a *Answerer) AnswerTree(ctx context.Context, ix *index.Index, embedder embed.Embedder, tree *question.Tree, concurrency int, progress Progress) *Sheet {
	if concurrency <= 0 {
		concurrency = 1
	}

	sheet := &Sheet{}
	type slot struct {
		rec  *Record
		node *question.Node
	}
	var slots []slot

	for _, p := range tree.Parts {
		pa := PartAnswers{Label: p.Label, Display: p.Display}
		for _, s := range p.Sections {
			sa := SectionAnswers{
				Label:   s.Label,
				Records: make([]Record, len(s.Questions)),
			}
			pa.Sections = append(pa.Sections, sa)
		}
		sheet.Parts = append(sheet.Parts, pa)
	}
	for pi, p := range tree.Parts {
		for si, s := range p.Sections {
			for qi, node := range s.Questions {
				slots = append(slots, slot{
					rec:  &sheet.Parts[pi].Sections[si].Records[qi],
					node: node,
				})
			}
		}
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, sl := range slots {
		wg.Add(1)
		go func(sl slot) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			*sl.rec = a.answerNode(ctx, ix, embedder, sl.node)
			if progress != nil {
				progress(*sl.rec)
			}
		}(sl)
	}
	wg.Wait()

	return sheet
}

func (a *Answerer) answerNode(ctx context.Context, ix *index.Index, embedder embed.Embedder, node *question.Node) Record {
	rec := Record{
		Number:   node.Number,
		Question: node.Text,
		Marks:    node.Marks,
	}

	res, err := a.Answer(ctx, ix, embedder, Query{
		Text:           node.Text,
		Marks:          node.Marks,
		MultipleChoice: node.MultipleChoice,
		OptionsText:    formatOptions(node.Options),
	})
	if err != nil {
		a.log.Warn("answer generation failed", "question", node.Number, "error", err)
		rec.Answer = fmt.Sprintf("%s: %v", ErrorMarker, err)
		rec.Failed = true
		return rec
	}

	rec.Answer = res.Text
	rec.Sources = res.Sources
	return rec
}

func formatOptions(opts []question.Option) string {
	if len(opts) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, o := range opts {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "(%s) %s", o.Label, o.Text)
	}
	return sb.String()
}
