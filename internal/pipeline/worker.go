package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/document"
	"github.com/dgallion1/textqa/internal/embed"
	"github.com/dgallion1/textqa/internal/index"
	"github.com/dgallion1/textqa/internal/question"
)

// PaperReader extracts pages from a question-paper byte stream.
type PaperReader interface {
	Extract(data []byte) ([]document.Page, error)
}

// IndexLoader resolves a document fingerprint to its persisted index and
// the embedder that produced it.
type IndexLoader interface {
	Load(fingerprint string) (*index.Index, embed.Embedder, error)
}

// SheetAnswerer answers a full question tree against an index.
type SheetAnswerer interface {
	AnswerTree(ctx context.Context, ix *index.Index, embedder embed.Embedder, tree *question.Tree, concurrency int, progress answer.Progress) *answer.Sheet
}

// Worker processes a single answer-sheet job.
type Worker struct {
	paper    PaperReader
	loader   IndexLoader
	answerer SheetAnswerer
	log      *slog.Logger

	questionConcurrency int
}

func NewWorker(paper PaperReader, loader IndexLoader, answerer SheetAnswerer, concurrency int, log *slog.Logger) *Worker {
	return &Worker{
		paper:               paper,
		loader:              loader,
		answerer:            answerer,
		log:                 log,
		questionConcurrency: concurrency,
	}
}

// Process runs the full answer-sheet pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "fingerprint", job.Fingerprint)

	// Phase 1: parse the question paper.
	job.SetStatus(StatusParsing, "parsing")
	pages, err := w.paper.Extract(job.PaperData())
	job.SetPaperData(nil)
	if err != nil {
		log.Error("question paper unreadable", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	tree := question.Parse(pages)
	total := tree.QuestionCount()
	if total == 0 {
		log.Warn("no questions found in paper")
		job.AddError("no questions found")
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetTotalQuestions(total)
	log.Info("parsed question paper", "questions", total, "parts", len(tree.Parts))

	// Phase 2: resolve the indexed document.
	ix, embedder, err := w.loader.Load(job.Fingerprint)
	if err != nil {
		log.Error("index load failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		job.SetStatus(StatusFailed, "loading")
		return
	}

	// Phase 3: answer every question. Individual failures become marker
	// records and count toward progress without stopping the sheet.
	job.SetStatus(StatusAnswering, "answering")
	sheet := w.answerer.AnswerTree(ctx, ix, embedder, tree, w.questionConcurrency, func(rec answer.Record) {
		job.RecordAnswer(rec.Failed)
		if rec.Failed {
			job.AddError(fmt.Sprintf("question %s: %s", rec.Number, rec.Answer))
		}
	})
	if job.Title != "" {
		sheet.Title = job.Title
	} else if sheet.Title == "" {
		sheet.Title = "Answer Sheet"
	}
	job.SetSheet(sheet)

	snap := job.Snapshot()
	log.Info("answer sheet complete", "answered", snap.Progress.Answered, "failed", snap.Progress.Failed)

	if ctx.Err() != nil {
		job.AddError("cancelled")
		job.SetStatus(StatusFailed, "answering")
		return
	}
	if snap.Progress.Failed > 0 {
		job.SetStatus(StatusPartial, "done")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}
