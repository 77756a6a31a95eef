package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/document"
	"github.com/dgallion1/textqa/internal/embed"
	"github.com/dgallion1/textqa/internal/index"
	"github.com/dgallion1/textqa/internal/llm"
	"github.com/dgallion1/textqa/internal/question"
)

type fakePaper struct {
	pages []document.Page
	err   error
}

func (f fakePaper) Extract(data []byte) ([]document.Page, error) {
	return f.pages, f.err
}

type fakeLoader struct {
	ix  *index.Index
	err error
}

func (f fakeLoader) Load(fingerprint string) (*index.Index, embed.Embedder, error) {
	return f.ix, nil, f.err
}

// fakeAnswerer produces one record per question, failing those whose text
// contains failOn. The worker's progress callback is exercised the same
// way the real answerer drives it.
type fakeAnswerer struct {
	failOn string
}

func (f fakeAnswerer) AnswerTree(ctx context.Context, ix *index.Index, embedder embed.Embedder, tree *question.Tree, concurrency int, progress answer.Progress) *answer.Sheet {
	sheet := &answer.Sheet{}
	for _, part := range tree.Parts {
		pa := answer.PartAnswers{Label: part.Label, Display: part.Display}
		for _, sec := range part.Sections {
			sa := answer.SectionAnswers{Label: sec.Label}
			for _, q := range sec.Questions {
				rec := answer.Record{Number: q.Number, Question: q.Text, Answer: "ok", Marks: q.Marks}
				if f.failOn != "" && strings.Contains(q.Text, f.failOn) {
					rec.Answer = answer.ErrorMarker
					rec.Failed = true
				}
				if progress != nil {
					progress(rec)
				}
				sa.Records = append(sa.Records, rec)
			}
			pa.Sections = append(pa.Sections, sa)
		}
		sheet.Parts = append(sheet.Parts, pa)
	}
	return sheet
}

func paperPages() []document.Page {
	return []document.Page{{Number: 1, Text: "PART A\n1. First question?\n2. Second question?"}}
}

func testWorker(paper PaperReader, loader IndexLoader, ans SheetAnswerer) *Worker {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWorker(paper, loader, ans, 2, log)
}

func newTestJob() *Job {
	return &Job{
		ID:          NewJobID(),
		Fingerprint: "abc123",
		Status:      StatusQueued,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestWorker_CompletesCleanSheet(t *testing.T) {
	w := testWorker(fakePaper{pages: paperPages()}, fakeLoader{ix: &index.Index{}}, fakeAnswerer{})
	job := newTestJob()
	job.SetPaperData([]byte("pdf"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalQuestions != 2 || snap.Progress.Answered != 2 || snap.Progress.Failed != 0 {
		t.Errorf("unexpected progress: %+v", snap.Progress)
	}
	sheet := job.Sheet()
	if sheet == nil {
		t.Fatal("expected a finished sheet")
	}
	if sheet.Title != "Answer Sheet" {
		t.Errorf("expected default title, got %q", sheet.Title)
	}
}

func TestWorker_PartialWhenOneQuestionFails(t *testing.T) {
	w := testWorker(fakePaper{pages: paperPages()}, fakeLoader{ix: &index.Index{}}, fakeAnswerer{failOn: "Second"})
	job := newTestJob()

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %q", snap.Status)
	}
	if snap.Progress.Answered != 2 || snap.Progress.Failed != 1 {
		t.Errorf("unexpected progress: %+v", snap.Progress)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(snap.Progress.Errors))
	}
	if !strings.Contains(snap.Progress.Errors[0], "question 2") {
		t.Errorf("error should name the question: %q", snap.Progress.Errors[0])
	}
	if job.Sheet() == nil {
		t.Error("partial jobs still carry the sheet")
	}
}

func TestWorker_FailsOnUnreadablePaper(t *testing.T) {
	w := testWorker(fakePaper{err: errors.New("unreadable document")}, fakeLoader{ix: &index.Index{}}, fakeAnswerer{})
	job := newTestJob()

	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusFailed {
		t.Fatalf("expected failed, got %q", job.Snapshot().Status)
	}
	if job.Sheet() != nil {
		t.Error("failed parse must not produce a sheet")
	}
}

func TestWorker_FailsWhenPaperHasNoQuestions(t *testing.T) {
	empty := []document.Page{{Number: 1, Text: "Answer all questions neatly."}}
	w := testWorker(fakePaper{pages: empty}, fakeLoader{ix: &index.Index{}}, fakeAnswerer{})
	job := newTestJob()

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if len(snap.Progress.Errors) == 0 || !strings.Contains(snap.Progress.Errors[0], "no questions") {
		t.Errorf("expected a no-questions error, got %v", snap.Progress.Errors)
	}
}

func TestWorker_FailsWhenIndexMissing(t *testing.T) {
	w := testWorker(fakePaper{pages: paperPages()}, fakeLoader{err: errors.New("index not found")}, fakeAnswerer{})
	job := newTestJob()

	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusFailed {
		t.Fatalf("expected failed, got %q", job.Snapshot().Status)
	}
}

func TestOrchestrator_ProcessesSubmittedJob(t *testing.T) {
	w := testWorker(fakePaper{pages: paperPages()}, fakeLoader{ix: &index.Index{}}, fakeAnswerer{})
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	o := NewOrchestrator(w, 1, 4, time.Hour, log)
	o.Start(context.Background())
	defer o.Stop()

	job := newTestJob()
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("job never completed: %q", job.Snapshot().Status)
		default:
		}
		if s := job.Snapshot().Status; s == StatusCompleted {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := o.GetJob(job.ID); got == nil {
		t.Error("expected job to be retrievable by ID")
	}
}

func TestOrchestrator_RejectsWhenQueueFull(t *testing.T) {
	// Never started, so nothing drains the queue.
	w := testWorker(fakePaper{pages: paperPages()}, fakeLoader{ix: &index.Index{}}, fakeAnswerer{})
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	o := NewOrchestrator(w, 1, 1, time.Hour, log)

	if err := o.Submit(newTestJob()); err != nil {
		t.Fatalf("first submit should fit: %v", err)
	}
	overflow := newTestJob()
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected queue-full error")
	}
	if overflow.Snapshot().Status != StatusFailed {
		t.Errorf("overflow job should be marked failed, got %q", overflow.Snapshot().Status)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&llm.RetryableError{StatusCode: 429, Message: "rate limited"}) {
		t.Error("llm retryable error must be retryable")
	}
	if !IsRetryable(&embed.ServiceError{Provider: "ollama", Err: errors.New("boom")}) {
		t.Error("embedding service error must be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors must not be retryable")
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := Backoff(attempt)
		if d < time.Second {
			t.Errorf("attempt %d: backoff %v below base", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v above cap plus jitter", attempt, d)
		}
	}
}

type countingClient struct {
	calls int
	fails int
}

func (c *countingClient) Model() string { return "counting" }

func (c *countingClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.calls++
	if c.calls <= c.fails {
		return "", &llm.RetryableError{StatusCode: 503, Message: "overloaded"}
	}
	return "done", nil
}

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	inner := &countingClient{fails: 1}
	c := WithRetry(inner, log)

	out, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if out != "done" || inner.calls != 2 {
		t.Errorf("expected 2 calls ending in success, got %d calls, %q", inner.calls, out)
	}
}

func TestWithRetry_GivesUpOnPermanentFailure(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	inner := &countingClient{fails: 100}
	c := WithRetry(inner, log)

	_, err := c.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected failure after retries")
	}
	if inner.calls != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, inner.calls)
	}
}
