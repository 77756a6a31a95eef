// Package pipeline runs answer-sheet generation jobs: a question paper is
// parsed, every question is answered against an already indexed document,
// and the finished sheet is held for report download.
package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/textqa/internal/answer"
)

// JobStatus represents the state of an answer-sheet job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusAnswering JobStatus = "answering"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single answer-sheet generation.
type Job struct {
	mu sync.Mutex

	ID          string `json:"job_id"`
	Fingerprint string `json:"fingerprint"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	paperData []byte
	sheet     *answer.Sheet
	errors    []string
}

// Progress tracks answering progress.
type Progress struct {
	TotalQuestions int      `json:"total_questions"`
	Answered       int      `json:"answered"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalQuestions records how many questions the paper contains.
func (j *Job) SetTotalQuestions(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalQuestions = n
	j.UpdatedAt = time.Now()
}

// RecordAnswer counts one finished question.
func (j *Job) RecordAnswer(failed bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Answered++
	if failed {
		j.Progress.Failed++
	}
	j.UpdatedAt = time.Now()
}

// SetPaperData sets the raw question-paper bytes for processing.
func (j *Job) SetPaperData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.paperData = data
}

// PaperData returns the raw question-paper bytes.
func (j *Job) PaperData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.paperData
}

// SetSheet stores the finished answer sheet.
func (j *Job) SetSheet(s *answer.Sheet) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sheet = s
	j.UpdatedAt = time.Now()
}

// Sheet returns the finished answer sheet, or nil while the job runs.
func (j *Job) Sheet() *answer.Sheet {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sheet
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Fingerprint string    `json:"fingerprint"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		Fingerprint: j.Fingerprint,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		Progress: Progress{
			TotalQuestions: j.Progress.TotalQuestions,
			Answered:       j.Progress.Answered,
			Failed:         j.Progress.Failed,
			Errors:         errs,
		},
	}
}
