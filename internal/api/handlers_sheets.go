package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/pipeline"
	"github.com/dgallion1/textqa/internal/report"
)

// handleCreateAnswerSheet queues a question paper for answering against an
// already indexed document.
func (s *Server) handleCreateAnswerSheet(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	fingerprint := r.FormValue("fingerprint")
	if fingerprint == "" {
		jsonError(w, "fingerprint is required", http.StatusBadRequest)
		return
	}
	if !s.builder.Exists(fingerprint) {
		jsonError(w, "no indexed document for fingerprint "+fingerprint, http.StatusNotFound)
		return
	}
	title := r.FormValue("title")

	now := time.Now()
	job := &pipeline.Job{
		ID:          pipeline.NewJobID(),
		Fingerprint: fingerprint,
		Status:      pipeline.StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		Title:       title,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	job.SetPaperData(data)

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/answersheets/%s", job.ID),
	})
}

func (s *Server) handleAnswerSheetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":      snap.ID,
		"fingerprint": snap.Fingerprint,
		"status":      snap.Status,
		"phase":       snap.Phase,
		"progress":    snap.Progress,
	})
}

// finishedSheet resolves a job ID to its completed sheet, writing the error
// response itself when the sheet is not ready.
func (s *Server) finishedSheet(w http.ResponseWriter, jobID string) (*answer.Sheet, bool) {
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted && snap.Status != pipeline.StatusPartial {
		jsonError(w, fmt.Sprintf("answer sheet not ready (status %s)", snap.Status), http.StatusConflict)
		return nil, false
	}
	sheet := job.Sheet()
	if sheet == nil {
		jsonError(w, "answer sheet unavailable", http.StatusConflict)
		return nil, false
	}
	return sheet, true
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	sheet, ok := s.finishedSheet(w, jobID)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".pdf"))
	if err := report.WritePDF(w, sheet); err != nil {
		s.log.Error("pdf report failed", "job_id", jobID, "error", err)
	}
}

func (s *Server) handleReportDOCX(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	sheet, ok := s.finishedSheet(w, jobID)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".docx"))
	if err := report.WriteDOCX(w, sheet); err != nil {
		s.log.Error("docx report failed", "job_id", jobID, "error", err)
	}
}
