package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/pdftext"
	"github.com/dgallion1/textqa/internal/render"
)

// handleUploadDocument indexes an uploaded PDF. Re-uploading the same bytes
// is a cache hit and returns immediately.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	data, _, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	ix, _, cached, err := s.builder.GetOrBuild(r.Context(), data)
	if err != nil {
		if errors.Is(err, pdftext.ErrUnreadable) {
			jsonError(w, "unreadable document: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "index build failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"fingerprint": ix.Fingerprint,
		"fragments":   len(ix.Fragments),
		"cached":      cached,
	})
}

type askRequest struct {
	Question       string `json:"question"`
	Marks          int    `json:"marks,omitempty"`
	MultipleChoice bool   `json:"multiple_choice,omitempty"`
	Options        string `json:"options,omitempty"`
}

type askSource struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// handleAsk answers a single ad-hoc question against an indexed document.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	fingerprint := chi.URLParam(r, "fingerprint")

	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	ix, embedder, err := s.builder.Load(fingerprint)
	if err != nil {
		jsonError(w, "document not found: "+err.Error(), http.StatusNotFound)
		return
	}

	res, err := s.answerer.Answer(r.Context(), ix, embedder, answer.Query{
		Text:           req.Question,
		Marks:          req.Marks,
		MultipleChoice: req.MultipleChoice,
		OptionsText:    req.Options,
	})
	if err != nil {
		jsonError(w, "answer generation failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	html, err := render.ToHTML(res.Text)
	if err != nil {
		s.log.Warn("answer html render failed", "error", err)
		html = ""
	}

	sources := make([]askSource, 0, len(res.Sources))
	for _, f := range res.Sources {
		sources = append(sources, askSource{Page: f.Page, Text: f.Text})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"answer":      res.Text,
		"answer_html": html,
		"sources":     sources,
	})
}

// readUpload extracts the uploaded file from a multipart request, enforcing
// the configured size limit. Writes the error response itself on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return nil, "", false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, "", false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, "", false
	}
	return data, filename, true
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
