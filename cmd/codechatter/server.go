package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/89jobrien/code-chatter/core"
	"github.com/89jobrien/code-chatter/ingest"
	"github.com/89jobrien/code-chatter/upload"
)

// maxMultipartMemory bounds how much of a multipart form stays in memory
// while parsing; larger parts spool to temp files managed by net/http.
const maxMultipartMemory = 32 << 20

type server struct {
	service *ingest.Service
	logger  *slog.Logger
}

func newServer(service *ingest.Service) *server {
	return &server{
		service: service,
		logger:  slog.Default().With("component", "http"),
	}
}

// Handler builds the API routing table.
func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/process-files", s.handleProcessFiles)
	mux.HandleFunc("POST /api/v1/process-repo", s.handleProcessRepo)
	mux.HandleFunc("GET /api/v1/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.handleCancelTask)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/reset-database", s.handleReset)
	mux.HandleFunc("POST /api/v1/query", s.handleQuery)
	return mux
}

type taskAccepted struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (s *server) handleProcessFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	var payloads []upload.Payload
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "reading upload "+header.Filename+": "+err.Error())
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "reading upload "+header.Filename+": "+err.Error())
			return
		}
		payloads = append(payloads, upload.Payload{Filename: header.Filename, Content: content})
	}

	id, err := s.service.SubmitFileBatch(r.Context(), payloads)
	if err != nil {
		s.writeSubmissionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, taskAccepted{TaskID: id, Status: string(core.TaskPending)})
}

type processRepoRequest struct {
	RepoURL string `json:"repo_url"`
}

func (s *server) handleProcessRepo(w http.ResponseWriter, r *http.Request) {
	var req processRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := s.service.SubmitRepository(r.Context(), req.RepoURL)
	if err != nil {
		s.writeSubmissionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, taskAccepted{TaskID: id, Status: string(core.TaskPending)})
}

func (s *server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	includeTerminal := r.URL.Query().Get("active") != "true"
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tasks": s.service.ListTasks(includeTerminal),
		"stats": s.service.Stats(),
	})
}

func (s *server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.service.GetTask(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, core.ErrTaskNotFound.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.service.GetTask(id); !ok {
		s.writeError(w, http.StatusNotFound, core.ErrTaskNotFound.Error())
		return
	}
	cancelled := s.service.CancelTask(id)
	s.writeJSON(w, http.StatusOK, map[string]any{"task_id": id, "cancelled": cancelled})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "store": status})
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

type queryRequest struct {
	Question   string `json:"question"`
	MaxResults int    `json:"max_results"`
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.service.Query(r.Context(), req.Question, req.MaxResults)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyQuestion) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// writeSubmissionError maps validation sentinels to 400 and everything else
// to 500.
func (s *server) writeSubmissionError(w http.ResponseWriter, err error) {
	if core.IsValidation(err) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("submission failed", "err", err)
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
