package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omarhamed888/paths-dashboard/internal/application/task"
	"github.com/omarhamed888/paths-dashboard/internal/domain"
	"github.com/omarhamed888/paths-dashboard/internal/pkg/validate"
	"github.com/omarhamed888/paths-dashboard/internal/transport/http/middleware"
)

// maxSubmissionBytes caps submission uploads at 25 MiB.
const maxSubmissionBytes = 25 << 20

// TaskHandler handles task, assignment and submission endpoints.
type TaskHandler struct {
	svc task.Service
}

func NewTaskHandler(svc task.Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create creates a task. Admin only.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	t, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Assign links a task to one or more interns. Admin only.
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := h.svc.Assign(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List is role dependent: admins get every task, interns get their own
// assignments joined with tasks, submissions and ratings.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if claims.Role == domain.RoleAdmin {
		tasks, err := h.svc.ListAll(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
		return
	}
	items, err := h.svc.ListForIntern(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Detail returns a task with its assignments, submissions and ratings.
// Non-admin callers only see their own assignment row.
func (h *TaskHandler) Detail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	detail, err := h.svc.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	if claims.Role != domain.RoleAdmin {
		own := detail.Assignments[:0]
		for _, row := range detail.Assignments {
			if row.Assignment.InternID == claims.UserID {
				own = append(own, row)
			}
		}
		detail.Assignments = own
	}
	writeJSON(w, http.StatusOK, detail)
}

// Delete removes a task and its assignments. Admin only.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "task deleted"})
}

// Submit uploads the caller's work for an assignment from a multipart form.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or malformed form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()
	contentType := header.Header.Get("Content-Type")
	sub, err := h.svc.Submit(r.Context(), claims.UserID, chi.URLParam(r, "id"), file, header.Filename, contentType)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Download streams a submitted file.
func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	body, sub, err := h.svc.Download(r.Context(), claims.UserID, claims.Role, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	defer body.Close()
	if sub.ContentType != "" {
		w.Header().Set("Content-Type", sub.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sub.OriginalFilename))
	_, _ = io.Copy(w, body)
}

// Rate stores a rating for a submission. Admin only.
func (h *TaskHandler) Rate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rating, err := h.svc.Rate(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// MarkMissed flags an unsubmitted assignment as missed. Admin only.
func (h *TaskHandler) MarkMissed(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.MarkMissed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
