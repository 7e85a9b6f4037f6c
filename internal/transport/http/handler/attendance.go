package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/omarhamed888/paths-dashboard/internal/application/attendance"
	"github.com/omarhamed888/paths-dashboard/internal/domain"
	"github.com/omarhamed888/paths-dashboard/internal/pkg/validate"
	"github.com/omarhamed888/paths-dashboard/internal/transport/http/middleware"
)

// AttendanceHandler handles attendance endpoints.
type AttendanceHandler struct {
	svc attendance.Service
}

func NewAttendanceHandler(svc attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// Mark records an intern's attendance for a day. Admin only.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req domain.MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rec, err := h.svc.Mark(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// History returns a user's attendance records, newest first. Interns may only
// read their own. Optional from/to date bounds (YYYY-MM-DD) and a limit.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "id")
	records, err := h.svc.History(r.Context(), claims.UserID, claims.Role, userID)
	if err != nil {
		httpError(w, err)
		return
	}
	records = filterHistory(records, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit < len(records) {
			records = records[:limit]
		}
	}
	writeJSON(w, http.StatusOK, records)
}

// filterHistory keeps records within the inclusive [from, to] date range.
// Dates are YYYY-MM-DD so string comparison orders correctly.
func filterHistory(records []domain.AttendanceRecord, from, to string) []domain.AttendanceRecord {
	if from == "" && to == "" {
		return records
	}
	out := records[:0]
	for _, rec := range records {
		if from != "" && rec.Date < from {
			continue
		}
		if to != "" && rec.Date > to {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Summary is role dependent: admins get the 30-day team rollup, interns
// their own tally.
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if claims.Role == domain.RoleAdmin {
		summary, err := h.svc.TeamSummary(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}
	summary, err := h.svc.InternSummary(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
