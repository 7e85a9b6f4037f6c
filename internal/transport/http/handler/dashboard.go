package handler

import (
	"net/http"

	"github.com/omarhamed888/paths-dashboard/internal/application/dashboard"
	"github.com/omarhamed888/paths-dashboard/internal/transport/http/middleware"
)

// DashboardHandler handles overview endpoints.
type DashboardHandler struct {
	svc dashboard.Service
}

func NewDashboardHandler(svc dashboard.Service) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Admin returns the admin landing-page aggregates. Admin only.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	overview, err := h.svc.AdminOverview(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// Alerts returns the caller's unread alert notifications, most severe first.
func (h *DashboardHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	alerts, err := h.svc.ActiveAlerts(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// Intern returns the caller's own landing-page aggregates.
func (h *DashboardHandler) Intern(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	overview, err := h.svc.InternOverview(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
