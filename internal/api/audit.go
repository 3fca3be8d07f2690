package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/reclaim/internal/store"
)

// AuditHandler serves the audit trail.
type AuditHandler struct {
	DB    *sql.DB
	Limit int
}

// Recent handles GET /api/audit-trail.
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	entries, err := store.RecentActivity(r.Context(), h.DB, h.Limit)
	if err != nil {
		serverError(w, r, "failed to list activity", err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Material handles GET /api/audit-trail/material/{id}. Deleted materials keep
// their history.
func (h *AuditHandler) Material(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	entries, err := store.MaterialActivity(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to list activity", err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

// User handles GET /api/audit-trail/user/{id}.
func (h *AuditHandler) User(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	entries, err := store.UserActivity(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to list activity", err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}
