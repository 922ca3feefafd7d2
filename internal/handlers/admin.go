package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"estate/internal/logging"
	"estate/internal/store"
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := store.AuditFilter{
		EntityType: queryString(r, "entity_type"),
		Page:       page,
	}
	if filter.EntityID, err = queryID(r, "entity_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.ActorID, err = queryID(r, "actor_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"jobs": h.jobs.Names()})
}

// RunJob runs a scheduled job on the request goroutine. The run is detached
// from the request context so a dropped client does not abort it halfway.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	logging.FromContext(r.Context(), h.logger).Info("manual job run requested", zap.String("job", name))
	if err := h.jobs.RunNow(context.WithoutCancel(r.Context()), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"job": name, "status": "finished"})
}
