package handlers

import (
	"net/http"

	"estate/internal/models"
	"estate/internal/services"
	"estate/internal/store"
)

func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var filter store.MaintenanceFilter
	if filter.Page, err = parsePage(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.PropertyID, err = queryID(r, "property_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.Status, err = queryEnum(r, "status", models.MaintenanceStatus.Valid); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.Type, err = queryEnum(r, "type", models.MaintenanceType.Valid); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.Priority, err = queryInt(r, "priority"); err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.maintenance.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.MaintenanceInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := checkIDs(idField{"property_id", &req.PropertyID}, idField{"assigned_to_id", req.AssignedToID}); err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.maintenance.Create(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, request)
}

func (h *Handler) HighPriorityMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.maintenance.HighPriority(r.Context(), actor, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) EmergencyMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.maintenance.Emergency(r.Context(), actor, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.maintenance.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, request)
}

func (h *Handler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.MaintenancePatch
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := checkIDs(idField{"assigned_to_id", req.AssignedToID}); err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.maintenance.Update(r.Context(), actor, id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, request)
}

func (h *Handler) CompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.CompleteInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.maintenance.Complete(r.Context(), actor, id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, request)
}
