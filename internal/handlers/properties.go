package handlers

import (
	"net/http"

	"estate/internal/models"
	"estate/internal/services"
	"estate/internal/store"
)

func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter, err := propertyFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	properties, err := h.properties.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

func propertyFilter(r *http.Request) (store.PropertyFilter, error) {
	var filter store.PropertyFilter
	var err error
	if filter.Page, err = parsePage(r); err != nil {
		return filter, err
	}
	if filter.OwnerID, err = queryID(r, "owner_id"); err != nil {
		return filter, err
	}
	if filter.Status, err = queryEnum(r, "status", models.PropertyStatus.Valid); err != nil {
		return filter, err
	}
	if filter.Type, err = queryEnum(r, "type", models.PropertyType.Valid); err != nil {
		return filter, err
	}
	filter.City = queryString(r, "city")
	return filter, nil
}

func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.PropertyInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := checkIDs(idField{"owner_id", &req.OwnerID}); err != nil {
		h.writeError(w, r, err)
		return
	}
	property, err := h.properties.Create(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, property)
}

func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
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
	property, err := h.properties.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, property)
}

func (h *Handler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
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
	var req services.PropertyPatch
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := checkIDs(idField{"owner_id", req.OwnerID}); err != nil {
		h.writeError(w, r, err)
		return
	}
	property, err := h.properties.Update(r.Context(), actor, id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, property)
}

type statusRequest struct {
	Status models.PropertyStatus `json:"status"`
}

func (h *Handler) SetPropertyStatus(w http.ResponseWriter, r *http.Request) {
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
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	property, err := h.properties.SetStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, property)
}

func (h *Handler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
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
	if err := h.properties.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
