package handlers

import (
	"context"
	"net/http"

	"estate/internal/models"
	"estate/internal/policy"
	"estate/internal/services"
	"estate/internal/store"
)

func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var filter store.ContractFilter
	if filter.Page, err = parsePage(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.PropertyID, err = queryID(r, "property_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.TenantID, err = queryID(r, "tenant_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.Status, err = queryEnum(r, "status", models.ContractStatus.Valid); err != nil {
		h.writeError(w, r, err)
		return
	}
	contracts, err := h.contracts.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, contracts)
}

func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.ContractInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := checkIDs(idField{"property_id", &req.PropertyID}, idField{"tenant_id", &req.TenantID}); err != nil {
		h.writeError(w, r, err)
		return
	}
	contract, err := h.contracts.Create(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, contract)
}

func (h *Handler) ExpiringContracts(w http.ResponseWriter, r *http.Request) {
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
	contracts, err := h.contracts.Expiring(r.Context(), actor, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, contracts)
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	h.contractAction(w, r, h.contracts.Get)
}

func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
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
	var req services.ContractPatch
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	contract, err := h.contracts.Update(r.Context(), actor, id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

func (h *Handler) TerminateContract(w http.ResponseWriter, r *http.Request) {
	h.contractAction(w, r, h.contracts.Terminate)
}

func (h *Handler) ActivateContract(w http.ResponseWriter, r *http.Request) {
	h.contractAction(w, r, h.contracts.Activate)
}

// contractAction serves the bodyless endpoints keyed by a contract id.
func (h *Handler) contractAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, policy.Actor, string) (models.Contract, error)) {
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
	contract, err := fn(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, contract)
}
