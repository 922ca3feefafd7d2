package handlers

import (
	"net/http"

	"estate/internal/models"
	"estate/internal/services"
	"estate/internal/store"
)

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var filter store.PaymentFilter
	if filter.Page, err = parsePage(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.ContractID, err = queryID(r, "contract_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.Status, err = queryEnum(r, "status", models.PaymentStatus.Valid); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.Type, err = queryEnum(r, "type", models.PaymentType.Valid); err != nil {
		h.writeError(w, r, err)
		return
	}
	payments, err := h.payments.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req services.PaymentInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := checkIDs(idField{"contract_id", &req.ContractID}); err != nil {
		h.writeError(w, r, err)
		return
	}
	payment, err := h.payments.Create(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

func (h *Handler) OverduePayments(w http.ResponseWriter, r *http.Request) {
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
	payments, err := h.payments.Overdue(r.Context(), actor, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

func (h *Handler) GenerateRent(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	contractID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payments, err := h.payments.GenerateRent(r.Context(), actor, contractID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, payments)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
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
	payment, err := h.payments.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
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
	var req services.PaymentPatch
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payment, err := h.payments.Update(r.Context(), actor, id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

func (h *Handler) MarkPaymentPaid(w http.ResponseWriter, r *http.Request) {
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
	payment, err := h.payments.MarkPaid(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}
