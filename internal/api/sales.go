package api

import (
	"net/http"

	"github.com/Spok95/pos-core/internal/checkout"
	"github.com/Spok95/pos-core/internal/domain/sales"
)

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var cart checkout.Cart
	if err := decodeJSON(r, &cart); err != nil {
		h.respondError(w, r, err)
		return
	}
	cart.OperatorID = op
	sale, err := h.checkout.CreateSale(r.Context(), cart)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	sale, err := h.checkout.CancelSale(r.Context(), id, req.Reason, op)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

type paymentRequest struct {
	Amount float64             `json:"amount"`
	Method sales.PaymentMethod `json:"method"`
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	sale, err := h.checkout.AddPayment(r.Context(), id, req.Amount, req.Method)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sale, err := h.checkout.GetSale(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.timeRange(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	list, err := h.checkout.ListSales(r.Context(), sales.Filter{
		From:      from,
		To:        to,
		Status:    sales.Status(r.URL.Query().Get("status")),
		WithItems: true,
		Limit:     limit,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list})
}
