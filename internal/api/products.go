package api

import (
	"net/http"

	"github.com/Spok95/pos-core/internal/catalog"
	"github.com/Spok95/pos-core/internal/domain/products"
)

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req catalog.NewProduct
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.catalog.Create(r.Context(), req, op)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.catalog.List(r.Context(), products.Filter{
		OnlyActive: q.Get("active") == "true",
		Search:     q.Get("q"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.List(r.Context(), products.Filter{OnlyActive: true, OnlyLow: true})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.catalog.Deactivate(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
