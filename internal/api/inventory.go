package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Spok95/pos-core/internal/domain/inventory"
	"github.com/Spok95/pos-core/internal/ledger"
	"github.com/Spok95/pos-core/internal/report"
)

type movementRequest struct {
	ProductID int64              `json:"productId"`
	Type      inventory.MoveType `json:"type"`
	Quantity  float64            `json:"quantity"`
	Reason    inventory.Reason   `json:"reason"`
	Notes     string             `json:"notes"`
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req movementRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	res, err := h.ledger.Record(r.Context(), ledger.Request{
		ProductID:  req.ProductID,
		Type:       req.Type,
		Qty:        req.Quantity,
		Reason:     req.Reason,
		OperatorID: op,
		Note:       req.Notes,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

type countLine struct {
	ProductID int64   `json:"productId"`
	Counted   float64 `json:"countedStock"`
}

type massAdjustmentRequest struct {
	Items  []countLine      `json:"items"`
	Reason inventory.Reason `json:"reason"`
	Notes  string           `json:"notes"`
}

// massAdjustment books a physical count: every line sets a product to its
// counted level, all lines in one transaction.
func (h *Handler) massAdjustment(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req massAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Reason == "" {
		req.Reason = inventory.ReasonAdjustment
	}
	reqs := make([]ledger.Request, len(req.Items))
	for i, it := range req.Items {
		reqs[i] = ledger.Request{
			ProductID:  it.ProductID,
			Type:       inventory.MoveAdjustment,
			Qty:        it.Counted,
			Reason:     req.Reason,
			OperatorID: op,
			Note:       req.Notes,
		}
	}
	batch, err := h.ledger.RecordBatch(r.Context(), reqs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

func (h *Handler) movementFilter(r *http.Request) (inventory.Filter, error) {
	var f inventory.Filter
	var err error
	if f.ProductID, err = queryInt64(r, "product_id"); err != nil {
		return f, err
	}
	if f.SaleID, err = queryInt64(r, "sale_id"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.From, f.To, err = h.timeRange(r); err != nil {
		return f, err
	}
	f.Type = inventory.MoveType(r.URL.Query().Get("type"))
	return f, nil
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	f, err := h.movementFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if f.Limit == 0 {
		f.Limit = 100
	}
	list, err := h.ledger.Movements(r.Context(), f)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) exportMovements(w http.ResponseWriter, r *http.Request) {
	f, err := h.movementFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	list, err := h.ledger.Movements(r.Context(), f)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	data, err := report.Movements(list)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondFile(w, fmt.Sprintf("movements_%s.xlsx", time.Now().In(h.loc).Format("20060102_150405")), data)
}

func (h *Handler) auditProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	a, err := h.ledger.Audit(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
