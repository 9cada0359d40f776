package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/report"
)

type openRequest struct {
	OpeningBalance float64 `json:"openingBalance"`
	Notes          string  `json:"notes"`
}

type closeRequest struct {
	ClosingBalance *float64 `json:"closingBalance"`
	Notes          string   `json:"notes"`
}

// sessionView adds the derived variance to a session.
type sessionView struct {
	cash.Session
	Variance *float64 `json:"variance,omitempty"`
}

func viewOf(s cash.Session) sessionView {
	v := sessionView{Session: s}
	if d, ok := s.Variance(); ok {
		v.Variance = &d
	}
	return v
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	s, err := h.till.Open(r.Context(), op, req.OpeningBalance, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(s))
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ClosingBalance == nil {
		h.respondError(w, r, apperr.Invalid("closingBalance is required"))
		return
	}
	s, err := h.till.Close(r.Context(), id, *req.ClosingBalance, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) todaySession(w http.ResponseWriter, r *http.Request) {
	rep, err := h.till.Today(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.timeRange(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		h.respondError(w, r, apperr.Invalid("from and to are required"))
		return
	}
	list, err := h.till.List(r.Context(), from, to)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	views := make([]sessionView, len(list))
	for i, s := range list {
		views[i] = viewOf(s)
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": views})
}

func (h *Handler) sessionReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rep, err := h.till.Report(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (h *Handler) sessionReportXLSX(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rep, err := h.till.Report(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	data, err := report.SessionReport(rep)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondFile(w, fmt.Sprintf("cash_session_%d_%s.xlsx", id, rep.Session.BusinessDay.Format(time.DateOnly)), data)
}
