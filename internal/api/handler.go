package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Spok95/pos-core/internal/apperr"
	"github.com/Spok95/pos-core/internal/catalog"
	"github.com/Spok95/pos-core/internal/checkout"
	"github.com/Spok95/pos-core/internal/ledger"
	"github.com/Spok95/pos-core/internal/till"
)

// OperatorHeader carries the id of the operator at the till. Without it
// requests act as operator 1.
const OperatorHeader = "X-Operator-ID"

// Handler bundles the services behind the HTTP API.
type Handler struct {
	log      *slog.Logger
	catalog  *catalog.Service
	ledger   *ledger.Ledger
	checkout *checkout.Service
	till     *till.Service
	loc      *time.Location
}

func New(log *slog.Logger, cat *catalog.Service, l *ledger.Ledger, co *checkout.Service, t *till.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{log: log, catalog: cat, ledger: l, checkout: co, till: t, loc: loc}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.listProducts)
		r.Get("/low-stock", h.lowStock)
		r.Get("/{id}", h.getProduct)
		r.Delete("/{id}", h.deactivateProduct)
	})

	r.Route("/inventory", func(r chi.Router) {
		r.Post("/movements", h.recordMovement)
		r.Post("/mass-adjustment", h.massAdjustment)
		r.Get("/movements", h.listMovements)
		r.Get("/movements.xlsx", h.exportMovements)
		r.Get("/products/{id}/audit", h.auditProduct)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Post("/", h.createSale)
		r.Get("/", h.listSales)
		r.Get("/{id}", h.getSale)
		r.Put("/{id}/cancel", h.cancelSale)
		r.Post("/{id}/payment", h.addPayment)
	})

	r.Route("/cash-sessions", func(r chi.Router) {
		r.Post("/", h.openSession)
		r.Get("/", h.listSessions)
		r.Get("/today", h.todaySession)
		r.Put("/{id}/close", h.closeSession)
		r.Get("/{id}/report", h.sessionReport)
		r.Get("/{id}/report.xlsx", h.sessionReportXLSX)
	})

	return r
}

func operatorID(r *http.Request) (int64, error) {
	v := r.Header.Get(OperatorHeader)
	if v == "" {
		return 1, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("invalid %s header", OperatorHeader)
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("invalid id")
	}
	return id, nil
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apperr.Invalid("invalid request body: %v", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondFile(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInsufficientStock, apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps the error kind to a status. Internal errors are logged
// and reported without their text.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := errorBody{Error: err.Error(), Code: apperr.CodeOf(err)}

	var ise *apperr.InsufficientStockError
	if errors.As(err, &ise) {
		body.Details = map[string]any{
			"product_id": ise.ProductID,
			"available":  ise.Available,
			"requested":  ise.Requested,
		}
	}
	if kind == apperr.KindInternal {
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		body.Error = "internal error"
	}
	respondJSON(w, statusFor(kind), body)
}
