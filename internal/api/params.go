package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Spok95/pos-core/internal/apperr"
)

// parseTime accepts RFC3339 or a plain date. A plain "to" date includes
// the whole day.
func (h *Handler) parseTime(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, v, h.loc)
	if err != nil {
		return time.Time{}, apperr.Invalid("invalid date %q", v)
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1)
	}
	return d, nil
}

func (h *Handler) timeRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if from, err = h.parseTime(q.Get("from"), false); err != nil {
		return
	}
	to, err = h.parseTime(q.Get("to"), true)
	return
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Invalid("invalid %s", key)
	}
	return n, nil
}

func queryInt64(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, apperr.Invalid("invalid %s", key)
	}
	return n, nil
}
