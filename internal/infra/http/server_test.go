package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Spok95/pos-core/internal/infra/logger"
)

func TestRoutes(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "api:"+r.URL.Path)
	})
	s := New(":0", true, api, logger.NewWithWriter("test", io.Discard))

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, "OK"},
		{"/api/sales/1", http.StatusOK, "api:/sales/1"},
		{"/metrics", http.StatusOK, ""},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, rec.Code, tt.path)
		if tt.body != "" {
			assert.Equal(t, tt.body, rec.Body.String(), tt.path)
		}
	}
}

func TestMetricsCanBeDisabled(t *testing.T) {
	s := New(":0", false, nil, logger.NewWithWriter("test", io.Discard))
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
