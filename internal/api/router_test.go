package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/cors"
	"github.com/stretchr/testify/assert"
)

func corsRequest(opts cors.Options, origin string) *httptest.ResponseRecorder {
	h := cors.Handler(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	opts := corsOptions([]string{"*"})
	assert.False(t, opts.AllowCredentials)

	rec := corsRequest(opts, "https://app.example.com")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSExplicitOriginsAllowCredentials(t *testing.T) {
	opts := corsOptions([]string{"https://app.example.com", "https://*.example.org"})
	assert.True(t, opts.AllowCredentials)

	rec := corsRequest(opts, "https://app.example.com")
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = corsRequest(opts, "https://evil.example.net")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMixedWildcardOmitsCredentials(t *testing.T) {
	assert.False(t, corsOptions([]string{"https://app.example.com", "*"}).AllowCredentials)
	assert.False(t, corsOptions(nil).AllowCredentials)
}

func TestRouterDefaultCORSHeaders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
