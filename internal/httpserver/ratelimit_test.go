package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kpath-io/kpath-search/internal/catalog"
)

func TestRateLimitMiddleware_AllowsUnderBudget(t *testing.T) {
	reader := newTestReader(t)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	handler := rateLimitMiddleware(reader)(next)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req = req.WithContext(withPrincipal(req.Context(), Principal{RawID: "1", RateLimit: 10}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(NewErrorResponseWriter(rec, ""), req)

	require.True(t, called)
	require.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitMiddleware_RejectsOverBudget(t *testing.T) {
	mgr, err := catalog.NewManager(catalog.Config{Driver: catalog.DriverSqlite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	reader := catalog.NewReader(mgr)

	for i := 0; i < 3; i++ {
		require.NoError(t, reader.RecordAPIRequest(t.Context(), "2", "", "/search", http.MethodGet, 200, 1))
	}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	handler := rateLimitMiddleware(reader)(next)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req = req.WithContext(withPrincipal(req.Context(), Principal{RawID: "2", RateLimit: 3}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(NewErrorResponseWriter(rec, ""), req)

	require.False(t, called)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitMiddleware_SkipsWithoutPrincipal(t *testing.T) {
	reader := newTestReader(t)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	handler := rateLimitMiddleware(reader)(next)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, called)
}

func TestAuditMiddleware_RecordsCompletedRequest(t *testing.T) {
	reader := newTestReader(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	handler := auditMiddleware(reader)(next)

	req := httptest.NewRequest(http.MethodPost, "/search/feedback", nil)
	req = req.WithContext(withPrincipal(req.Context(), Principal{RawID: "3"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	count, err := reader.RequestCountSince(t.Context(), "3", "", time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
