package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware_GeneratesIDWhenAbsent(t *testing.T) {
	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ew, ok := w.(ErrorResponseWriter)
		require.True(t, ok)
		gotID = w.Header().Get("X-Request-ID")
		ew.RespondWithError(nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	requestIDMiddleware(next).ServeHTTP(rec, req)

	require.NotEmpty(t, gotID)
	require.Equal(t, gotID, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_EchoesExistingID(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	requestIDMiddleware(next).ServeHTTP(rec, req)

	require.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestContentTypeMiddleware_SetsJSON(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	contentTypeMiddleware(next).ServeHTTP(rec, req)

	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDeadlineMiddleware_SetsContextDeadline(t *testing.T) {
	t.Setenv("KPATH_REQUEST_DEADLINE", "50ms")

	var gotDeadline time.Time
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDeadline, ok = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	deadlineMiddleware(next).ServeHTTP(rec, req)

	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(50*time.Millisecond), gotDeadline, 40*time.Millisecond)
}

func TestDeadlineMiddleware_CancelsContextAfterDeadline(t *testing.T) {
	t.Setenv("KPATH_REQUEST_DEADLINE", "10ms")

	var ctxErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		ctxErr = r.Context().Err()
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	deadlineMiddleware(next).ServeHTTP(rec, req)

	require.ErrorIs(t, ctxErr, context.DeadlineExceeded)
}

func TestLoggingMiddleware_CallsThroughAndCapturesStatus(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	loggingMiddleware(next).ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusAccepted, rec.Code)
}
