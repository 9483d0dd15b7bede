package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kpath-io/kpath-search/internal/apierrors"
	"github.com/kpath-io/kpath-search/internal/config"
	"github.com/kpath-io/kpath-search/internal/logging"
)

// statusResponseWriter captures the status code written by a handler so
// middleware can log it after ServeHTTP returns, matching the teacher's
// internal/httpserver/middleware.go wrapper.
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusResponseWriter) RespondWithError(err error) {
	if ew, ok := w.ResponseWriter.(ErrorResponseWriter); ok {
		w.status = apierrors.AsAPIError(err, "").Status
		ew.RespondWithError(err)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

var _ http.Flusher = &statusResponseWriter{}

// requestIDMiddleware assigns a correlation id to every request, echoed
// back in X-Request-ID and threaded into the error-response envelope
// (§7 "the response body carries only the id").
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ew := NewErrorResponseWriter(w, requestID)
		next.ServeHTTP(ew, r)
	})
}

// loggingMiddleware logs one structured line per request, mirroring the
// teacher's loggingMiddleware (method/path/status/duration).
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logging.FromContext(r.Context()).WithName("http").WithValues(
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := newStatusResponseWriter(w)
		log.V(1).Info("request started")
		next.ServeHTTP(ww, r)
		log.Info("request completed",
			"status", ww.status,
			"duration", time.Since(start),
		)
	})
}

// deadlineMiddleware bounds every request's context to the configured
// per-request deadline (§5); a handler that blocks past it observes
// context.DeadlineExceeded, which AsAPIError translates to a 504 (§7).
func deadlineMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.RequestDeadline.Get())
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// contentTypeMiddleware sets the JSON content type for every API route,
// matching the teacher's contentTypeMiddleware.
func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
