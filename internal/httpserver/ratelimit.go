package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kpath-io/kpath-search/internal/apierrors"
	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/metrics"
)

// rateLimitMiddleware enforces the per-principal rolling-hour budget of
// §4.8 step 3, counting against APIRequestLog rows rather than an
// in-process counter so the limit survives process restarts.
func rateLimitMiddleware(reader *catalog.Reader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			count, err := reader.RequestCountSince(r.Context(), principal.RawID, principal.APIKeyID, time.Hour)
			if err != nil {
				if ew, ok := w.(ErrorResponseWriter); ok {
					ew.RespondWithError(apierrors.NewInternalError("", err))
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			remaining := principal.RateLimit - int(count)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(principal.RateLimit))
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) >= principal.RateLimit {
				metrics.RateLimitRejections.WithLabelValues(principal.RawID).Inc()
				if ew, ok := w.(ErrorResponseWriter); ok {
					ew.RespondWithError(apierrors.NewRateLimitError(principal.RateLimit, remaining))
					return
				}
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// auditMiddleware logs the request's completion status against
// APIRequestLog (§4.8 step 7, §3). The write failing never fails the
// response (§7 "feedback/logging writes are swallowed").
func auditMiddleware(reader *catalog.Reader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := newStatusResponseWriter(w)
			next.ServeHTTP(ww, r)

			principal, _ := PrincipalFrom(r.Context())
			_ = reader.RecordAPIRequest(r.Context(), principal.RawID, principal.APIKeyID, r.URL.Path, r.Method, ww.status, float64(time.Since(start).Microseconds())/1000.0)
		})
	}
}
