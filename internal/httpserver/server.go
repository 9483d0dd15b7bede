// Package httpserver is the C8 API surface: request validation, auth,
// rate limiting, and the handlers for /search, /search/feedback,
// /search/status, /search/rebuild, /admin/services, /healthz and
// /api/env (§4.8, §6).
package httpserver

import (
	"net/http"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"

	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/lifecycle"
	"github.com/kpath-io/kpath-search/internal/metrics"
	"github.com/kpath-io/kpath-search/internal/rank"
	"github.com/kpath-io/kpath-search/internal/search"
)

// Base bundles the collaborators every handler needs, mirroring the
// teacher's handlers.Base embedding pattern (struct of shared
// dependencies, embedded by each *Handler type).
type Base struct {
	Reader    *catalog.Reader
	Manager   *catalog.Manager
	Lifecycle *lifecycle.Manager
	Planner   *search.Planner
	Ranker    *rank.Ranker
	Log       logr.Logger
}

// NewRouter builds the full route table with the middleware stack of
// §4.8 applied in order: request id -> deadline -> logging ->
// content-type -> auth -> rate limit -> audit -> scope -> handler.
func NewRouter(base *Base) http.Handler {
	authn := NewAuthenticator(base.Reader)

	router := mux.NewRouter()
	router.Use(requestIDMiddleware, deadlineMiddleware, loggingMiddleware, contentTypeMiddleware)

	public := router.NewRoute().Subrouter()
	public.HandleFunc("/healthz", wrap(base.handleHealthz)).Methods(http.MethodGet)
	public.HandleFunc("/api/env", wrap(base.handleEnv)).Methods(http.MethodGet)
	public.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authed := router.NewRoute().Subrouter()
	authed.Use(authMiddleware(authn), rateLimitMiddleware(base.Reader), auditMiddleware(base.Reader))

	authed.HandleFunc("/search", wrap(requireScope("search", base.handleSearch))).Methods(http.MethodGet, http.MethodPost)
	authed.HandleFunc("/search/feedback", wrap(requireScope("search", base.handleFeedback))).Methods(http.MethodPost)
	authed.HandleFunc("/search/status", wrap(requireScope("search", base.handleStatus))).Methods(http.MethodGet)
	authed.HandleFunc("/search/rebuild", wrap(requireScope("admin", base.handleRebuild))).Methods(http.MethodPost)

	authed.HandleFunc("/admin/services", wrap(requireScope("admin", base.handleListServices))).Methods(http.MethodGet)
	authed.HandleFunc("/admin/services", wrap(requireScope("admin", base.handleCreateService))).Methods(http.MethodPost)
	authed.HandleFunc("/admin/services/{id}", wrap(requireScope("admin", base.handleUpdateService))).Methods(http.MethodPut)
	authed.HandleFunc("/admin/services/{id}", wrap(requireScope("admin", base.handleDeleteService))).Methods(http.MethodDelete)

	return router
}

// wrap adapts the ErrorResponseWriter-taking handler signature used
// throughout this package (mirroring the teacher's handler call sites)
// into a plain http.HandlerFunc; middleware upstream always supplies an
// ErrorResponseWriter via requestIDMiddleware, so the fallback path only
// matters for handlers reached without the full chain (tests).
func wrap(fn func(ErrorResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ew, ok := w.(ErrorResponseWriter); ok {
			fn(ew, r)
			return
		}
		fn(NewErrorResponseWriter(w, ""), r)
	}
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
