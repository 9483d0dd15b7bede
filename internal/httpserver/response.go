package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/kpath-io/kpath-search/internal/apierrors"
)

// ErrorResponseWriter is the handler-facing writer every handler in this
// package takes instead of a bare http.ResponseWriter, mirroring the
// teacher's handlers.ErrorResponseWriter call-site shape (w.RespondWithError(err)
// / RespondWithJSON(w, status, data)) — its own definition never made it
// into the retrieval pack, so the interface is reconstructed here from
// those call sites.
type ErrorResponseWriter interface {
	http.ResponseWriter
	RespondWithError(err error)
}

type errorResponseWriter struct {
	http.ResponseWriter
	correlationID string
}

// NewErrorResponseWriter wraps w so handlers can call RespondWithError
// directly instead of duplicating the APIError->HTTP translation at
// every call site.
func NewErrorResponseWriter(w http.ResponseWriter, correlationID string) ErrorResponseWriter {
	return &errorResponseWriter{ResponseWriter: w, correlationID: correlationID}
}

// RespondWithError translates err into the envelope of §7 and writes it.
func (w *errorResponseWriter) RespondWithError(err error) {
	apiErr := apierrors.AsAPIError(err, w.correlationID)

	body := map[string]any{
		"error": apiErr.Message,
		"kind":  string(apiErr.Kind),
	}
	if len(apiErr.Fields) > 0 {
		body["fields"] = apiErr.Fields
	}
	if apiErr.CorrelationID != "" {
		body["correlation_id"] = apiErr.CorrelationID
	}

	RespondWithJSON(w, apiErr.Status, body)
}

// RespondWithJSON writes v as a JSON response with the given status.
func RespondWithJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSONBody decodes r's JSON body into v, returning a MalformedError
// on failure (§7).
func DecodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apierrors.NewMalformedError("malformed request body: " + err.Error())
	}
	return nil
}
