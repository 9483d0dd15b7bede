package httpserver

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kpath-io/kpath-search/internal/apierrors"
)

func TestRespondWithJSON_WritesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithJSON(rec, 201, map[string]string{"status": "created"})

	require.Equal(t, 201, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":"created"}`, rec.Body.String())
}

func TestErrorResponseWriter_RespondWithError_TranslatesAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewErrorResponseWriter(rec, "corr-123")

	w.RespondWithError(apierrors.NewNotFoundError("service not found"))

	require.Equal(t, 404, rec.Code)
	require.Contains(t, rec.Body.String(), "service not found")
	require.Contains(t, rec.Body.String(), "corr-123")
}

func TestDecodeJSONBody_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/search", bytes.NewBufferString(`{"unknown_field": true}`))
	var body struct {
		Query string `json:"query"`
	}
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	apiErr, ok := err.(*apierrors.APIError)
	require.True(t, ok)
	require.Equal(t, apierrors.KindMalformed, apiErr.Kind)
}

func TestDecodeJSONBody_DecodesValidBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/search", bytes.NewBufferString(`{"query": "send an email"}`))
	var body struct {
		Query string `json:"query"`
	}
	require.NoError(t, DecodeJSONBody(req, &body))
	require.Equal(t, "send an email", body.Query)
}
