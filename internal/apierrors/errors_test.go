package apierrors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAPIError_PassesThroughAPIError(t *testing.T) {
	err := NewNotFoundError("service not found")
	got := AsAPIError(err, "corr-1")
	assert.Same(t, err, got)
}

func TestAsAPIError_WrapsPlainErrorAsInternal(t *testing.T) {
	got := AsAPIError(fmt.Errorf("boom"), "corr-2")
	require.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "corr-2", got.CorrelationID)
}

func TestAsAPIError_TranslatesRawDeadlineExceeded(t *testing.T) {
	got := AsAPIError(context.DeadlineExceeded, "corr-3")
	require.Equal(t, KindDeadlineExceeded, got.Kind)
	assert.Equal(t, http.StatusGatewayTimeout, got.Status)
}

func TestAsAPIError_TranslatesDeadlineExceededWrappedInInternalError(t *testing.T) {
	wrapped := NewInternalError("corr-4", fmt.Errorf("query failed: %w", context.DeadlineExceeded))
	got := AsAPIError(wrapped, "corr-5")
	require.Equal(t, KindDeadlineExceeded, got.Kind)
}
