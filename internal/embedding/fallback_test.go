package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticalFallbackEmbedder_EmptyInputIsZeroVector(t *testing.T) {
	e := NewStatisticalFallbackEmbedder(8)
	require.NoError(t, e.Fit(context.Background(), []string{"send email", "create template", "refund payment"}))

	vec, err := e.EmbedText(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestStatisticalFallbackEmbedder_DeterministicAcrossCalls(t *testing.T) {
	e := NewStatisticalFallbackEmbedder(8)
	require.NoError(t, e.Fit(context.Background(), []string{"send email", "create template", "refund payment", "list invoices"}))

	first, err := e.EmbedText(context.Background(), "send email now")
	require.NoError(t, err)
	second, err := e.EmbedText(context.Background(), "send email now")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStatisticalFallbackEmbedder_BatchPreservesOrderAndDegradesOnUnfit(t *testing.T) {
	e := NewStatisticalFallbackEmbedder(4)
	texts := []string{"alpha", "", "beta"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Equal(t, make([]float32, 4), v)
	}
}

func TestStatisticalFallbackEmbedder_RequiresFitBeforeEmbedText(t *testing.T) {
	e := NewStatisticalFallbackEmbedder(4)
	_, err := e.EmbedText(context.Background(), "send email")
	assert.Error(t, err)
}
