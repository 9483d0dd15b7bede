package embedding

import (
	"context"
	"fmt"

	"github.com/anush008/fastembed-go"
)

// TransformerEmbedder wraps a pretrained ONNX sentence-embedding model
// (§4.3 item 1, "preferred"). fastembed-go loads a named model (here
// BGESmallEN, 384 dimensions) and runs it entirely in-process over
// wazero; there is no network call and no Python runtime involved.
type TransformerEmbedder struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dimension int
}

// NewTransformerEmbedder materializes BGESmallEN (384 dimensions) whatever
// modelName is; modelName is recorded for Name and the saved model
// reference but does not select a different model. Per §4.3, "the
// first call may block while the model materializes" — callers on the
// hot path should warm this up at startup rather than on first query.
func NewTransformerEmbedder(modelName string) (*TransformerEmbedder, error) {
	m, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model: fastembed.BGESmallEN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to materialize transformer embedder %q: %w", modelName, err)
	}
	return &TransformerEmbedder{model: m, modelName: modelName, dimension: 384}, nil
}

func (e *TransformerEmbedder) Name() string    { return "transformer:" + e.modelName }
func (e *TransformerEmbedder) Dimension() int  { return e.dimension }

func (e *TransformerEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return zeroVector(e.dimension), nil
	}
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *TransformerEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	nonBlank := make([]string, 0, len(texts))
	index := make([]int, 0, len(texts))
	for i, t := range texts {
		if isBlank(t) {
			out[i] = zeroVector(e.dimension)
			continue
		}
		nonBlank = append(nonBlank, t)
		index = append(index, i)
	}
	if len(nonBlank) == 0 {
		return out, nil
	}

	embeddings, err := e.model.Embed(nonBlank, 0)
	if err != nil {
		// Batch-level failure still must not fail the whole request
		// (§4.3 "within-batch errors degrade to zero vectors"); the
		// entries we couldn't embed fall back to zero vectors.
		for _, i := range index {
			out[i] = zeroVector(e.dimension)
		}
		return out, nil
	}
	for n, i := range index {
		if n >= len(embeddings) {
			out[i] = zeroVector(e.dimension)
			continue
		}
		out[i] = embeddings[n]
	}
	return out, nil
}

// Fit is a no-op: a pretrained transformer needs no corpus fitting
// (§4.3).
func (e *TransformerEmbedder) Fit(ctx context.Context, corpus []string) error { return nil }

// Save persists only the model name reference; the model weights
// themselves are managed by fastembed-go's own cache directory.
func (e *TransformerEmbedder) Save(path string) error {
	return writeModelRef(path, modelRef{Kind: "transformer", Name: e.modelName, Dimension: e.dimension})
}

func (e *TransformerEmbedder) Load(path string) error {
	ref, err := readModelRef(path)
	if err != nil {
		return err
	}
	e.modelName = ref.Name
	e.dimension = ref.Dimension
	return nil
}
