// Package embedding maps composed text to fixed-dimensional vectors
// (§4.3, §9 "a small closed set of variants behind an interface"). Two
// implementations share the Embedder interface: a pretrained-transformer
// seam (Embedder is loaded from a named model asset) and a statistical
// fallback that requires no external model file.
package embedding

import "context"

// Embedder is the closed set of operations every implementation
// supports (§9): embed_text, embed_batch, fit, save, load, dimension.
type Embedder interface {
	// EmbedText embeds a single string. Empty/whitespace input yields
	// the zero vector of length Dimension() (§4.3).
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds many strings, preserving input order. A failure
	// embedding one entry degrades that entry to a zero vector rather
	// than failing the whole batch (§4.3).
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Fit trains any data-dependent parameters (no-op for a pretrained
	// transformer embedder; required before first use of the
	// statistical fallback).
	Fit(ctx context.Context, corpus []string) error

	// Save persists fitted parameters/model reference to path.
	Save(path string) error

	// Load restores fitted parameters/model reference from path. On
	// success, Dimension() reflects the loaded model's declared
	// dimension, replacing any default (§4.3).
	Load(path string) error

	// Dimension returns D, the fixed output width.
	Dimension() int

	// Name identifies the embedder variant, for diagnostics. The
	// pretrained-vs-fallback choice is made by Select from the configured
	// model name, not from Name.
	Name() string
}

// zeroVector returns a length-d slice of zeros, the contract value for
// empty input (§4.3) and for within-batch embedding failures.
func zeroVector(d int) []float32 {
	return make([]float32, d)
}

// isBlank reports whether s has no non-whitespace content.
func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
