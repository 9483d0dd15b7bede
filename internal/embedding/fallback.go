package embedding

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// StatisticalFallbackEmbedder is the deterministic fallback of §4.3 item
// 2: term-frequency with sublinear scaling, projected by a truncated
// SVD (latent semantic analysis) fitted once on a corpus. Used whenever
// a pretrained transformer model isn't available at startup.
//
// No library in the example corpus implements TF-IDF directly; the SVD
// step uses gonum's mat.SVD (the linear-algebra library the example
// corpus's AI-domain repo pulls in) rather than a hand-rolled
// eigensolver.
type StatisticalFallbackEmbedder struct {
	mu         sync.RWMutex
	vocabulary map[string]int // term -> column index
	idf        []float64      // len(vocabulary)
	projection *mat.Dense     // vocab size x dimension
	dimension  int
	maxVocab   int
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewStatisticalFallbackEmbedder constructs an unfitted embedder; Fit
// must be called before Embed(Text|Batch) (§4.3).
func NewStatisticalFallbackEmbedder(dimension int) *StatisticalFallbackEmbedder {
	return &StatisticalFallbackEmbedder{dimension: dimension, maxVocab: 4096}
}

func (e *StatisticalFallbackEmbedder) Name() string   { return "statistical-fallback" }
func (e *StatisticalFallbackEmbedder) Dimension() int  { return e.dimension }

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return tokenPattern.FindAllString(lower, -1)
}

// Fit builds the vocabulary, idf weights, and the term-space projection
// basis from corpus (§4.3 "fit(corpus) before use; subsequent embed
// calls are stateless").
func (e *StatisticalFallbackEmbedder) Fit(ctx context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return fmt.Errorf("statistical fallback embedder: empty fit corpus")
	}

	docFreq := map[string]int{}
	docTokens := make([][]string, len(corpus))
	for i, doc := range corpus {
		tokens := tokenize(doc)
		docTokens[i] = tokens
		seen := map[string]bool{}
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	vocabulary := make(map[string]int, len(docFreq))
	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	if len(terms) > e.maxVocab {
		terms = terms[:e.maxVocab]
	}
	for i, term := range terms {
		vocabulary[term] = i
	}

	n := len(corpus)
	v := len(vocabulary)
	idf := make([]float64, v)
	for term, idx := range vocabulary {
		idf[idx] = math.Log(float64(n)/(1+float64(docFreq[term]))) + 1
	}

	docVectors := mat.NewDense(n, v, nil)
	for i, tokens := range docTokens {
		tf := map[string]int{}
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, count := range tf {
			idx, ok := vocabulary[term]
			if !ok {
				continue
			}
			weight := (1 + math.Log(float64(count))) * idf[idx]
			docVectors.Set(i, idx, weight)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(docVectors, mat.SVDThin) {
		return fmt.Errorf("statistical fallback embedder: SVD factorization failed")
	}
	var vMat mat.Dense
	svd.VTo(&vMat)

	components := e.dimension
	_, availableComponents := vMat.Dims()
	if components > availableComponents {
		components = availableComponents
	}

	projection := mat.NewDense(v, e.dimension, nil)
	for row := 0; row < v; row++ {
		for col := 0; col < components; col++ {
			projection.Set(row, col, vMat.At(row, col))
		}
		// remaining columns (if components < dimension, e.g. a tiny
		// fit corpus) stay zero-padded.
	}

	e.mu.Lock()
	e.vocabulary = vocabulary
	e.idf = idf
	e.projection = projection
	e.mu.Unlock()
	return nil
}

func (e *StatisticalFallbackEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return zeroVector(e.dimension), nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.projection == nil {
		return nil, fmt.Errorf("statistical fallback embedder: not fitted")
	}
	return e.embedLocked(text), nil
}

func (e *StatisticalFallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if isBlank(t) {
			out[i] = zeroVector(e.dimension)
			continue
		}
		if e.projection == nil {
			// within-batch degradation rather than failing the batch
			// (§4.3).
			out[i] = zeroVector(e.dimension)
			continue
		}
		out[i] = e.embedLocked(t)
	}
	return out, nil
}

// embedLocked must be called with e.mu held.
func (e *StatisticalFallbackEmbedder) embedLocked(text string) []float32 {
	tokens := tokenize(text)
	tf := map[string]int{}
	for _, tok := range tokens {
		tf[tok]++
	}

	tfidf := mat.NewVecDense(len(e.vocabulary), nil)
	for term, count := range tf {
		idx, ok := e.vocabulary[term]
		if !ok {
			continue
		}
		weight := (1 + math.Log(float64(count))) * e.idf[idx]
		tfidf.SetVec(idx, weight)
	}

	var result mat.VecDense
	result.MulVec(e.projection.T(), tfidf)

	out := make([]float32, e.dimension)
	for i := 0; i < e.dimension && i < result.Len(); i++ {
		out[i] = float32(result.AtVec(i))
	}
	return out
}

func (e *StatisticalFallbackEmbedder) Save(path string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.projection == nil {
		return fmt.Errorf("statistical fallback embedder: nothing fitted to save")
	}
	state := fallbackState{
		Vocabulary: e.vocabulary,
		IDF:        e.idf,
		Dimension:  e.dimension,
	}
	rows, cols := e.projection.Dims()
	state.Projection = make([][]float64, rows)
	for r := 0; r < rows; r++ {
		state.Projection[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			state.Projection[r][c] = e.projection.At(r, c)
		}
	}
	return writeFallbackState(path, state)
}

func (e *StatisticalFallbackEmbedder) Load(path string) error {
	state, err := readFallbackState(path)
	if err != nil {
		return err
	}
	rows := len(state.Projection)
	cols := 0
	if rows > 0 {
		cols = len(state.Projection[0])
	}
	projection := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			projection.Set(r, c, state.Projection[r][c])
		}
	}

	e.mu.Lock()
	e.vocabulary = state.Vocabulary
	e.idf = state.IDF
	e.projection = projection
	e.dimension = state.Dimension
	e.mu.Unlock()
	return nil
}
