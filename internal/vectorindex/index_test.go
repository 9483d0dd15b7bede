package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_AddThenRemoveRestoresPriorIDSet(t *testing.T) {
	idx := New(3)
	require.NoError(t, idx.Add(1, []float32{1, 0, 0}))
	require.NoError(t, idx.Add(2, []float32{0, 1, 0}))

	require.NoError(t, idx.Add(3, []float32{0, 0, 1}))
	assert.True(t, idx.Remove(3))

	assert.ElementsMatch(t, []uint64{1, 2}, currentIDs(idx))
}

func TestIndex_AddRejectsDuplicateID(t *testing.T) {
	idx := New(2)
	require.NoError(t, idx.Add(1, []float32{1, 0}))
	err := idx.Add(1, []float32{0, 1})
	assert.Error(t, err)
}

func TestIndex_AddRejectsDimensionMismatch(t *testing.T) {
	idx := New(3)
	err := idx.Add(1, []float32{1, 0})
	assert.Error(t, err)
}

func TestIndex_SearchEmptyIndexReturnsEmpty(t *testing.T) {
	idx := New(3)
	matches, err := idx.Search([]float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_SearchZeroQueryVectorYieldsScoreZero(t *testing.T) {
	idx := New(3)
	require.NoError(t, idx.Add(1, []float32{1, 0, 0}))
	require.NoError(t, idx.Add(2, []float32{0, 1, 0}))

	matches, err := idx.Search([]float32{0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, 0.0, m.Score)
	}
}

func TestIndex_SearchLimitsToKAndIsMonotoneInSimilarity(t *testing.T) {
	idx := New(2)
	require.NoError(t, idx.Add(1, []float32{1, 0}))   // identical to query
	require.NoError(t, idx.Add(2, []float32{0, 1}))   // orthogonal
	require.NoError(t, idx.Add(3, []float32{-1, 0}))  // opposite

	matches, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, uint64(1), matches[0].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestIndex_UpdateReplacesVectorInPlace(t *testing.T) {
	idx := New(2)
	require.NoError(t, idx.Add(1, []float32{1, 0}))
	ok := idx.Update(1, []float32{0, 1})
	require.True(t, ok)

	matches, err := idx.Search([]float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestIndex_UpdateMissingIDReturnsFalse(t *testing.T) {
	idx := New(2)
	assert.False(t, idx.Update(99, []float32{0, 1}))
}

func TestIndex_BuildReplacesContentsAtomically(t *testing.T) {
	idx := New(2)
	require.NoError(t, idx.Add(1, []float32{1, 0}))

	err := idx.Build([]uint64{10, 20}, [][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{10, 20}, currentIDs(idx))
}

func TestIndex_BuildRejectsDuplicateIDs(t *testing.T) {
	idx := New(2)
	err := idx.Build([]uint64{1, 1}, [][]float32{{1, 0}, {0, 1}})
	assert.Error(t, err)
}

func TestIndex_SaveLoadRoundTripYieldsIdenticalSearch(t *testing.T) {
	idx := New(3)
	require.NoError(t, idx.Add(1, []float32{1, 0, 0}))
	require.NoError(t, idx.Add(2, []float32{0, 1, 0}))
	require.NoError(t, idx.Add(3, []float32{0, 0, 1}))

	dir := t.TempDir()
	path := filepath.Join(dir, "index.gob")
	require.NoError(t, idx.Save(path))

	loaded := New(3)
	require.NoError(t, loaded.Load(path))

	query := []float32{0.5, 0.5, 0}
	before, err := idx.Search(query, 3)
	require.NoError(t, err)
	after, err := loaded.Search(query, 3)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.InDelta(t, before[i].Score, after[i].Score, 1e-5)
	}
}

func TestIndex_LoadRejectsCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	idx := New(3)
	assert.Error(t, idx.Load(path))
}

func currentIDs(idx *Index) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]uint64, len(idx.ids))
	copy(out, idx.ids)
	return out
}
