package embedding

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// fallbackState is the on-disk serialization of a fitted
// StatisticalFallbackEmbedder: vocabulary, idf weights, and the
// projection basis (§4.3 "persisted to one file").
type fallbackState struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	Projection [][]float64    `json:"projection"`
	Dimension  int            `json:"dimension"`
}

// writeFallbackState writes through a temp-file-then-rename to avoid a
// partially-written artifact on crash (§5 "persisted artifact files are
// written through a temp-file-then-rename").
func writeFallbackState(path string, state fallbackState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fallback-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func readFallbackState(path string) (fallbackState, error) {
	var state fallbackState
	data, err := os.ReadFile(path)
	if err != nil {
		return state, err
	}
	err = json.Unmarshal(data, &state)
	return state, err
}
