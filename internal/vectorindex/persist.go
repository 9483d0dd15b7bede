package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// onDiskIndex is the gob-encoded persistence shape: dimension, the
// ordered id list, and the flat vector buffer (§4.4 "save/load — on-disk
// persistence including id list, dimension, and vectors"). gob is used
// because no library in the example corpus offers a binary serialization
// format better suited to a flat numeric buffer than the standard
// library's own encoding/gob.
type onDiskIndex struct {
	Dimension int
	IDs       []uint64
	Vectors   []float32
}

// Save writes the index through a temp-file-then-rename to avoid partial
// reads of a crashed write (§5).
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	snapshot := onDiskIndex{
		Dimension: idx.dimension,
		IDs:       append([]uint64(nil), idx.ids...),
		Vectors:   append([]float32(nil), idx.vectors...),
	}
	idx.mu.RUnlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vectorindex-*.tmp")
	if err != nil {
		return fmt.Errorf("vectorindex: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	enc := gob.NewEncoder(tmp)
	if err := enc.Encode(snapshot); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("vectorindex: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vectorindex: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vectorindex: rename into place: %w", err)
	}
	return nil
}

// Load replaces the index contents from a previously saved file.
func (idx *Index) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("vectorindex: open: %w", err)
	}
	defer f.Close()

	var snapshot onDiskIndex
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&snapshot); err != nil {
		return fmt.Errorf("vectorindex: decode: %w", err)
	}
	if len(snapshot.IDs)*snapshot.Dimension != len(snapshot.Vectors) {
		return fmt.Errorf("vectorindex: corrupt artifact: %d ids, %d dimension, %d vector floats", len(snapshot.IDs), snapshot.Dimension, len(snapshot.Vectors))
	}

	positions := make(map[uint64]int, len(snapshot.IDs))
	for i, id := range snapshot.IDs {
		positions[id] = i
	}

	idx.mu.Lock()
	idx.dimension = snapshot.Dimension
	idx.ids = snapshot.IDs
	idx.vectors = snapshot.Vectors
	idx.positions = positions
	idx.mu.Unlock()
	return nil
}
