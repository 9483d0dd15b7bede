package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// toolIndexSidecarSuffix names the JSON file carrying the per-tool
// service mapping alongside the tool index's own gob artifact (§4.5
// "tool-index file with parallel id list + per-tool service mapping").
const toolIndexSidecarSuffix = ".service_map.json"

func (m *Manager) saveToolIndex() error {
	path := m.path(toolIndexName)
	if err := m.toolIndex.Save(path); err != nil {
		return err
	}
	return writeToolServiceMap(path+toolIndexSidecarSuffix, m.toolServiceMap)
}

func (m *Manager) loadToolIndex() error {
	path := m.path(toolIndexName)
	if err := m.toolIndex.Load(path); err != nil {
		return err
	}
	mapping, err := readToolServiceMap(path + toolIndexSidecarSuffix)
	if err != nil {
		return err
	}
	m.toolServiceMap = mapping
	return nil
}

func writeToolServiceMap(path string, mapping map[uint64]uint64) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".toolmap-*.tmp")
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

func readToolServiceMap(path string) (map[uint64]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool service map: %w", err)
	}
	var mapping map[uint64]uint64
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("decode tool service map: %w", err)
	}
	return mapping, nil
}
