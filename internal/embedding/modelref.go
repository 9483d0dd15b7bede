package embedding

import (
	"encoding/json"
	"os"
)

// modelRef is the small JSON descriptor written to models/embedding_model.pkl
// per §6 ("serialized embedder configuration ... or model-name reference
// for a pretrained encoder"). The on-disk format is JSON, not pickle;
// only the path and role the spec names are preserved.
type modelRef struct {
	Kind      string `json:"kind"` // "transformer" | "statistical_fallback"
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

func writeModelRef(path string, ref modelRef) error {
	data, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readModelRef(path string) (modelRef, error) {
	var ref modelRef
	data, err := os.ReadFile(path)
	if err != nil {
		return ref, err
	}
	err = json.Unmarshal(data, &ref)
	return ref, err
}
