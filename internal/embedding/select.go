package embedding

import "github.com/go-logr/logr"

// Select implements the startup decision of §4.3: "prefer the
// pretrained transformer embedder if available, otherwise the
// statistical fallback." modelName names the transformer model to try;
// an empty name or a load failure falls back directly.
func Select(log logr.Logger, modelName string, dimension int) Embedder {
	if modelName != "" && modelName != "statistical-fallback" {
		transformer, err := NewTransformerEmbedder(modelName)
		if err == nil {
			log.Info("loaded transformer embedder", "model", modelName)
			return transformer
		}
		log.Info("transformer embedder unavailable, falling back", "model", modelName, "error", err.Error())
	}
	return NewStatisticalFallbackEmbedder(dimension)
}
