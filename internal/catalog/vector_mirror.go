package catalog

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingMirrorRow is the Postgres-resident copy of every fitted
// embedding (A7 of SPEC_FULL.md). The in-memory vectorindex.Index is the
// hot path C7 actually queries; this table exists so the index can be
// rebuilt from a durable source independent of the gob artifact files,
// and so operators can inspect/debug embeddings with plain SQL.
type EmbeddingMirrorRow struct {
	EntityType string          `gorm:"primaryKey;column:entity_type"` // "service" | "tool"
	EntityID   uint            `gorm:"primaryKey;column:entity_id"`
	Embedding  pgvector.Vector `gorm:"type:vector(384)"`
	UpdatedAt  time.Time
}

func (EmbeddingMirrorRow) TableName() string { return "embedding_mirror_rows" }

// MirrorWriter upserts/deletes rows in the Postgres embedding mirror. It
// is a pure side-channel: failures here are logged by the caller (C5) and
// never fail the in-memory index operation they accompany, since the
// in-memory index is the system of record for serving search (§4.4/§4.5).
type MirrorWriter struct {
	mgr *Manager
}

func NewMirrorWriter(mgr *Manager) *MirrorWriter { return &MirrorWriter{mgr: mgr} }

func (w *MirrorWriter) Upsert(entityType string, entityID uint, vec []float32) error {
	row := EmbeddingMirrorRow{
		EntityType: entityType,
		EntityID:   entityID,
		Embedding:  pgvector.NewVector(vec),
		UpdatedAt:  time.Now(),
	}
	return w.mgr.DB().Save(&row).Error
}

func (w *MirrorWriter) Delete(entityType string, entityID uint) error {
	return w.mgr.DB().
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Delete(&EmbeddingMirrorRow{}).Error
}

// LoadAll returns every mirrored vector for entityType, ordered by entity
// id, for use as a rebuild source of truth.
func (w *MirrorWriter) LoadAll(entityType string) (ids []uint, vectors [][]float32, err error) {
	var rows []EmbeddingMirrorRow
	if err := w.mgr.DB().
		Where("entity_type = ?", entityType).
		Order("entity_id asc").
		Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	ids = make([]uint, len(rows))
	vectors = make([][]float32, len(rows))
	for i, r := range rows {
		ids[i] = r.EntityID
		vectors[i] = r.Embedding.Slice()
	}
	return ids, vectors, nil
}
