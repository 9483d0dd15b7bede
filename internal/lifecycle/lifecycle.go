// Package lifecycle owns the build/load/persist state machine for the
// two vector indexes (§4.5, §3 "the Index Lifecycle Manager exclusively
// owns the in-memory vector arrays, the id->position mapping, and the
// on-disk artifact files").
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"

	"github.com/kpath-io/kpath-search/internal/apierrors"
	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/compose"
	"github.com/kpath-io/kpath-search/internal/embedding"
	"github.com/kpath-io/kpath-search/internal/vectorindex"
)

// State is one of the four lifecycle states named in §4.5.
type State string

const (
	StateUninitialized    State = "uninitialized"
	StateLoadedFromDisk   State = "loaded_from_disk"
	StateFreshlyBuilt     State = "freshly_built"
	StateMutatedSinceSave State = "mutated_since_save"
)

const (
	embedderArtifactName = "models/embedding_model.pkl"
	serviceIndexName     = "indexes/search_index"
	toolIndexName        = "indexes/tool_search_index"
)

// Manager is the singleton (per §5 "no global mutable state other
// than... the singleton Index Lifecycle Manager") that drives the two
// indexes through their states. All mutating operations are serialized
// by mu; concurrent reads of the indexes themselves go straight to
// vectorindex.Index, which has its own RWMutex.
type Manager struct {
	mu sync.Mutex

	state State

	artifactDir string
	embedder    embedding.Embedder
	reader      *catalog.Reader
	mirror      *catalog.MirrorWriter
	log         logr.Logger

	serviceIndex *vectorindex.Index
	toolIndex    *vectorindex.Index

	// toolServiceMap records, for every tool id currently in toolIndex,
	// the owning service id (§4.5 "tool-index file with parallel id
	// list + per-tool service mapping").
	toolServiceMap map[uint64]uint64
}

// NewManager wires a freshly-constructed, uninitialized lifecycle
// manager around reader/mirror/embedder.
func NewManager(artifactDir string, embedder embedding.Embedder, reader *catalog.Reader, mirror *catalog.MirrorWriter, log logr.Logger) *Manager {
	os.MkdirAll(filepath.Join(artifactDir, "models"), 0o755)
	os.MkdirAll(filepath.Join(artifactDir, "indexes"), 0o755)
	return &Manager{
		state:          StateUninitialized,
		artifactDir:    artifactDir,
		embedder:       embedder,
		reader:         reader,
		mirror:         mirror,
		log:            log,
		serviceIndex:   vectorindex.New(embedder.Dimension()),
		toolIndex:      vectorindex.New(embedder.Dimension()),
		toolServiceMap: map[uint64]uint64{},
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ServiceIndex and ToolIndex expose the shared, read-mostly indexes to
// the query planner (C7). They are safe for concurrent search while a
// rebuild is in flight because Build swaps buffers atomically (§5).
func (m *Manager) ServiceIndex() *vectorindex.Index { return m.serviceIndex }
func (m *Manager) ToolIndex() *vectorindex.Index    { return m.toolIndex }

// ToolServiceID returns the owning service id for a tool id currently in
// the tool index.
func (m *Manager) ToolServiceID(toolID uint64) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	serviceID, ok := m.toolServiceMap[toolID]
	return serviceID, ok
}

// EnsureReady returns an IndexUnavailable error if the manager hasn't
// successfully completed at least one load or build (§7 "lifecycle
// manager in uninitialized state or mid-rebuild; retriable").
func (m *Manager) EnsureReady() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateUninitialized {
		return apierrors.NewIndexUnavailableError("search index not initialized")
	}
	return nil
}

func (m *Manager) path(name string) string { return filepath.Join(m.artifactDir, name) }

// Startup attempts to load persisted artifacts; on success the state
// becomes loaded-from-disk, on failure uninitialized (§4.5). Startup
// always returns nil: any load failure, including a missing or corrupt
// artifact set (the expected first-run condition), is logged and leaves
// the state uninitialized.
func (m *Manager) Startup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.embedder.Load(m.path(embedderArtifactName)); err != nil {
		m.log.Info("no persisted embedder artifact, starting uninitialized", "error", err.Error())
		m.state = StateUninitialized
		return nil
	}
	if err := m.serviceIndex.Load(m.path(serviceIndexName)); err != nil {
		m.log.Info("no persisted service index, starting uninitialized", "error", err.Error())
		m.state = StateUninitialized
		return nil
	}
	if err := m.loadToolIndex(); err != nil {
		m.log.Info("no persisted tool index, starting uninitialized", "error", err.Error())
		m.state = StateUninitialized
		return nil
	}

	m.state = StateLoadedFromDisk
	return nil
}

// Initialize builds both indexes from the catalog unless a fresh
// artifact set was already loaded and force is false (§4.5). On a
// partial build failure, the indexes and embedder are rolled back to
// the previously saved artifacts so a failed rebuild never leaves the
// manager serving a half-built index (§4.5 "partial failure during a
// bulk build rolls back to the previous successful artifacts on disk").
func (m *Manager) Initialize(ctx context.Context, forceRebuild bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !forceRebuild && m.state == StateLoadedFromDisk {
		return nil
	}

	if err := m.buildLocked(ctx); err != nil {
		m.log.Error(err, "rebuild failed, rolling back to previous artifacts")
		if rollbackErr := m.rollbackLocked(); rollbackErr != nil {
			m.log.Error(rollbackErr, "rollback to previous artifacts also failed")
			m.state = StateUninitialized
		}
		return fmt.Errorf("lifecycle: initialize failed: %w", err)
	}

	m.state = StateFreshlyBuilt
	return nil
}

// Rebuild is a full recomputation, identical to Initialize(force=true)
// (§4.5).
func (m *Manager) Rebuild(ctx context.Context) error {
	return m.Initialize(ctx, true)
}

func (m *Manager) buildLocked(ctx context.Context) error {
	services, err := m.reader.ActiveServices(ctx)
	if err != nil {
		return fmt.Errorf("load active services: %w", err)
	}
	tools, err := m.reader.ActiveTools(ctx)
	if err != nil {
		return fmt.Errorf("load active tools: %w", err)
	}

	serviceTexts := make([]string, len(services))
	for i, svc := range services {
		serviceTexts[i] = compose.ServiceText(&svc)
	}
	toolTexts := make([]string, len(tools))
	for i, tool := range tools {
		name := ""
		if tool.Service != nil {
			name = tool.Service.Name
		}
		toolTexts[i] = compose.ToolText(&tool, name)
	}

	if fittable, ok := m.embedder.(interface {
		Fit(context.Context, []string) error
	}); ok {
		corpus := append(append([]string{}, serviceTexts...), toolTexts...)
		if len(corpus) > 0 {
			if err := fittable.Fit(ctx, corpus); err != nil {
				return fmt.Errorf("fit embedder: %w", err)
			}
		}
	}

	serviceVectors, err := m.embedder.EmbedBatch(ctx, serviceTexts)
	if err != nil {
		return fmt.Errorf("embed services: %w", err)
	}
	toolVectors, err := m.embedder.EmbedBatch(ctx, toolTexts)
	if err != nil {
		return fmt.Errorf("embed tools: %w", err)
	}

	serviceIDs := make([]uint64, len(services))
	for i, svc := range services {
		serviceIDs[i] = uint64(svc.ID)
	}
	toolIDs := make([]uint64, len(tools))
	toolServiceMap := make(map[uint64]uint64, len(tools))
	for i, tool := range tools {
		toolIDs[i] = uint64(tool.ID)
		toolServiceMap[uint64(tool.ID)] = uint64(tool.ServiceID)
	}

	if err := m.serviceIndex.Build(serviceIDs, serviceVectors); err != nil {
		return fmt.Errorf("build service index: %w", err)
	}
	if err := m.toolIndex.Build(toolIDs, toolVectors); err != nil {
		return fmt.Errorf("build tool index: %w", err)
	}
	m.toolServiceMap = toolServiceMap

	if m.mirror != nil {
		for i, id := range serviceIDs {
			if err := m.mirror.Upsert("service", uint(id), serviceVectors[i]); err != nil {
				m.log.Error(err, "failed to mirror service embedding", "service_id", id)
			}
		}
		for i, id := range toolIDs {
			if err := m.mirror.Upsert("tool", uint(id), toolVectors[i]); err != nil {
				m.log.Error(err, "failed to mirror tool embedding", "tool_id", id)
			}
		}
	}

	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := m.embedder.Save(m.path(embedderArtifactName)); err != nil {
		return fmt.Errorf("save embedder: %w", err)
	}
	if err := m.serviceIndex.Save(m.path(serviceIndexName)); err != nil {
		return fmt.Errorf("save service index: %w", err)
	}
	if err := m.saveToolIndex(); err != nil {
		return fmt.Errorf("save tool index: %w", err)
	}
	return nil
}

func (m *Manager) rollbackLocked() error {
	if err := m.embedder.Load(m.path(embedderArtifactName)); err != nil {
		return err
	}
	if err := m.serviceIndex.Load(m.path(serviceIndexName)); err != nil {
		return err
	}
	return m.loadToolIndex()
}

// AddService embeds and inserts a single service into the service index,
// then immediately persists (§4.5 "single-entity delta applied to the
// service index then save"). mu is held throughout, so State() does not
// observe mutated-since-save while the save runs; the state remains
// mutated-since-save only if the index add or the save fails.
func (m *Manager) AddService(ctx context.Context, serviceID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	svc, err := m.reader.ServiceByID(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("lookup service %d: %w", serviceID, err)
	}
	vec, err := m.embedder.EmbedText(ctx, compose.ServiceText(svc))
	if err != nil {
		return fmt.Errorf("embed service %d: %w", serviceID, err)
	}

	m.state = StateMutatedSinceSave
	if err := m.serviceIndex.Add(uint64(serviceID), vec); err != nil {
		return fmt.Errorf("add service %d to index: %w", serviceID, err)
	}
	if m.mirror != nil {
		if err := m.mirror.Upsert("service", serviceID, vec); err != nil {
			m.log.Error(err, "failed to mirror service embedding", "service_id", serviceID)
		}
	}
	if err := m.serviceIndex.Save(m.path(serviceIndexName)); err != nil {
		return fmt.Errorf("save service index: %w", err)
	}
	m.state = StateFreshlyBuilt
	return nil
}

// UpdateService is equivalent to RemoveService then AddService at the
// level of subsequent search outputs (§8 round-trip property).
func (m *Manager) UpdateService(ctx context.Context, serviceID uint) error {
	m.mu.Lock()
	svc, err := m.reader.ServiceByID(ctx, serviceID)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("lookup service %d: %w", serviceID, err)
	}
	vec, err := m.embedder.EmbedText(ctx, compose.ServiceText(svc))
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("embed service %d: %w", serviceID, err)
	}

	m.state = StateMutatedSinceSave
	if !m.serviceIndex.Update(uint64(serviceID), vec) {
		if err := m.serviceIndex.Add(uint64(serviceID), vec); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("add service %d to index: %w", serviceID, err)
		}
	}
	if m.mirror != nil {
		if err := m.mirror.Upsert("service", serviceID, vec); err != nil {
			m.log.Error(err, "failed to mirror service embedding", "service_id", serviceID)
		}
	}
	err = m.serviceIndex.Save(m.path(serviceIndexName))
	m.state = StateFreshlyBuilt
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("save service index: %w", err)
	}
	return nil
}

// RemoveService deletes serviceID from the service index and persists.
func (m *Manager) RemoveService(ctx context.Context, serviceID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateMutatedSinceSave
	m.serviceIndex.Remove(uint64(serviceID))
	if m.mirror != nil {
		if err := m.mirror.Delete("service", serviceID); err != nil {
			m.log.Error(err, "failed to remove mirrored service embedding", "service_id", serviceID)
		}
	}
	if err := m.serviceIndex.Save(m.path(serviceIndexName)); err != nil {
		return fmt.Errorf("save service index: %w", err)
	}
	m.state = StateFreshlyBuilt
	return nil
}
