package lifecycle

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/embedding"
)

func TestManager_StartupWithNoArtifactsIsUninitialized(t *testing.T) {
	dir := t.TempDir()
	embedder := embedding.NewStatisticalFallbackEmbedder(4)
	require.NoError(t, embedder.Fit(context.Background(), []string{"seed corpus for fit"}))

	mgr := NewManager(dir, embedder, nil, nil, logr.Discard())
	require.NoError(t, mgr.Startup(context.Background()))
	require.Equal(t, StateUninitialized, mgr.State())
	require.Error(t, mgr.EnsureReady())
}

func newSeededCatalog(t *testing.T) (*catalog.Reader, *catalog.Manager) {
	t.Helper()
	cmgr, err := catalog.NewManager(catalog.Config{Driver: catalog.DriverSqlite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, cmgr.Initialize())

	svc := catalog.Service{
		Name:        "EmailService",
		Description: "Send and manage email communications",
		Status:      catalog.ServiceStatusActive,
		Capabilities: []catalog.Capability{{Name: "SendEmail", Description: "send transactional email"}},
		Tools: []catalog.Tool{
			{ToolName: "send_email", Description: "sends an email", Active: true},
		},
	}
	require.NoError(t, cmgr.DB().Create(&svc).Error)
	return catalog.NewReader(cmgr), cmgr
}

func TestManager_InitializeBuildsBothIndexesFromCatalog(t *testing.T) {
	reader, _ := newSeededCatalog(t)
	dir := t.TempDir()
	embedder := embedding.NewStatisticalFallbackEmbedder(4)

	mgr := NewManager(dir, embedder, reader, nil, logr.Discard())
	require.NoError(t, mgr.Startup(context.Background()))
	require.NoError(t, mgr.Initialize(context.Background(), false))

	assert.Equal(t, StateFreshlyBuilt, mgr.State())
	assert.Equal(t, 1, mgr.ServiceIndex().Len())
	assert.Equal(t, 1, mgr.ToolIndex().Len())
	require.NoError(t, mgr.EnsureReady())
}

func TestManager_InitializeIsNoOpWhenAlreadyLoadedFromDiskAndNotForced(t *testing.T) {
	reader, _ := newSeededCatalog(t)
	dir := t.TempDir()
	embedder := embedding.NewStatisticalFallbackEmbedder(4)

	mgr := NewManager(dir, embedder, reader, nil, logr.Discard())
	require.NoError(t, mgr.Initialize(context.Background(), false))
	require.NoError(t, mgr.Rebuild(context.Background()))

	reloaded := NewManager(dir, embedding.NewStatisticalFallbackEmbedder(4), reader, nil, logr.Discard())
	require.NoError(t, reloaded.Startup(context.Background()))
	require.Equal(t, StateLoadedFromDisk, reloaded.State())

	require.NoError(t, reloaded.Initialize(context.Background(), false))
	assert.Equal(t, StateLoadedFromDisk, reloaded.State())
}

func TestManager_AddServiceThenRemoveServiceRestoresPriorCount(t *testing.T) {
	reader, cmgr := newSeededCatalog(t)
	dir := t.TempDir()
	embedder := embedding.NewStatisticalFallbackEmbedder(4)
	require.NoError(t, embedder.Fit(context.Background(), []string{"send email notifications"}))

	mgr := NewManager(dir, embedder, reader, nil, logr.Discard())
	require.NoError(t, mgr.Initialize(context.Background(), false))

	second := catalog.Service{
		Name:        "BillingService",
		Description: "Handles invoices and payments",
		Status:      catalog.ServiceStatusActive,
	}
	require.NoError(t, cmgr.DB().Create(&second).Error)

	before := mgr.ServiceIndex().Len()
	require.NoError(t, mgr.AddService(context.Background(), second.ID))
	assert.Equal(t, before+1, mgr.ServiceIndex().Len())

	require.NoError(t, mgr.RemoveService(context.Background(), second.ID))
	assert.Equal(t, before, mgr.ServiceIndex().Len())
}
