package search

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/embedding"
	"github.com/kpath-io/kpath-search/internal/lifecycle"
	"github.com/kpath-io/kpath-search/internal/rank"
)

func newTestPlanner(t *testing.T) (*Planner, *catalog.Manager) {
	t.Helper()
	cmgr, err := catalog.NewManager(catalog.Config{Driver: catalog.DriverSqlite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, cmgr.Initialize())

	reader := catalog.NewReader(cmgr)
	embedder := embedding.NewStatisticalFallbackEmbedder(16)
	lc := lifecycle.NewManager(t.TempDir(), embedder, reader, nil, logr.Discard())
	ranker := rank.New(reader)

	return NewPlanner(lc, reader, embedder, ranker), cmgr
}

func seedEmailService(t *testing.T, cmgr *catalog.Manager) catalog.Service {
	t.Helper()
	svc := catalog.Service{
		Name:        "EmailService",
		Description: "Send and manage email communications",
		Status:      catalog.ServiceStatusActive,
		Capabilities: []catalog.Capability{
			{Name: "SendEmail", Description: "send transactional email notifications"},
		},
		Tools: []catalog.Tool{
			{ToolName: "send_email", Description: "sends an email to a recipient", Active: true},
			{ToolName: "create_template", Description: "creates a reusable email template", Active: true},
		},
	}
	require.NoError(t, cmgr.DB().Create(&svc).Error)
	return svc
}

func TestPlanner_AgentsOnly_ReturnsIndexUnavailableBeforeInitialize(t *testing.T) {
	planner, _ := newTestPlanner(t)
	req := Request{Query: "send notifications", Limit: 3, SearchMode: ModeAgentsOnly}
	_, err := planner.Plan(context.Background(), 1, req)
	assert.Error(t, err)
}

func TestPlanner_AgentsOnly_BasicScenario(t *testing.T) {
	planner, cmgr := newTestPlanner(t)
	seedEmailService(t, cmgr)

	lc := planner.lifecycle
	require.NoError(t, lc.Initialize(context.Background(), true))

	resp, err := planner.Plan(context.Background(), 1, Request{
		Query: "send notifications", Limit: 3, SearchMode: ModeAgentsOnly,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, "EmailService", resp.Results[0].Service.Name)
}

func TestPlanner_ToolsOnly_RecommendsExpectedTool(t *testing.T) {
	planner, cmgr := newTestPlanner(t)
	seedEmailService(t, cmgr)
	require.NoError(t, planner.lifecycle.Initialize(context.Background(), true))

	resp, err := planner.Plan(context.Background(), 1, Request{
		Query: "dispatch an email to a customer", Limit: 1, SearchMode: ModeToolsOnly,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].RecommendedTool)
	assert.Equal(t, "EmailService", resp.Results[0].Service.Name)
}

func TestPlanner_Capabilities_IncludesCapabilityAndToolLines(t *testing.T) {
	planner, cmgr := newTestPlanner(t)
	seedEmailService(t, cmgr)
	require.NoError(t, planner.lifecycle.Initialize(context.Background(), true))

	resp, err := planner.Plan(context.Background(), 1, Request{
		Query: "send transactional email notifications", Limit: 5, SearchMode: ModeCapabilities,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, EntityTypeCapability, resp.Results[0].EntityType)

	resp, err = planner.Plan(context.Background(), 1, Request{
		Query: "creates a reusable email template", Limit: 5, SearchMode: ModeCapabilities,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results, "tool-only wording should still surface a result in capabilities mode")
	assert.Equal(t, EntityTypeServiceWithTool, resp.Results[0].EntityType)
	assert.Equal(t, "EmailService", resp.Results[0].Service.Name)
}

func TestPlanner_DomainFilter_ExcludesNonMatchingService(t *testing.T) {
	planner, cmgr := newTestPlanner(t)
	finance := catalog.Service{
		Name: "LedgerService", Description: "Tracks financial ledgers", Status: catalog.ServiceStatusActive,
		Industries: []catalog.IndustryTag{{Domain: "Finance"}},
	}
	comms := catalog.Service{
		Name: "ChatService", Description: "Tracks financial ledgers", Status: catalog.ServiceStatusActive,
		Industries: []catalog.IndustryTag{{Domain: "Communication"}},
	}
	require.NoError(t, cmgr.DB().Create(&finance).Error)
	require.NoError(t, cmgr.DB().Create(&comms).Error)
	require.NoError(t, planner.lifecycle.Initialize(context.Background(), true))

	resp, err := planner.Plan(context.Background(), 1, Request{
		Query: "financial ledgers", Limit: 10, SearchMode: ModeAgentsOnly,
		Domains: []string{"Finance"},
	})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.Equal(t, "LedgerService", r.Service.Name)
	}
}

func TestValidate_DefaultsAndBounds(t *testing.T) {
	req := &Request{Query: "hello"}
	require.NoError(t, Validate(req))
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, ModeAgentsOnly, req.SearchMode)
}

func TestValidate_RejectsEmptyQuery(t *testing.T) {
	req := &Request{Query: "   "}
	assert.Error(t, Validate(req))
}

func TestValidate_RejectsOutOfRangeLimit(t *testing.T) {
	req := &Request{Query: "x", Limit: 500}
	assert.Error(t, Validate(req))
}

func TestAssignRanksAndTruncate(t *testing.T) {
	records := []Record{{Score: 0.9}, {Score: 0.5}, {Score: 0.1}}
	out := assignRanksAndTruncate(records, 2)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, 2, out[1].Rank)
}
