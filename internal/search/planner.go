package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kpath-io/kpath-search/internal/apierrors"
	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/compose"
	"github.com/kpath-io/kpath-search/internal/config"
	"github.com/kpath-io/kpath-search/internal/embedding"
	"github.com/kpath-io/kpath-search/internal/lifecycle"
	"github.com/kpath-io/kpath-search/internal/metrics"
	"github.com/kpath-io/kpath-search/internal/rank"
)

// Planner dispatches validated requests across the five search modes
// and assembles the response envelope (§4.7).
type Planner struct {
	lifecycle *lifecycle.Manager
	reader    *catalog.Reader
	embedder  embedding.Embedder
	ranker    *rank.Ranker
}

func NewPlanner(lc *lifecycle.Manager, reader *catalog.Reader, embedder embedding.Embedder, ranker *rank.Ranker) *Planner {
	return &Planner{lifecycle: lc, reader: reader, embedder: embedder, ranker: ranker}
}

// Plan validates index readiness, dispatches req to its mode's
// pipeline, and returns the assembled response (§4.7, §4.8 step 5-6).
func (p *Planner) Plan(ctx context.Context, userID uint, req Request) (*Response, error) {
	if err := p.lifecycle.EnsureReady(); err != nil {
		return nil, err
	}

	start := time.Now()
	var results []Record
	var err error

	switch req.SearchMode {
	case ModeAgentsOnly:
		results, err = p.planAgentsOnly(ctx, req)
	case ModeToolsOnly:
		results, err = p.planToolsOnly(ctx, req)
	case ModeAgentsAndTools:
		results, err = p.planAgentsAndTools(ctx, req)
	case ModeWorkflows:
		results, err = p.planWorkflows(ctx, req)
	case ModeCapabilities:
		results, err = p.planCapabilities(ctx, req)
	default:
		return nil, apierrors.NewValidationError(map[string]string{"search_mode": "unknown search mode"})
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.SearchLatencySeconds.WithLabelValues(string(req.SearchMode)).Observe(elapsed.Seconds())
	metrics.IndexSize.WithLabelValues("service").Set(float64(p.lifecycle.ServiceIndex().Len()))
	metrics.IndexSize.WithLabelValues("tool").Set(float64(p.lifecycle.ToolIndex().Len()))

	return &Response{
		Query:        req.Query,
		Results:      results,
		TotalResults: len(results),
		SearchTimeMS: float64(elapsed.Microseconds()) / 1000.0,
		UserID:       userID,
		Timestamp:    time.Now().UTC(),
		SearchMode:   string(req.SearchMode),
	}, nil
}

func (p *Planner) embedQuery(ctx context.Context, req Request) ([]float32, error) {
	text := compose.QueryText(req.Query)
	vec, err := p.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, apierrors.NewInternalError("", fmt.Errorf("embed query: %w", err))
	}
	return vec, nil
}

// planAgentsOnly implements §4.7 agents_only.
func (p *Planner) planAgentsOnly(ctx context.Context, req Request) ([]Record, error) {
	queryVec, err := p.embedQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	matches, err := p.lifecycle.ServiceIndex().Search(queryVec, 3*req.Limit)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}
	if len(matches) == 0 {
		return []Record{}, nil
	}

	ids := make([]uint, len(matches))
	scoreByID := make(map[uint]float64, len(matches))
	for i, m := range matches {
		ids[i] = uint(m.ID)
		scoreByID[uint(m.ID)] = m.Score
	}
	services, err := p.reader.ServicesByIDs(ctx, ids)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}

	candidates := make([]rank.Scored, 0, len(services))
	for _, svc := range services {
		candidates = append(candidates, rank.Scored{ServiceID: svc.ID, BaseScore: scoreByID[svc.ID]})
	}
	reranked, err := p.ranker.Rerank(ctx, req.Query, candidates)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}

	records := make([]Record, 0, len(reranked))
	for _, c := range reranked {
		svc := serviceByID(services, c.ServiceID)
		if svc == nil {
			continue
		}
		if !matchesDomains(svc, req.Domains) || !matchesCapabilities(svc, req.Capabilities) {
			continue
		}
		if c.BaseScore < req.MinScore {
			continue
		}
		records = append(records, Record{
			ServiceID:  svc.ID,
			Score:      c.BaseScore,
			EntityType: EntityTypeService,
			Service:    hydrateService(svc, req.IncludeOrchestration),
		})
	}

	return assignRanksAndTruncate(records, req.Limit), nil
}

// planToolsOnly implements §4.7 tools_only.
func (p *Planner) planToolsOnly(ctx context.Context, req Request) ([]Record, error) {
	queryVec, err := p.embedQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	matches, err := p.lifecycle.ToolIndex().Search(queryVec, 3*req.Limit)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}

	records := make([]Record, 0, len(matches))
	for _, m := range matches {
		if m.Score < req.MinScore {
			continue
		}
		tool, err := p.reader.ToolByID(ctx, uint(m.ID))
		if err != nil {
			// partial degradation: drop the record, don't fail the
			// response (§7 propagation policy).
			continue
		}
		if tool.Service == nil {
			continue
		}
		if !matchesDomains(tool.Service, req.Domains) || !matchesCapabilities(tool.Service, req.Capabilities) {
			continue
		}
		records = append(records, Record{
			ServiceID:  tool.Service.ID,
			Score:      m.Score,
			EntityType: EntityTypeServiceWithTool,
			Service:    hydrateService(tool.Service, req.IncludeOrchestration),
			RecommendedTool: &RecommendedTool{
				ToolID:               tool.ID,
				ToolName:             tool.ToolName,
				ToolDescription:      tool.Description,
				InputSchema:          tool.InputSchema,
				OutputSchema:         tool.OutputSchema,
				ExampleCalls:         tool.ExampleCalls,
				RecommendationScore:  m.Score,
				RecommendationReason: fmt.Sprintf("%q best matches your request among %s's tools", tool.ToolName, tool.Service.Name),
			},
		})
		if len(records) >= req.Limit {
			break
		}
	}

	return assignRanksAndTruncate(records, req.Limit), nil
}

// planAgentsAndTools implements §4.7 agents_and_tools: run the two
// preceding modes independently with limit each, merge, re-sort,
// reassign ranks, truncate. Agent records carry the feedback rerank that
// planAgentsOnly applies; tool records keep their raw similarity scores.
// No feedback rerank is applied to the merged list.
func (p *Planner) planAgentsAndTools(ctx context.Context, req Request) ([]Record, error) {
	agents, err := p.planAgentsOnly(ctx, req)
	if err != nil {
		return nil, err
	}
	tools, err := p.planToolsOnly(ctx, req)
	if err != nil {
		return nil, err
	}

	merged := append(append([]Record{}, agents...), tools...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return assignRanksAndTruncate(merged, req.Limit), nil
}

// planWorkflows implements §4.7 workflows, gated behind a feature flag
// per the open question in §9 (InvocationLog's schema is provisional).
func (p *Planner) planWorkflows(ctx context.Context, req Request) ([]Record, error) {
	if !config.WorkflowModeEnabled.Get() {
		return []Record{}, nil
	}

	triples, err := p.reader.WorkflowTriples(ctx)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}
	if len(triples) == 0 {
		return []Record{}, nil
	}

	serviceIDs := make(map[uint]struct{})
	for _, t := range triples {
		serviceIDs[t.InitiatorServiceID] = struct{}{}
		serviceIDs[t.TargetServiceID] = struct{}{}
	}
	ids := make([]uint, 0, len(serviceIDs))
	for id := range serviceIDs {
		ids = append(ids, id)
	}
	services, err := p.reader.ServicesByIDs(ctx, ids)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}
	names := make(map[uint]string, len(services))
	for _, svc := range services {
		names[svc.ID] = svc.Name
	}

	descriptions := make([]string, len(triples))
	for i, t := range triples {
		descriptions[i] = compose.WorkflowLine(names[t.InitiatorServiceID], names[t.TargetServiceID], fmt.Sprintf("tool#%d", t.ToolID), t.InvocationCount)
	}

	queryVec, err := p.embedQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	vectors, err := p.embedder.EmbedBatch(ctx, descriptions)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}

	records := make([]Record, 0, len(triples))
	for i, t := range triples {
		score := cosineUnit(vectors[i], queryVec)
		if score < req.MinScore {
			continue
		}
		records = append(records, Record{
			ServiceID:  t.InitiatorServiceID,
			Score:      score,
			EntityType: EntityTypeWorkflow,
			WorkflowData: &WorkflowData{
				InitiatorID:     t.InitiatorServiceID,
				TargetID:        t.TargetServiceID,
				ToolID:          t.ToolID,
				InvocationCount: t.InvocationCount,
				Description:     descriptions[i],
			},
		})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Score > records[j].Score })
	return assignRanksAndTruncate(records, req.Limit), nil
}

// planCapabilities implements §4.7 capabilities mode: live-embeds active
// capability and tool text lines rather than going through the
// persisted index, since the candidate set (capability rows, tool rows)
// has no dedicated vector index of its own.
func (p *Planner) planCapabilities(ctx context.Context, req Request) ([]Record, error) {
	services, err := p.reader.ActiveServices(ctx)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}
	tools, err := p.reader.ActiveTools(ctx)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}

	type line struct {
		serviceID  uint
		entityType string
		text       string
	}
	var lines []line
	for _, svc := range services {
		for _, cap := range svc.Capabilities {
			c := cap
			lines = append(lines, line{serviceID: svc.ID, entityType: EntityTypeCapability, text: compose.CapabilityLine(svc.Name, &c)})
		}
	}
	for _, tool := range tools {
		t := tool
		serviceName := ""
		if t.Service != nil {
			serviceName = t.Service.Name
		}
		lines = append(lines, line{serviceID: t.ServiceID, entityType: EntityTypeServiceWithTool, text: compose.ToolLine(serviceName, &t)})
	}
	if len(lines) == 0 {
		return []Record{}, nil
	}

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.text
	}
	queryVec, err := p.embedQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, apierrors.NewInternalError("", err)
	}

	type scoredLine struct {
		line
		score float64
	}
	scored := make([]scoredLine, len(lines))
	for i, l := range lines {
		scored[i] = scoredLine{line: l, score: cosineUnit(vectors[i], queryVec)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	seen := map[uint]bool{}
	records := make([]Record, 0, req.Limit)
	for _, s := range scored {
		if s.score < req.MinScore {
			continue
		}
		if seen[s.serviceID] {
			continue
		}
		seen[s.serviceID] = true
		svc := serviceByID(services, s.serviceID)
		if svc == nil {
			continue
		}
		records = append(records, Record{
			ServiceID:  svc.ID,
			Score:      s.score,
			EntityType: s.entityType,
			Service:    hydrateService(svc, req.IncludeOrchestration),
		})
		if len(records) >= req.Limit {
			break
		}
	}
	return assignRanksAndTruncate(records, req.Limit), nil
}

// assignRanksAndTruncate enforces §4.7's cross-mode invariants: 1-based
// contiguous ranks, non-increasing scores, truncated to limit.
func assignRanksAndTruncate(records []Record, limit int) []Record {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	for i := range records {
		records[i].Rank = i + 1
	}
	return records
}

// cosineUnit computes cosine similarity between a and b, mapped from
// [-1,1] to [0,1] via (cos+1)/2, matching the vector index's own
// normalization (§4.4, §9 "both are acceptable provided monotonicity is
// preserved"). A zero-length vector on either side yields score 0.
func cosineUnit(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (sqrt(normA) * sqrt(normB))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return (cos + 1) / 2
}

func sqrt(v float64) float64 { return math.Sqrt(v) }
