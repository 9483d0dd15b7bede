package search

import (
	"github.com/kpath-io/kpath-search/internal/catalog"
)

// hydrateService projects a catalog.Service into the response shape of
// §6. Orchestration fields (agent protocol details, tool list) are
// attached only when includeOrchestration is set (§9 "surfaced only
// when include_orchestration=true").
func hydrateService(svc *catalog.Service, includeOrchestration bool) *ServiceView {
	view := &ServiceView{
		ID:                 svc.ID,
		Name:               svc.Name,
		Description:        svc.Description,
		Endpoint:           svc.Endpoint,
		Version:            svc.Version,
		Status:             string(svc.Status),
		ToolType:           svc.ToolType,
		Visibility:         svc.Visibility,
		DefaultTimeoutMS:   svc.DefaultTimeoutMS,
		DefaultRetryPolicy: svc.DefaultRetryPolicy,
	}

	for _, cap := range svc.Capabilities {
		view.Capabilities = append(view.Capabilities, cap.Name)
	}
	for _, ind := range svc.Industries {
		view.Domains = append(view.Domains, ind.Domain)
	}

	if svc.IntegrationDetails != nil {
		d := svc.IntegrationDetails
		view.IntegrationDetails = &IntegrationDetailsView{
			Protocol:       d.Protocol,
			BaseEndpoint:   d.BaseEndpoint,
			AuthMethod:     d.AuthMethod,
			AuthConfig:     d.AuthConfig,
			RateLimitHints: d.RateLimitHints,
			Headers:        d.Headers,
			ContentTypes:   d.ContentTypes,
			HealthCheckURL: d.HealthCheckURL,
		}
	}

	if !includeOrchestration {
		return view
	}

	if svc.AgentProtocol != nil {
		p := svc.AgentProtocol
		view.AgentProtocolDetails = &AgentProtocolView{
			MessageProtocol:     p.MessageProtocol,
			ExpectedInputFormat: p.ExpectedInputFormat,
			ResponseStyle:       p.ResponseStyle,
			ToolSchema:          p.ToolSchema,
			SupportsStreaming:   p.SupportsStreaming,
			SupportsAsync:       p.SupportsAsync,
			SupportsBatch:       p.SupportsBatch,
		}
		view.InteractionModes = interactionModes(p)
	}
	for _, tool := range svc.Tools {
		view.Tools = append(view.Tools, ToolSummary{
			ToolID:      tool.ID,
			ToolName:    tool.ToolName,
			Description: tool.Description,
			Active:      tool.Active,
		})
	}
	return view
}

func interactionModes(p *catalog.AgentProtocol) []string {
	var modes []string
	if p.SupportsStreaming {
		modes = append(modes, "streaming")
	}
	if p.SupportsAsync {
		modes = append(modes, "async")
	}
	if p.SupportsBatch {
		modes = append(modes, "batch")
	}
	if len(modes) == 0 {
		modes = append(modes, "sync")
	}
	return modes
}

func serviceByID(services []catalog.Service, id uint) *catalog.Service {
	for i := range services {
		if services[i].ID == id {
			return &services[i]
		}
	}
	return nil
}
