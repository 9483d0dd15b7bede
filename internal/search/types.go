// Package search implements the query planner (C7): it dispatches a
// validated request across one of five search modes, applies
// post-filters, reranks, and assembles response records (§4.7).
package search

import (
	"encoding/json"
	"time"
)

// Mode is one of the five dispatch strategies named in §4.7.
type Mode string

const (
	ModeAgentsOnly     Mode = "agents_only"
	ModeToolsOnly      Mode = "tools_only"
	ModeAgentsAndTools Mode = "agents_and_tools"
	ModeWorkflows      Mode = "workflows"
	ModeCapabilities   Mode = "capabilities"
)

// Request is a validated SearchRequest (§4.7, §6).
type Request struct {
	Query                string
	Limit                int
	MinScore             float64
	Domains              []string
	Capabilities         []string
	IncludeOrchestration bool
	SearchMode           Mode
}

// IntegrationDetailsView mirrors catalog.IntegrationDetails for the
// response envelope (§6).
type IntegrationDetailsView struct {
	Protocol       string          `json:"protocol"`
	BaseEndpoint   string          `json:"base_endpoint"`
	AuthMethod     string          `json:"auth_method"`
	AuthConfig     json.RawMessage `json:"auth_config,omitempty"`
	RateLimitHints json.RawMessage `json:"rate_limit_hints,omitempty"`
	Headers        json.RawMessage `json:"headers,omitempty"`
	ContentTypes   json.RawMessage `json:"content_types,omitempty"`
	HealthCheckURL string          `json:"health_check_url,omitempty"`
}

// AgentProtocolView mirrors catalog.AgentProtocol for the response
// envelope (§6), surfaced only when include_orchestration=true.
type AgentProtocolView struct {
	MessageProtocol     string          `json:"message_protocol"`
	ExpectedInputFormat string          `json:"expected_input_format"`
	ResponseStyle       string          `json:"response_style"`
	ToolSchema          json.RawMessage `json:"tool_schema,omitempty"`
	SupportsStreaming   bool            `json:"supports_streaming"`
	SupportsAsync       bool            `json:"supports_async"`
	SupportsBatch       bool            `json:"supports_batch"`
}

// ToolSummary is the tool shape nested under ServiceView.Tools (§6
// "tools:[{...}]? (only if include_orchestration)").
type ToolSummary struct {
	ToolID      uint   `json:"tool_id"`
	ToolName    string `json:"tool_name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// ServiceView is the "service" object of the common result envelope
// (§6).
type ServiceView struct {
	ID                   uint                    `json:"id"`
	Name                 string                  `json:"name"`
	Description          string                  `json:"description"`
	Endpoint             string                  `json:"endpoint"`
	Version              string                  `json:"version"`
	Status               string                  `json:"status"`
	ToolType             string                  `json:"tool_type"`
	Visibility           string                  `json:"visibility"`
	InteractionModes     []string                `json:"interaction_modes"`
	Capabilities         []string                `json:"capabilities"`
	Domains              []string                `json:"domains"`
	DefaultTimeoutMS     int                     `json:"default_timeout_ms"`
	DefaultRetryPolicy   string                  `json:"default_retry_policy"`
	IntegrationDetails   *IntegrationDetailsView `json:"integration_details"`
	AgentProtocolDetails *AgentProtocolView      `json:"agent_protocol_details"`
	Tools                []ToolSummary           `json:"tools,omitempty"`
}

// RecommendedTool is the "recommended_tool" object (§6), present only
// for tools_only / agents_and_tools records.
type RecommendedTool struct {
	ToolID               uint            `json:"tool_id"`
	ToolName             string          `json:"tool_name"`
	ToolDescription      string          `json:"tool_description"`
	InputSchema          json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema         json.RawMessage `json:"output_schema,omitempty"`
	ExampleCalls         json.RawMessage `json:"example_calls,omitempty"`
	RecommendationScore  float64         `json:"recommendation_score"`
	RecommendationReason string          `json:"recommendation_reason"`
}

// WorkflowData is the "workflow_data" object (§6), present only for
// workflows-mode records.
type WorkflowData struct {
	InitiatorID     uint   `json:"initiator_id"`
	TargetID        uint   `json:"target_id"`
	ToolID          uint   `json:"tool_id"`
	InvocationCount int    `json:"invocation_count"`
	Description     string `json:"description"`
}

// Record is one entry of the common result envelope (§6).
type Record struct {
	ServiceID       uint             `json:"service_id"`
	Score           float64          `json:"score"`
	Rank            int              `json:"rank"`
	EntityType      string           `json:"entity_type"`
	Service         *ServiceView     `json:"service,omitempty"`
	RecommendedTool *RecommendedTool `json:"recommended_tool,omitempty"`
	WorkflowData    *WorkflowData    `json:"workflow_data,omitempty"`
	Distance        *float64         `json:"distance,omitempty"`
}

// Response is the full SearchResponse envelope (§6).
type Response struct {
	Query        string    `json:"query"`
	Results      []Record  `json:"results"`
	TotalResults int       `json:"total_results"`
	SearchTimeMS float64   `json:"search_time_ms"`
	UserID       uint      `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	SearchMode   string    `json:"search_mode"`
}

const (
	EntityTypeService         = "service"
	EntityTypeServiceWithTool = "service_with_tool"
	EntityTypeWorkflow        = "workflow"
	EntityTypeCapability      = "capability"
)
