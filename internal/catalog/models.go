// Package catalog is the read-mostly projection of the relational catalog
// store (§3, §4.1 of the spec). It owns the GORM models and the read
// operations C5 and C7 depend on; the catalog CRUD surface itself is an
// external collaborator per §1 — this package exposes only what the core
// search subsystem needs.
package catalog

import (
	"encoding/json"
	"time"
)

// ServiceStatus is the lifecycle status of a Service (§3).
type ServiceStatus string

const (
	ServiceStatusActive     ServiceStatus = "active"
	ServiceStatusInactive   ServiceStatus = "inactive"
	ServiceStatusDeprecated ServiceStatus = "deprecated"
)

// Service is a discoverable capability provider (§3 "Service").
type Service struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	Endpoint    string
	Version     string
	Status      ServiceStatus `gorm:"index;not null;default:active"`

	ToolType   string
	Visibility string

	DefaultTimeoutMS   int
	DefaultRetryPolicy string
	SuccessCriteria    string

	// Opaque orchestration fields (§9 open question): surfaced only when
	// include_orchestration=true, never interpreted by the core.
	AgentProtocolField json.RawMessage `gorm:"column:agent_protocol_field;type:jsonb"`
	AuthType           string
	AuthConfig         json.RawMessage `gorm:"type:jsonb"`
	ToolRecommendations json.RawMessage `gorm:"type:jsonb"`

	Capabilities       []Capability        `gorm:"constraint:OnDelete:CASCADE"`
	Industries         []IndustryTag       `gorm:"constraint:OnDelete:CASCADE"`
	IntegrationDetails *IntegrationDetails `gorm:"constraint:OnDelete:CASCADE"`
	AgentProtocol      *AgentProtocol      `gorm:"constraint:OnDelete:CASCADE"`
	Tools              []Tool              `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Capability is a short described ability of a service (§3 "Capability").
type Capability struct {
	ID           uint `gorm:"primaryKey"`
	ServiceID    uint `gorm:"index;not null"`
	Name         string
	Description  string
	InputSchema  json.RawMessage `gorm:"type:jsonb"`
	OutputSchema json.RawMessage `gorm:"type:jsonb"`
}

// IndustryTag is a (service, domain) pair (§3 "Industry/Domain tag").
type IndustryTag struct {
	ID        uint   `gorm:"primaryKey"`
	ServiceID uint   `gorm:"index;not null"`
	Domain    string `gorm:"index"`
}

// IntegrationDetails is the per-service connectivity contract (§3).
type IntegrationDetails struct {
	ID                uint `gorm:"primaryKey"`
	ServiceID         uint `gorm:"uniqueIndex;not null"`
	Protocol          string
	BaseEndpoint      string
	AuthMethod        string
	AuthConfig        json.RawMessage `gorm:"type:jsonb"`
	RateLimitHints    json.RawMessage `gorm:"type:jsonb"`
	Headers           json.RawMessage `gorm:"type:jsonb"`
	ContentTypes      json.RawMessage `gorm:"type:jsonb"`
	HealthCheckURL    string
}

// AgentProtocol is the per-service agent-facing contract (§3).
type AgentProtocol struct {
	ID                  uint `gorm:"primaryKey"`
	ServiceID           uint `gorm:"uniqueIndex;not null"`
	MessageProtocol     string
	ExpectedInputFormat string
	ResponseStyle       string
	ToolSchema          json.RawMessage `gorm:"type:jsonb"`
	SupportsStreaming   bool
	SupportsAsync       bool
	SupportsBatch       bool
}

// Tool is a named invocable operation belonging to exactly one service (§3).
type Tool struct {
	ID          uint `gorm:"primaryKey"`
	ServiceID   uint `gorm:"index:idx_tool_service_name,unique;not null"`
	Service     *Service
	ToolName    string `gorm:"index:idx_tool_service_name,unique;not null"`
	Description string

	InputSchema   json.RawMessage `gorm:"type:jsonb"`
	OutputSchema  json.RawMessage `gorm:"type:jsonb"`
	ExampleCalls  json.RawMessage `gorm:"type:jsonb"`
	ValidationRules json.RawMessage `gorm:"type:jsonb"`

	Version          string
	Active           bool `gorm:"index;not null;default:true"`
	DeprecationDate  *time.Time
	DeprecationNotice string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FeedbackEvent is an append-only record of a principal selecting a
// service at a given rank for a given query (§3 "FeedbackEvent").
type FeedbackEvent struct {
	ID                uint `gorm:"primaryKey"`
	Query             string `gorm:"index"`
	QueryHash         string `gorm:"index"`
	SelectedServiceID uint   `gorm:"index"`
	Rank              int
	ClickThrough      bool
	UserSatisfaction  *float64
	PrincipalID       string `gorm:"index"`
	CreatedAt         time.Time `gorm:"index"`
}

// SearchQueryLog is an append-only observation record (§3) used by
// analytics and by the ranker's recency/popularity signals.
type SearchQueryLog struct {
	ID          uint `gorm:"primaryKey"`
	Query       string
	PrincipalID string `gorm:"index"`
	SearchMode  string
	ResultCount int
	ElapsedMS   float64
	CreatedAt   time.Time `gorm:"index"`
}

// APIRequestLog is an append-only observation record (§3) used for rate
// limiting and request auditing.
type APIRequestLog struct {
	ID          uint `gorm:"primaryKey"`
	PrincipalID string `gorm:"index"`
	APIKeyID    string `gorm:"index"`
	Endpoint    string
	Method      string
	Status      int
	ElapsedMS   float64
	CreatedAt   time.Time `gorm:"index"`
}

// APIKey is an authentication credential (§6): the plaintext is returned
// exactly once at creation and never stored; only its SHA-256 hash is
// persisted.
type APIKey struct {
	ID                   string `gorm:"primaryKey"`
	PrincipalID          string `gorm:"index;not null"`
	KeyHash              string `gorm:"uniqueIndex;not null"`
	Scopes               string // comma-joined
	DefaultRateLimitPerHour int
	CreatedAt            time.Time
	LastUsedAt           *time.Time
	RevokedAt            *time.Time
}

// InvocationLog is an append-only record of one service invoking
// another service's tool, used only by workflows search mode (§4.7,
// §9 "the workflow-mode data source (InvocationLog) ... an implementer
// should treat workflow mode as optional and gate it behind a feature
// flag"). Not part of the canonical spec data model (§3); added here to
// give workflows mode a concrete, if provisional, home.
type InvocationLog struct {
	ID                 uint `gorm:"primaryKey"`
	InitiatorServiceID uint `gorm:"index"`
	TargetServiceID    uint `gorm:"index"`
	ToolID             uint `gorm:"index"`
	Success            bool
	CreatedAt          time.Time `gorm:"index"`
}

// AllModels lists every model migrated by Initialize (mirrors the
// teacher's AutoMigrate call list in internal/database/manager.go).
func AllModels() []any {
	return []any{
		&Service{},
		&Capability{},
		&IndustryTag{},
		&IntegrationDetails{},
		&AgentProtocol{},
		&Tool{},
		&FeedbackEvent{},
		&SearchQueryLog{},
		&APIRequestLog{},
		&APIKey{},
		&InvocationLog{},
	}
}
