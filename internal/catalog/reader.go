package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Reader is the read-only projection of the catalog exposed to C5 and C7
// (§4.1). A Reader is bound to one *gorm.DB session; NewSessionReader
// opens a transactional snapshot so every read inside one API call
// observes a consistent view (§4.1 "All reads observe a consistent
// snapshot for the duration of one API call").
type Reader struct {
	db *gorm.DB
}

// NewReader wraps the manager's top-level connection (used outside
// per-request scope, e.g. by the lifecycle manager's background rebuild).
func NewReader(mgr *Manager) *Reader {
	return &Reader{db: mgr.DB()}
}

// NewSessionReader begins a read-only transaction bound to ctx and
// returns a Reader plus a function that must be called to end the
// session (commits; reads never mutate so rollback vs commit is
// immaterial, but Done always finalizes the txn).
func NewSessionReader(ctx context.Context, mgr *Manager) (reader *Reader, done func(), err error) {
	tx := mgr.DB().WithContext(ctx).Begin(&sql.TxOptions{ReadOnly: true})
	if tx.Error != nil {
		return nil, func() {}, tx.Error
	}
	return &Reader{db: tx}, func() { tx.Commit() }, nil
}

// ActiveServices returns active services with capabilities, industries,
// integration details and agent protocol eager-loaded, ordered by id for
// a deterministic build order (§4.1, §4.2 Service text composition needs
// capabilities+industries).
func (r *Reader) ActiveServices(ctx context.Context) ([]Service, error) {
	var services []Service
	err := r.db.WithContext(ctx).
		Where("status = ?", ServiceStatusActive).
		Preload("Capabilities").
		Preload("Industries").
		Preload("IntegrationDetails").
		Preload("AgentProtocol").
		Order("id asc").
		Find(&services).Error
	return services, err
}

// ActiveTools returns tools whose own Active flag is true AND whose
// parent service is active (§3 Tool invariant), with the parent Service
// eager-loaded.
func (r *Reader) ActiveTools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	err := r.db.WithContext(ctx).
		Joins("JOIN services ON services.id = tools.service_id").
		Where("tools.active = ? AND services.status = ?", true, ServiceStatusActive).
		Preload("Service").
		Order("tools.id asc").
		Find(&tools).Error
	return tools, err
}

func (r *Reader) ServiceByID(ctx context.Context, id uint) (*Service, error) {
	var svc Service
	err := r.db.WithContext(ctx).
		Preload("Capabilities").
		Preload("Industries").
		Preload("IntegrationDetails").
		Preload("AgentProtocol").
		Preload("Tools").
		First(&svc, id).Error
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *Reader) ToolByID(ctx context.Context, id uint) (*Tool, error) {
	var tool Tool
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Service.Capabilities").
		Preload("Service.Industries").
		Preload("Service.IntegrationDetails").
		Preload("Service.AgentProtocol").
		Preload("Service.Tools").
		First(&tool, id).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *Reader) ServicesByIDs(ctx context.Context, ids []uint) ([]Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var services []Service
	err := r.db.WithContext(ctx).
		Preload("Capabilities").
		Preload("Industries").
		Preload("IntegrationDetails").
		Preload("AgentProtocol").
		Preload("Tools").
		Where("id IN ?", ids).
		Find(&services).Error
	return services, err
}

// QueryHash deterministically hashes a query string for the feedback
// query-match signal (§4.6) and for dedup by (principal, query_hash,
// service_id, second-of-timestamp) (§8).
func QueryHash(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// RecordFeedback persists one append-only FeedbackEvent (§4.1, §3). The
// write uses a short, independent transaction — feedback writes must
// never block or fail a search response (§7 "Feedback-write failures are
// logged and swallowed").
func (r *Reader) RecordFeedback(ctx context.Context, query string, selectedServiceID uint, rank int, clickThrough bool, principalID string, satisfaction *float64) error {
	event := FeedbackEvent{
		Query:             query,
		QueryHash:         QueryHash(query),
		SelectedServiceID: selectedServiceID,
		Rank:              rank,
		ClickThrough:      clickThrough,
		UserSatisfaction:  satisfaction,
		PrincipalID:       principalID,
		CreatedAt:         time.Now(),
	}
	return r.db.WithContext(ctx).Create(&event).Error
}

// FeedbackAggregate is one service's rolled-up feedback signal inputs
// over a window (§4.6 table: CTR, Recency, Popularity inputs).
type FeedbackAggregate struct {
	ServiceID       uint
	Impressions     int
	Clicks          int
	LastInteraction time.Time
}

// FeedbackAggregates returns per-service impression/click counts and the
// most recent interaction timestamp over the given window, restricted to
// serviceIDs (§4.1).
func (r *Reader) FeedbackAggregates(ctx context.Context, serviceIDs []uint, window time.Duration) (map[uint]FeedbackAggregate, error) {
	out := make(map[uint]FeedbackAggregate, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return out, nil
	}

	type row struct {
		SelectedServiceID uint
		Impressions       int
		Clicks            int
		LastInteraction   time.Time
	}
	var rows []row
	cutoff := time.Now().Add(-window)
	err := r.db.WithContext(ctx).
		Model(&FeedbackEvent{}).
		Select("selected_service_id, count(*) as impressions, sum(case when click_through then 1 else 0 end) as clicks, max(created_at) as last_interaction").
		Where("selected_service_id IN ? AND created_at >= ?", serviceIDs, cutoff).
		Group("selected_service_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rr := range rows {
		out[rr.SelectedServiceID] = FeedbackAggregate{
			ServiceID:       rr.SelectedServiceID,
			Impressions:     rr.Impressions,
			Clicks:          rr.Clicks,
			LastInteraction: rr.LastInteraction,
		}
	}
	return out, nil
}

// QueryHashMatches returns, per service, the count of prior successful
// selections for the exact same query hash (§4.1, §4.6 Query-match
// signal). "Successful" means click_through=true.
func (r *Reader) QueryHashMatches(ctx context.Context, queryHash string, serviceIDs []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return out, nil
	}
	type row struct {
		SelectedServiceID uint
		Count             int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&FeedbackEvent{}).
		Select("selected_service_id, count(*) as count").
		Where("query_hash = ? AND selected_service_id IN ? AND click_through = ?", queryHash, serviceIDs, true).
		Group("selected_service_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rr := range rows {
		out[rr.SelectedServiceID] = rr.Count
	}
	return out, nil
}

// RecordSearchQuery appends one search observation row (§3, §4.8 step 7).
func (r *Reader) RecordSearchQuery(ctx context.Context, query, principalID, searchMode string, resultCount int, elapsedMS float64) error {
	return r.db.WithContext(ctx).Create(&SearchQueryLog{
		Query:       query,
		PrincipalID: principalID,
		SearchMode:  searchMode,
		ResultCount: resultCount,
		ElapsedMS:   elapsedMS,
		CreatedAt:   time.Now(),
	}).Error
}

// RecordAPIRequest appends one request-log row (§3, §4.8 step 7) and is
// also the source of truth the rate limiter counts against (§4.8 step 3).
func (r *Reader) RecordAPIRequest(ctx context.Context, principalID, apiKeyID, endpoint, method string, status int, elapsedMS float64) error {
	return r.db.WithContext(ctx).Create(&APIRequestLog{
		PrincipalID: principalID,
		APIKeyID:    apiKeyID,
		Endpoint:    endpoint,
		Method:      method,
		Status:      status,
		ElapsedMS:   elapsedMS,
		CreatedAt:   time.Now(),
	}).Error
}

// WorkflowTriple is one (initiator, target, tool) combination with at
// least two successful invocations (§4.7 workflows mode).
type WorkflowTriple struct {
	InitiatorServiceID uint
	TargetServiceID    uint
	ToolID             uint
	InvocationCount    int
}

// WorkflowTriples returns invocation triples meeting the ">=2 successful
// invocations" threshold (§4.7). Gated behind a feature flag by the
// caller (§9 open question on InvocationLog's schema stability).
func (r *Reader) WorkflowTriples(ctx context.Context) ([]WorkflowTriple, error) {
	var rows []WorkflowTriple
	err := r.db.WithContext(ctx).
		Model(&InvocationLog{}).
		Select("initiator_service_id, target_service_id, tool_id, count(*) as invocation_count").
		Where("success = ?", true).
		Group("initiator_service_id, target_service_id, tool_id").
		Having("count(*) >= ?", 2).
		Scan(&rows).Error
	return rows, err
}

// RequestCountSince counts request-log rows for principal+key within the
// last window — the rate-limit counter of §4.8 step 3.
func (r *Reader) RequestCountSince(ctx context.Context, principalID, apiKeyID string, window time.Duration) (int64, error) {
	var count int64
	cutoff := time.Now().Add(-window)
	err := r.db.WithContext(ctx).
		Model(&APIRequestLog{}).
		Where("principal_id = ? AND api_key_id = ? AND created_at >= ?", principalID, apiKeyID, cutoff).
		Count(&count).Error
	return count, err
}

// APIKeyByHash looks up an unrevoked API key by the SHA-256 hash of its
// plaintext (§4.8 step 1, §6 "only its SHA-256 hash is persisted").
func (r *Reader) APIKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	var key APIKey
	err := r.db.WithContext(ctx).
		Where("key_hash = ? AND revoked_at IS NULL", hash).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// TouchAPIKeyLastUsed records the current time as the key's last-used
// timestamp (§6).
func (r *Reader) TouchAPIKeyLastUsed(ctx context.Context, keyID string) error {
	return r.db.WithContext(ctx).
		Model(&APIKey{}).
		Where("id = ?", keyID).
		Update("last_used_at", time.Now()).Error
}
