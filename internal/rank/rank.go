// Package rank implements the feedback-adjusted reranking of §4.6: raw
// similarity scores are blended with click-through, recency, popularity,
// and per-query historical signals.
package rank

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kpath-io/kpath-search/internal/catalog"
)

const feedbackWindow = 30 * 24 * time.Hour

// Scored is one candidate carrying its raw similarity score, threaded
// through reranking and back out in final-score order.
type Scored struct {
	ServiceID uint
	BaseScore float64
}

// Ranker recomputes feedback scores for a candidate set and blends them
// with base similarity scores (§4.6). A short in-process cache avoids
// recomputing aggregates on every request within a burst.
type Ranker struct {
	reader *catalog.Reader
	cache  *feedbackCache
}

func New(reader *catalog.Reader) *Ranker {
	return &Ranker{reader: reader, cache: newFeedbackCache(5 * time.Minute)}
}

// InvalidateForServices drops cached feedback scores for the given
// service ids, called after a feedback write touching them (§4.6 "cache
// is pure optimization and must be invalidated on feedback writes").
func (r *Ranker) InvalidateForServices(serviceIDs []uint) {
	r.cache.invalidate(serviceIDs)
}

// Rerank computes final_score = 0.7*base + 0.3*feedback for each
// candidate and returns them re-sorted descending by final score (§4.6).
// query is used both as a cache key component and to compute the
// query-match signal.
func (r *Ranker) Rerank(ctx context.Context, query string, candidates []Scored) ([]Scored, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	serviceIDs := make([]uint, len(candidates))
	for i, c := range candidates {
		serviceIDs[i] = c.ServiceID
	}
	queryHash := catalog.QueryHash(query)

	feedbackScores, cached := r.cache.get(queryHash, serviceIDs)
	if !cached {
		var err error
		feedbackScores, err = r.computeFeedbackScores(ctx, queryHash, serviceIDs)
		if err != nil {
			return nil, err
		}
		r.cache.put(queryHash, serviceIDs, feedbackScores)
	}

	out := make([]Scored, len(candidates))
	for i, c := range candidates {
		fb := feedbackScores[c.ServiceID]
		out[i] = Scored{ServiceID: c.ServiceID, BaseScore: 0.7*c.BaseScore + 0.3*fb}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].BaseScore > out[b].BaseScore })
	return out, nil
}

func (r *Ranker) computeFeedbackScores(ctx context.Context, queryHash string, serviceIDs []uint) (map[uint]float64, error) {
	aggregates, err := r.reader.FeedbackAggregates(ctx, serviceIDs, feedbackWindow)
	if err != nil {
		return nil, err
	}
	queryMatches, err := r.reader.QueryHashMatches(ctx, queryHash, serviceIDs)
	if err != nil {
		return nil, err
	}

	ctrs := make(map[uint]float64, len(serviceIDs))
	recencies := make(map[uint]float64, len(serviceIDs))
	popularities := make(map[uint]float64, len(serviceIDs))
	maxCTR, maxPopularity, maxQueryMatch := 0.0, 0.0, 0.0

	now := time.Now()
	for _, id := range serviceIDs {
		agg, ok := aggregates[id]
		if !ok || agg.Impressions == 0 {
			continue
		}
		ctr := float64(agg.Clicks) / float64(agg.Impressions)
		ctrs[id] = ctr
		if ctr > maxCTR {
			maxCTR = ctr
		}

		recencies[id] = recencyBucket(now.Sub(agg.LastInteraction))

		popularity := float64(agg.Impressions)
		popularities[id] = popularity
		if popularity > maxPopularity {
			maxPopularity = popularity
		}
	}
	for _, count := range queryMatches {
		if float64(count) > maxQueryMatch {
			maxQueryMatch = float64(count)
		}
	}

	scores := make(map[uint]float64, len(serviceIDs))
	for _, id := range serviceIDs {
		ctr := normalize(ctrs[id], maxCTR)
		recency := recencies[id]
		popularity := normalizeLog(popularities[id], maxPopularity)
		queryMatch := normalize(float64(queryMatches[id]), maxQueryMatch)

		score := 0.3*ctr + 0.2*recency + 0.1*popularity + 0.4*queryMatch
		scores[id] = clip(score, 0, 1)
	}
	return scores, nil
}

func normalize(value, max float64) float64 {
	if max == 0 {
		return 0
	}
	return value / max
}

func normalizeLog(value, max float64) float64 {
	if max == 0 {
		return 0
	}
	return math.Log1p(value) / math.Log1p(max)
}

func recencyBucket(since time.Duration) float64 {
	days := since.Hours() / 24
	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.8
	case days <= 30:
		return 0.5
	default:
		return 0.2
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// feedbackCache is a short-lived, concurrency-safe cache of computed
// feedback scores keyed by (query hash, candidate id set) (§4.6, §5
// "the feedback score cache is concurrent-safe and may be dropped at any
// time").
type feedbackCache struct {
	mu  sync.Mutex
	ttl time.Duration
	// serviceKeys tracks, for each service id, which cache keys
	// currently hold a score for it, so InvalidateForServices can drop
	// exactly the affected entries.
	entries     map[string]cacheEntry
	serviceKeys map[uint]map[string]struct{}
}

type cacheEntry struct {
	scores    map[uint]float64
	expiresAt time.Time
}

func newFeedbackCache(ttl time.Duration) *feedbackCache {
	return &feedbackCache{
		ttl:         ttl,
		entries:     map[string]cacheEntry{},
		serviceKeys: map[uint]map[string]struct{}{},
	}
}

func cacheKey(queryHash string, serviceIDs []uint) string {
	sorted := append([]uint(nil), serviceIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	key := queryHash
	for _, id := range sorted {
		key += ":" + itoa(id)
	}
	return key
}

func itoa(v uint) string {
	if v == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[i:])
}

func (c *feedbackCache) get(queryHash string, serviceIDs []uint) (map[uint]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey(queryHash, serviceIDs)]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.scores, true
}

func (c *feedbackCache) put(queryHash string, serviceIDs []uint, scores map[uint]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(queryHash, serviceIDs)
	c.entries[key] = cacheEntry{scores: scores, expiresAt: time.Now().Add(c.ttl)}
	for _, id := range serviceIDs {
		if c.serviceKeys[id] == nil {
			c.serviceKeys[id] = map[string]struct{}{}
		}
		c.serviceKeys[id][key] = struct{}{}
	}
}

func (c *feedbackCache) invalidate(serviceIDs []uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range serviceIDs {
		for key := range c.serviceKeys[id] {
			delete(c.entries, key)
		}
		delete(c.serviceKeys, id)
	}
}
