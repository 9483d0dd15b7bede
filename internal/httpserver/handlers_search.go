package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kpath-io/kpath-search/internal/apierrors"
	"github.com/kpath-io/kpath-search/internal/search"
)

// searchRequestBody mirrors the POST /search JSON body of §6; GET
// requests populate the same fields from query parameters.
type searchRequestBody struct {
	Query                string   `json:"query"`
	Limit                int      `json:"limit"`
	MinScore             float64  `json:"min_score"`
	Domains              []string `json:"domains"`
	Capabilities         []string `json:"capabilities"`
	IncludeOrchestration bool     `json:"include_orchestration"`
	SearchMode           string   `json:"search_mode"`
}

// handleSearch implements GET/POST /search (§4.8, §6).
func (b *Base) handleSearch(w ErrorResponseWriter, r *http.Request) {
	var body searchRequestBody
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		body.Query = q.Get("query")
		body.SearchMode = q.Get("search_mode")
		if limit := q.Get("limit"); limit != "" {
			body.Limit, _ = strconv.Atoi(limit)
		}
		if minScore := q.Get("min_score"); minScore != "" {
			body.MinScore, _ = strconv.ParseFloat(minScore, 64)
		}
		if domains := q.Get("domains"); domains != "" {
			body.Domains = strings.Split(domains, ",")
		}
		if caps := q.Get("capabilities"); caps != "" {
			body.Capabilities = strings.Split(caps, ",")
		}
		body.IncludeOrchestration = q.Get("include_orchestration") == "true"
	} else {
		if err := DecodeJSONBody(r, &body); err != nil {
			w.RespondWithError(err)
			return
		}
	}

	req := search.Request{
		Query:                body.Query,
		Limit:                body.Limit,
		MinScore:             body.MinScore,
		Domains:              body.Domains,
		Capabilities:         body.Capabilities,
		IncludeOrchestration: body.IncludeOrchestration,
		SearchMode:           search.Mode(body.SearchMode),
	}
	if err := search.Validate(&req); err != nil {
		w.RespondWithError(err)
		return
	}

	principal, _ := PrincipalFrom(r.Context())
	resp, err := b.Planner.Plan(r.Context(), principal.UserID, req)
	if err != nil {
		w.RespondWithError(err)
		return
	}

	go b.Reader.RecordSearchQuery(context.WithoutCancel(r.Context()), req.Query, principal.RawID, string(req.SearchMode), resp.TotalResults, resp.SearchTimeMS)

	RespondWithJSON(w, http.StatusOK, resp)
}

// feedbackType enumerates §6's feedback_type wire values.
type feedbackType string

const (
	feedbackClick       feedbackType = "click"
	feedbackSelect      feedbackType = "select"
	feedbackRelevant    feedbackType = "relevant"
	feedbackNotRelevant feedbackType = "not_relevant"
)

// feedbackRequestBody mirrors POST /search/feedback's body exactly as
// §6 specifies it (§4.8 step 6, §3 FeedbackEvent).
type feedbackRequestBody struct {
	Query        string       `json:"query"`
	ServiceID    uint         `json:"service_id"`
	Rank         int          `json:"rank"`
	FeedbackType feedbackType `json:"feedback_type"`
	Score        *float64     `json:"score"`
}

// handleFeedback implements POST /search/feedback: persists a
// FeedbackEvent and invalidates the ranker's cache entry for the
// affected service (§4.1, §4.6 "feedback writes invalidate the cache
// entries of the services named in the event").
func (b *Base) handleFeedback(w ErrorResponseWriter, r *http.Request) {
	var body feedbackRequestBody
	if err := DecodeJSONBody(r, &body); err != nil {
		w.RespondWithError(err)
		return
	}
	if strings.TrimSpace(body.Query) == "" || body.ServiceID == 0 {
		w.RespondWithError(apierrors.NewValidationError(map[string]string{
			"query":      "must not be empty",
			"service_id": "must be a valid service id",
		}))
		return
	}

	clickThrough, satisfaction, err := translateFeedbackType(body.FeedbackType, body.Score)
	if err != nil {
		w.RespondWithError(apierrors.NewValidationError(map[string]string{"feedback_type": err.Error()}))
		return
	}

	principal, _ := PrincipalFrom(r.Context())
	if err := b.Reader.RecordFeedback(r.Context(), body.Query, body.ServiceID, body.Rank, clickThrough, principal.RawID, satisfaction); err != nil {
		w.RespondWithError(apierrors.NewInternalError("", err))
		return
	}
	b.Ranker.InvalidateForServices([]uint{body.ServiceID})

	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// translateFeedbackType maps §6's four-value feedback_type enum onto
// the click-through/satisfaction signals rank.Ranker consumes (§4.6):
// click and select both register as a click-through event; relevant
// and not_relevant carry no click-through but set an explicit
// satisfaction score at the 1.0/0.0 extremes, overridable by an
// optional caller-supplied score.
func translateFeedbackType(ft feedbackType, score *float64) (clickThrough bool, satisfaction *float64, err error) {
	switch ft {
	case feedbackClick, feedbackSelect:
		return true, score, nil
	case feedbackRelevant:
		if score != nil {
			return false, score, nil
		}
		v := 1.0
		return false, &v, nil
	case feedbackNotRelevant:
		if score != nil {
			return false, score, nil
		}
		v := 0.0
		return false, &v, nil
	default:
		return false, nil, fmt.Errorf("must be one of click, select, relevant, not_relevant")
	}
}

// handleStatus implements GET /search/status, reporting the lifecycle
// state and index sizes (§4.8, §4.5).
func (b *Base) handleStatus(w ErrorResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"state":              string(b.Lifecycle.State()),
		"service_index_size": b.Lifecycle.ServiceIndex().Len(),
		"tool_index_size":    b.Lifecycle.ToolIndex().Len(),
	})
}

// handleRebuild implements POST /search/rebuild, an admin-scoped full
// recomputation of both indexes (§4.5).
func (b *Base) handleRebuild(w ErrorResponseWriter, r *http.Request) {
	if err := b.Lifecycle.Rebuild(r.Context()); err != nil {
		w.RespondWithError(apierrors.NewInternalError("", err))
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}
