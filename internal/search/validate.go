package search

import (
	"strings"

	"github.com/kpath-io/kpath-search/internal/apierrors"
)

var validModes = map[Mode]bool{
	ModeAgentsOnly:     true,
	ModeToolsOnly:      true,
	ModeAgentsAndTools: true,
	ModeWorkflows:      true,
	ModeCapabilities:   true,
}

// Validate enforces the request constraints of §4.7, returning a
// ValidationError with field-level messages on the first pass of
// failures found (§4.8 step 4, §7).
func Validate(req *Request) error {
	fields := map[string]string{}

	if strings.TrimSpace(req.Query) == "" {
		fields["query"] = "query must not be empty"
	}

	if req.Limit == 0 {
		req.Limit = 10
	}
	if req.Limit < 1 || req.Limit > 100 {
		fields["limit"] = "limit must be between 1 and 100"
	}

	if req.MinScore < 0 || req.MinScore > 1 {
		fields["min_score"] = "min_score must be between 0 and 1"
	}

	if req.SearchMode == "" {
		req.SearchMode = ModeAgentsOnly
	}
	if !validModes[req.SearchMode] {
		fields["search_mode"] = "unrecognized search_mode"
	}

	if len(fields) > 0 {
		return apierrors.NewValidationError(fields)
	}
	return nil
}
