package search

import (
	"strings"

	"github.com/kpath-io/kpath-search/internal/catalog"
)

// matchesDomains reports whether svc carries at least one of the
// requested domains, case-insensitive (§4.7 "apply domain/capability
// filters (case-insensitive...)"). An empty filter list always matches.
func matchesDomains(svc *catalog.Service, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	for _, want := range domains {
		for _, tag := range svc.Industries {
			if strings.EqualFold(tag.Domain, want) {
				return true
			}
		}
	}
	return false
}

// matchesCapabilities reports whether svc has a capability whose
// description contains, as a case-insensitive substring, any of the
// requested capability filter terms (§4.7 "capability filter matches
// substring of capability description"). An empty filter list always
// matches.
func matchesCapabilities(svc *catalog.Service, capabilities []string) bool {
	if len(capabilities) == 0 {
		return true
	}
	for _, want := range capabilities {
		wantLower := strings.ToLower(want)
		for _, cap := range svc.Capabilities {
			if strings.Contains(strings.ToLower(cap.Description), wantLower) {
				return true
			}
		}
	}
	return false
}
