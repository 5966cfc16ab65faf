package ws

import (
	"net/http"
	"strings"
)

// originChecker builds the upgrade origin policy. An empty allow-list admits
// every origin; requests without an Origin header (non-browser clients) are
// always admitted.
func originChecker(allowed []string) func(*http.Request) bool {
	normalized := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin != "" {
			normalized[origin] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(normalized) == 0 {
			return true
		}
		origin = strings.ToLower(strings.TrimRight(origin, "/"))
		_, ok := normalized[origin]
		return ok
	}
}
