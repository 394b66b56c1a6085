package ratelimit

import (
	"net/http"
	"strings"
)

// FallbackIdentity is used when no address-indicating header is present.
// Distinct unidentified callers then share one limiter bucket, which is the
// accepted sharing policy.
const FallbackIdentity = "unknown"

var identityHeaders = []string{"X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP"}

// CallerIdentity derives the limiter key from the first populated
// address-indicating header. X-Forwarded-For may carry a chain; only the first
// hop counts.
func CallerIdentity(r *http.Request) string {
	for _, header := range identityHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if header == "X-Forwarded-For" {
			value = strings.TrimSpace(strings.Split(value, ",")[0])
			if value == "" {
				continue
			}
		}
		return value
	}
	return FallbackIdentity
}
