package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for requests that carry no client address.
const UnknownClient = "unknown"

// ClientKey derives the bucket key for r: the first entry of X-Forwarded-For,
// else X-Real-IP, else UnknownClient.
//
// The headers are trusted as-is; deploy behind a proxy that overwrites them.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownClient
}
