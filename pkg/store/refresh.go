package store

import (
	"net/http"
	"strings"
)

const (
	// RefreshToken marks a request that must bypass and rebuild its cache entry.
	RefreshToken = "refreshcache"

	// RefreshHeader carries RefreshToken for clients that cannot change their User-Agent.
	RefreshHeader = "X-Refresh-Cache"

	// LegacyRefreshHeader is the header name older clients send.
	LegacyRefreshHeader = "Wis-Refreshcache"
)

// IsRefreshRequest reports whether r asks for its cached entry to be dropped.
func IsRefreshRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if strings.Contains(r.UserAgent(), RefreshToken) {
		return true
	}
	return r.Header.Get(RefreshHeader) == RefreshToken ||
		r.Header.Get(LegacyRefreshHeader) == RefreshToken
}
