package pagecache

import (
	"net/http"
	"net/url"
	"strings"
)

// KeyGenerator derives cache keys from requests.
type KeyGenerator struct {
	// Prefix namespaces all keys.
	Prefix string

	// Detector classifies the client. Nil selects UserAgentDetector.
	Detector DeviceDetector

	// LegacySeparatorOnError joins path segments with ':' when detection fails.
	LegacySeparatorOnError bool
}

// MakeKey builds the key for a decoded path, raw query (without '?') and
// device. Characters that are not valid in a URL path are percent-encoded.
// The host does not participate; keys are namespaced by Prefix.
//
// Format: {prefix}{path}{?query}:{device}
func (g KeyGenerator) MakeKey(host, path, rawQuery string, device DeviceClass) string {
	return g.buildKey(path, "-", rawQuery, device)
}

// KeyForRequest returns the key and device class of r. Detection failures
// fall back to Desktop.
func (g KeyGenerator) KeyForRequest(r *http.Request) (string, DeviceClass) {
	detector := g.Detector
	if detector == nil {
		detector = UserAgentDetector{}
	}

	separator := "-"
	device, err := detector.Detect(r)
	if err != nil {
		DeviceFallbacks.Inc()
		device = Desktop
		if g.LegacySeparatorOnError {
			separator = ":"
		}
	}

	return g.buildKey(r.URL.Path, separator, r.URL.RawQuery, device), normalizeDevice(device)
}

func (g KeyGenerator) buildKey(path, separator, rawQuery string, device DeviceClass) string {
	var b strings.Builder
	b.WriteString(g.Prefix)
	b.WriteString(normalizePath(path, separator))
	if rawQuery != "" {
		b.WriteByte('?')
		b.WriteString(rawQuery)
	}
	b.WriteByte(':')
	b.WriteString(string(normalizeDevice(device)))
	return b.String()
}

// normalizePath escapes the decoded path so a literal '?' (or '%') in it
// cannot read as the query part of the key.
func normalizePath(path, separator string) string {
	trimmed := strings.TrimLeft(path, "/")
	if trimmed == "" {
		return "home"
	}
	escaped := (&url.URL{Path: trimmed}).EscapedPath()
	return strings.ReplaceAll(escaped, "/", separator)
}

func normalizeDevice(d DeviceClass) DeviceClass {
	if d == Mobile {
		return Mobile
	}
	return Desktop
}
