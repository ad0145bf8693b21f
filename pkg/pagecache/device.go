package pagecache

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mileusna/useragent"
)

// DeviceClass partitions cache entries by client form factor.
type DeviceClass string

const (
	Desktop DeviceClass = "desktop"
	Mobile  DeviceClass = "mobile"
)

// ErrNoDeviceHints is returned when a request carries nothing to classify.
var ErrNoDeviceHints = errors.New("no device hints in request")

// DeviceDetector classifies the client of a request.
type DeviceDetector interface {
	Detect(r *http.Request) (DeviceClass, error)
}

// DeviceDetectorFunc adapts a function to DeviceDetector.
type DeviceDetectorFunc func(r *http.Request) (DeviceClass, error)

// Detect implements DeviceDetector.
func (f DeviceDetectorFunc) Detect(r *http.Request) (DeviceClass, error) {
	return f(r)
}

// UserAgentDetector checks client hints, then CDN viewer headers, then the
// User-Agent. Tablets are served the mobile page.
type UserAgentDetector struct{}

// Detect implements DeviceDetector.
func (UserAgentDetector) Detect(r *http.Request) (DeviceClass, error) {
	if r.Header.Get("Sec-CH-UA-Mobile") == "?1" {
		return Mobile, nil
	}
	if isTrue(r.Header.Get("CloudFront-Is-Mobile-Viewer")) || isTrue(r.Header.Get("CloudFront-Is-Tablet-Viewer")) {
		return Mobile, nil
	}

	ua := r.UserAgent()
	if strings.TrimSpace(ua) == "" {
		return Desktop, ErrNoDeviceHints
	}

	parsed := useragent.Parse(ua)
	if parsed.Mobile || parsed.Tablet {
		return Mobile, nil
	}
	return Desktop, nil
}

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
