package pagecache

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var (
	// deniedURLs matches pages that are never cached, anywhere in host+path.
	deniedURLs = regexp.MustCompile(`(?is)(notfound|login|404|WIS|content|images|logo|well-know|rss|wp)`)

	staticExtensions = regexp.MustCompile(`(?is)\.(txt|css|js|ico|jpg|jpeg|png|bmp|gif|svg|webp|eot|ttf|woff|woff2|aspx|xml|html|json|mp4|mp3|map|config)$`)
)

// Classifier decides whether a request/response pair may be cached.
// It is safe for concurrent use.
type Classifier struct {
	exclude *regexp.Regexp
}

// NewClassifier compiles the operator exclusion pattern. An empty pattern
// disables the exclusion rule.
func NewClassifier(excludePattern string) (*Classifier, error) {
	c := &Classifier{}
	if strings.TrimSpace(excludePattern) == "" {
		return c, nil
	}

	re, err := regexp.Compile("(?is)" + excludePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion pattern %q: %w", excludePattern, err)
	}
	c.exclude = re
	return c, nil
}

// IsCacheable reports whether a response to method on rawURL (host+path)
// with the given status may be cached.
func (c *Classifier) IsCacheable(method, rawURL string, status int) bool {
	if deniedURLs.MatchString(rawURL) {
		return false
	}
	if status != http.StatusOK {
		return false
	}
	if strings.EqualFold(method, http.MethodPost) {
		return false
	}
	if staticExtensions.MatchString(rawURL) {
		return false
	}
	if c.exclude != nil {
		return !c.exclude.MatchString(rawURL)
	}
	return true
}
