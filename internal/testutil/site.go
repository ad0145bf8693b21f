// Package testutil provides testing utilities for the page cache.
package testutil

import (
	"net/http"
	"sync"
	"time"
)

// SiteResponse defines the behavior of one page of the fake site.
type SiteResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration

	// PanicWith, when non-nil, makes the page panic after writing Body.
	PanicWith any
}

// Site is a configurable downstream application used behind the page cache
// middleware. It counts how often it actually renders.
type Site struct {
	mu    sync.RWMutex
	pages map[string]SiteResponse

	requestCount      int
	lastRequestHeader http.Header
}

// NewSite creates an empty site. Unknown paths answer 404.
func NewSite() *Site {
	return &Site{
		pages: make(map[string]SiteResponse),
	}
}

// SetPage configures the response for a path.
func (s *Site) SetPage(path string, resp SiteResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = resp
}

// ServeHTTP implements http.Handler.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requestCount++
	s.lastRequestHeader = r.Header.Clone()
	resp, ok := s.pages[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		resp = NewNotFoundPage()
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}

	if resp.PanicWith != nil {
		panic(resp.PanicWith)
	}
}

// RequestCount returns the number of requests the site rendered.
func (s *Site) RequestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestCount
}

// LastRequestHeader returns the headers of the most recent request.
func (s *Site) LastRequestHeader() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRequestHeader
}

// Reset clears the request counters.
func (s *Site) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestCount = 0
	s.lastRequestHeader = nil
}

// NewHTMLPage creates a 200 OK HTML page.
func NewHTMLPage(body string) SiteResponse {
	return SiteResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		},
	}
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(body string) SiteResponse {
	return SiteResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundPage creates a 404 HTML page.
func NewNotFoundPage() SiteResponse {
	return SiteResponse{
		StatusCode: http.StatusNotFound,
		Body:       "<html><body>not found</body></html>",
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		},
	}
}

// NewServerErrorPage creates a 500 HTML page.
func NewServerErrorPage() SiteResponse {
	return SiteResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "<html><body>error</body></html>",
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		},
	}
}

// NewPermanentRedirect creates a 301 response to location.
func NewPermanentRedirect(location string) SiteResponse {
	return SiteResponse{
		StatusCode: http.StatusMovedPermanently,
		Headers: map[string]string{
			"Location": location,
		},
	}
}
