// Package policy resolves page cache policies by route.
//
// A route has the form "/{controller}/{action}". A route with a policy is
// cacheable for CacheExpireSeconds; a route without one is never stored.
package policy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Sternrassler/page-cache/pkg/config"
)

// PagesKey is the settings key holding the static policy list.
const PagesKey = "Cache:CachePage:Pages"

// Policy is the caching policy of one route.
type Policy struct {
	// FilePath marks the policy as configured. An empty FilePath means the
	// route is not cached.
	FilePath string `yaml:"filePath" json:"filePath"`

	// CacheExpireSeconds is the entry TTL. Zero or less stores without expiry.
	CacheExpireSeconds int `yaml:"cacheExpireSeconds" json:"cacheExpireSeconds"`
}

// Cacheable reports whether the policy allows storing the page.
func (p Policy) Cacheable() bool {
	return p.FilePath != ""
}

// Provider looks up the policy of a route. found is false when the route has
// no policy; err is reserved for backend failures.
type Provider interface {
	Lookup(ctx context.Context, route string) (p Policy, found bool, err error)
}

// Route builds the lookup key for a controller and action.
func Route(controller, action string) string {
	return "/" + controller + "/" + action
}

// Page is one entry of the static policy list.
type Page struct {
	Route              string `yaml:"route"`
	FilePath           string `yaml:"filePath"`
	CacheExpireSeconds int    `yaml:"cacheExpireSeconds"`
}

// Static is an in-memory Provider. Routes match case-insensitively.
type Static struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewStatic creates a provider from pages. Later pages override earlier ones
// with the same route.
func NewStatic(pages ...Page) *Static {
	s := &Static{policies: make(map[string]Policy, len(pages))}
	for _, p := range pages {
		s.Set(p.Route, Policy{FilePath: p.FilePath, CacheExpireSeconds: p.CacheExpireSeconds})
	}
	return s
}

// StaticFromSettings reads the policy list at PagesKey.
func StaticFromSettings(s *config.Settings) (*Static, error) {
	var pages []Page
	if _, err := s.Decode(PagesKey, &pages); err != nil {
		return nil, err
	}
	for i, p := range pages {
		if !strings.HasPrefix(p.Route, "/") {
			return nil, fmt.Errorf("page %d: route %q must start with /", i, p.Route)
		}
	}
	return NewStatic(pages...), nil
}

// Set adds or replaces the policy of route.
func (s *Static) Set(route string, p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[normalize(route)] = p
}

// Len returns the number of configured routes.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.policies)
}

// Lookup implements Provider.
func (s *Static) Lookup(_ context.Context, route string) (Policy, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[normalize(route)]
	return p, ok, nil
}

func normalize(route string) string {
	return strings.ToLower(strings.TrimSpace(route))
}
