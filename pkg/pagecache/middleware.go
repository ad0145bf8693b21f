package pagecache

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/page-cache/pkg/policy"
	"github.com/Sternrassler/page-cache/pkg/store"
)

// Response headers set on cache hits.
const (
	HeaderCacheHit    = "X-Cache-Hit"
	HeaderCacheURL    = "X-Cache-Url"
	HeaderCacheDevice = "X-Cache-Device"
)

const htmlContentType = "text/html; charset=utf-8"

// PageStore is the subset of store.Cache the middleware needs.
type PageStore interface {
	Get(ctx context.Context, key string, refresh bool) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) bool
}

// Middleware is the page cache in front of an http.Handler.
type Middleware struct {
	enabled    atomic.Bool
	classifier *Classifier
	keys       KeyGenerator
	cache      PageStore
	policies   policy.Provider
	routes     RouteResolver
	writer     *BackgroundWriter
	isRefresh  func(*http.Request) bool
	logger     zerolog.Logger
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithRouteResolver sets how controller and action are found. The default
// is an empty ChiRoutes.
func WithRouteResolver(r RouteResolver) Option {
	return func(m *Middleware) {
		m.routes = r
	}
}

// WithDeviceDetector replaces UserAgentDetector.
func WithDeviceDetector(d DeviceDetector) Option {
	return func(m *Middleware) {
		m.keys.Detector = d
	}
}

// WithBackgroundWriter shares a writer instead of creating one.
func WithBackgroundWriter(w *BackgroundWriter) Option {
	return func(m *Middleware) {
		m.writer = w
	}
}

// WithRefreshFunc replaces store.IsRefreshRequest as the bypass signal.
func WithRefreshFunc(fn func(*http.Request) bool) Option {
	return func(m *Middleware) {
		m.isRefresh = fn
	}
}

// New creates the middleware. It fails when the exclusion pattern does not
// compile.
func New(cfg Config, cache PageStore, policies policy.Provider, logger zerolog.Logger, opts ...Option) (*Middleware, error) {
	if cache == nil {
		panic("page store cannot be nil")
	}
	if policies == nil {
		panic("policy provider cannot be nil")
	}

	classifier, err := NewClassifier(cfg.ExcludedPathPattern)
	if err != nil {
		return nil, err
	}

	m := &Middleware{
		classifier: classifier,
		keys: KeyGenerator{
			Prefix:                 cfg.KeyPrefix,
			LegacySeparatorOnError: cfg.LegacySeparatorOnError,
		},
		cache:     cache,
		policies:  policies,
		routes:    ChiRoutes{},
		isRefresh: store.IsRefreshRequest,
		logger:    logger,
	}
	m.enabled.Store(cfg.Enabled)

	for _, opt := range opts {
		opt(m)
	}
	if m.writer == nil {
		m.writer = NewBackgroundWriter(cfg.WriteTimeout, logger)
	}

	return m, nil
}

// SetEnabled switches the cache on or off at runtime.
func (m *Middleware) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// Enabled reports whether the cache is on.
func (m *Middleware) Enabled() bool {
	return m.enabled.Load()
}

// Close waits for pending background writes until ctx ends.
func (m *Middleware) Close(ctx context.Context) error {
	return m.writer.Close(ctx)
}

// Wait blocks until pending background writes have finished.
func (m *Middleware) Wait() {
	m.writer.Wait()
}

// Handler wraps next with the page cache.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled.Load() {
			Requests.WithLabelValues(outcomeDisabled).Inc()
			next.ServeHTTP(w, r)
			return
		}

		rawURL := r.Host + r.URL.Path

		// The downstream status is unknown before it runs; classify as 200
		// and check the captured status before storing.
		if !m.classifier.IsCacheable(r.Method, rawURL, http.StatusOK) || !servable(r.Method) {
			Requests.WithLabelValues(outcomeSkipped).Inc()
			next.ServeHTTP(w, r)
			return
		}

		key, device := m.keys.KeyForRequest(r)

		if content, ok := m.cache.Get(r.Context(), key, m.isRefresh(r)); ok && strings.TrimSpace(content) != "" {
			Requests.WithLabelValues(outcomeHit).Inc()
			m.logger.Debug().
				Str("key", key).
				Str("url", rawURL).
				Str("device", string(device)).
				Msg("Cache hit")
			writeHit(w, content, rawURL, device)
			return
		}

		Requests.WithLabelValues(outcomeMiss).Inc()
		m.logger.Debug().
			Str("key", key).
			Str("url", rawURL).
			Msg("Cache miss")

		capture := newCaptureWriter(w)
		func() {
			defer capture.restore(w)
			next.ServeHTTP(capture, r)
		}()

		m.store(r, key, capture)
	})
}

func servable(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func writeHit(w http.ResponseWriter, content, rawURL string, device DeviceClass) {
	h := w.Header()
	h.Set("Content-Type", htmlContentType)
	h.Set(HeaderCacheHit, "true")
	h.Set(HeaderCacheURL, rawURL)
	h.Set(HeaderCacheDevice, string(device))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// store schedules a background write when the captured response is a
// complete HTML page and its route has a policy.
func (m *Middleware) store(r *http.Request, key string, capture *captureWriter) {
	if r.Method != http.MethodGet || capture.status != http.StatusOK {
		return
	}
	body := capture.body.String()
	if strings.TrimSpace(body) == "" {
		return
	}
	if !strings.Contains(capture.header.Get("Content-Type"), "text/html") {
		return
	}

	controller, action, ok := m.routes.ResolveRoute(r)
	if !ok {
		m.logger.Debug().Str("key", key).Msg("No route for page, not cached")
		return
	}

	route := policy.Route(controller, action)
	p, found, err := m.policies.Lookup(r.Context(), route)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("route", route).
			Msg("Policy lookup failed, page not cached")
		return
	}
	if !found || !p.Cacheable() {
		m.logger.Debug().
			Str("key", key).
			Str("route", route).
			Msg("No cache policy for route")
		return
	}

	ttl := time.Duration(p.CacheExpireSeconds) * time.Second
	page := Minify(body)

	err = m.writer.Submit(func(ctx context.Context) {
		if !m.cache.Set(ctx, key, page, ttl) {
			Writes.WithLabelValues(writeFailed).Inc()
			return
		}
		Writes.WithLabelValues(writeStored).Inc()
		m.logger.Debug().
			Str("key", key).
			Str("route", route).
			Dur("ttl", ttl).
			Int("size", len(page)).
			Msg("Page cached")
	})
	if err != nil {
		Writes.WithLabelValues(writeRejected).Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Page write rejected")
	}
}
