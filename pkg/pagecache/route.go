package pagecache

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteResolver maps a handled request to its controller and action.
// It runs after the downstream handler, when routing information is final.
type RouteResolver interface {
	ResolveRoute(r *http.Request) (controller, action string, ok bool)
}

// RouteResolverFunc adapts a function to RouteResolver.
type RouteResolverFunc func(r *http.Request) (string, string, bool)

// ResolveRoute implements RouteResolver.
func (f RouteResolverFunc) ResolveRoute(r *http.Request) (string, string, bool) {
	return f(r)
}

// Route names the controller and action behind a chi route pattern.
type Route struct {
	Controller string
	Action     string
}

// ChiRoutes resolves routes from the chi routing context. Patterns found in
// the map win; otherwise the "controller" and "action" URL parameters are used.
type ChiRoutes map[string]Route

// ResolveRoute implements RouteResolver.
func (c ChiRoutes) ResolveRoute(r *http.Request) (string, string, bool) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "", "", false
	}

	if route, ok := c[rctx.RoutePattern()]; ok && route.Controller != "" && route.Action != "" {
		return route.Controller, route.Action, true
	}

	controller := rctx.URLParam("controller")
	action := rctx.URLParam("action")
	if controller == "" || action == "" {
		return "", "", false
	}
	return controller, action, true
}
