package http

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Router maps method+path keys to handlers. Literal keys are looked up
// directly; wildcard keys are tried in registration order and the first
// match wins, even when a later pattern would match more tightly.
type Router struct {
	mu       sync.RWMutex
	routes   []*Route
	literals map[string]*Route
}

func NewRouter() *Router {
	return &Router{
		routes:   make([]*Route, 0),
		literals: make(map[string]*Route),
	}
}

// Route registers handler for path under every method given, GET when none
// are. Registering a key again replaces its handler.
func (router *Router) Route(path string, handler Handler, methods ...string) error {
	if handler.call == nil {
		return errors.New("http: nil handler")
	}
	if path == "" || path[0] != '/' {
		return fmt.Errorf("http: path %q must start with '/'", path)
	}
	if len(methods) == 0 {
		methods = []string{MethodGet}
	}

	normalized := make([]string, len(methods))
	for i, method := range methods {
		normalized[i] = strings.ToUpper(strings.TrimSpace(method))
		if normalized[i] == "" {
			return fmt.Errorf("http: empty method for %s", path)
		}
	}

	p, err := compilePattern(path)
	if err != nil {
		return fmt.Errorf("%w: %s", err, path)
	}
	if (p != nil) != handler.captures {
		return fmt.Errorf("%w: %s", ErrCaptureMismatch, path)
	}

	router.mu.Lock()
	defer router.mu.Unlock()

	for _, method := range normalized {
		key := method + path
		if existing := router.find(key); existing != nil {
			existing.Handler = handler
			continue
		}

		route := &Route{
			Method:  method,
			Path:    path,
			Key:     key,
			Handler: handler,
		}
		if p != nil {
			route.pattern = &pattern{prefix: method + p.prefix, suffix: p.suffix, accept: p.accept}
		} else {
			router.literals[key] = route
		}
		router.routes = append(router.routes, route)
	}

	return nil
}

func (router *Router) find(key string) *Route {
	if route, ok := router.literals[key]; ok {
		return route
	}
	for _, route := range router.routes {
		if route.Key == key {
			return route
		}
	}
	return nil
}

// Resolve looks up method+path: a literal key first, then every wildcard
// key in registration order.
func (router *Router) Resolve(method, path string) (Match, bool) {
	key := strings.ToUpper(method) + path

	router.mu.RLock()
	defer router.mu.RUnlock()

	if route, ok := router.literals[key]; ok {
		return Match{Route: route, Handler: route.Handler}, true
	}

	for _, route := range router.routes {
		if route.pattern == nil {
			continue
		}
		if capture, ok := route.pattern.match(key); ok {
			return Match{Route: route, Handler: route.Handler, Capture: capture, Wildcard: true}, true
		}
	}

	return Match{}, false
}

// Routes returns a snapshot of the table in registration order.
func (router *Router) Routes() []Route {
	router.mu.RLock()
	defer router.mu.RUnlock()

	routes := make([]Route, len(router.routes))
	for i, route := range router.routes {
		routes[i] = *route
	}
	return routes
}

func (router *Router) mustRoute(path string, handler Handler, methods ...string) {
	if err := router.Route(path, handler, methods...); err != nil {
		panic(fmt.Sprintf("invalid route: %v", err))
	}
}

func (router *Router) GET(path string, handler Handler) {
	router.mustRoute(path, handler, MethodGet)
}

func (router *Router) HEAD(path string, handler Handler) {
	router.mustRoute(path, handler, MethodHead)
}

func (router *Router) POST(path string, handler Handler) {
	router.mustRoute(path, handler, MethodPost)
}

func (router *Router) PUT(path string, handler Handler) {
	router.mustRoute(path, handler, MethodPut)
}

func (router *Router) PATCH(path string, handler Handler) {
	router.mustRoute(path, handler, MethodPatch)
}

func (router *Router) DELETE(path string, handler Handler) {
	router.mustRoute(path, handler, MethodDelete)
}

func (router *Router) OPTIONS(path string, handler Handler) {
	router.mustRoute(path, handler, MethodOptions)
}

func (router *Router) Any(methods []string, path string, handler Handler) {
	router.mustRoute(path, handler, methods...)
}
