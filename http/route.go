package http

import (
	"errors"
)

var ErrCaptureMismatch = errors.New("http: handler capture does not match path wildcard")

// Route is one table entry. Key is the uppercase method followed by the path
// as registered.
type Route struct {
	Method  string
	Path    string
	Key     string
	Handler Handler

	pattern *pattern
}

func (route *Route) Wildcard() bool {
	return route.pattern != nil
}

// Match is a resolved route. Capture is only meaningful when Wildcard is set.
type Match struct {
	Route    *Route
	Handler  Handler
	Capture  string
	Wildcard bool
}
