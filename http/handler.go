package http

import (
	"context"
)

type handlerFunc func(ctx context.Context, req *Request, capture string) (any, error)

// Handler is a route target. Whether it takes a wildcard capture and whether
// it may suspend is fixed when it is constructed, never inferred from the
// function.
// A nil function gives the zero Handler, which routes reject.
type Handler struct {
	call     handlerFunc
	captures bool
	suspends bool
}

// Func wraps a handler that runs to completion without suspending.
func Func(fn func(req *Request) (any, error)) Handler {
	if fn == nil {
		return Handler{}
	}
	return Handler{
		call: func(_ context.Context, req *Request, _ string) (any, error) {
			return fn(req)
		},
	}
}

// CaptureFunc is Func for routes with a wildcard.
func CaptureFunc(fn func(req *Request, capture string) (any, error)) Handler {
	if fn == nil {
		return Handler{}
	}
	return Handler{
		call: func(_ context.Context, req *Request, capture string) (any, error) {
			return fn(req, capture)
		},
		captures: true,
	}
}

// AsyncFunc wraps a handler that may suspend through Await or Sleep using
// the context it is given. The connection waits for it to return.
func AsyncFunc(fn func(ctx context.Context, req *Request) (any, error)) Handler {
	if fn == nil {
		return Handler{}
	}
	return Handler{
		call: func(ctx context.Context, req *Request, _ string) (any, error) {
			return fn(ctx, req)
		},
		suspends: true,
	}
}

// AsyncCaptureFunc is AsyncFunc for routes with a wildcard.
func AsyncCaptureFunc(fn func(ctx context.Context, req *Request, capture string) (any, error)) Handler {
	if fn == nil {
		return Handler{}
	}
	return Handler{
		call:     fn,
		captures: true,
		suspends: true,
	}
}

// Text is a Func that always answers with body.
func Text(body string) Handler {
	return Func(func(*Request) (any, error) {
		return body, nil
	})
}

func (h Handler) Captures() bool {
	return h.call != nil && h.captures
}

// Suspends reports whether h may suspend its task. Direct handlers are run
// on a ctx detached from the loop.
func (h Handler) Suspends() bool {
	return h.call != nil && h.suspends
}

// invoke runs h with ctx as given; dispatch detaches ctx from the loop for
// direct handlers.
func (h Handler) invoke(ctx context.Context, req *Request, capture string) (any, error) {
	return h.call(ctx, req, capture)
}
