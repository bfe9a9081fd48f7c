package http

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Reply is a (body, status) handler result. The content type is defaulted.
type Reply struct {
	Body   any
	Status int
}

// TypedReply is a (body, status, content type) handler result, used verbatim.
type TypedReply struct {
	Body        any
	Status      int
	ContentType string
}

func Status(body any, status int) Reply {
	return Reply{Body: body, Status: status}
}

func Typed(body any, status int, contentType string) TypedReply {
	return TypedReply{Body: body, Status: status, ContentType: contentType}
}

// normalize turns whatever a handler returned into a Response.
func normalize(out any, defaultContentType string) Response {
	switch v := out.(type) {
	case TypedReply:
		return Response{Status: v.Status, Body: textOf(v.Body), ContentType: v.ContentType}
	case *TypedReply:
		return normalize(*v, defaultContentType)
	case Reply:
		return Response{Status: v.Status, Body: textOf(v.Body), ContentType: defaultContentType}
	case *Reply:
		return normalize(*v, defaultContentType)
	default:
		return Response{Status: StatusOK, Body: textOf(out), ContentType: defaultContentType}
	}
}

func textOf(body any) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

// dispatch invokes the matched handler and normalizes its result. A handler
// error or panic becomes a bare 500.
func (s *Server) dispatch(ctx context.Context, match Match, req *Request) (res Response, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.ErrorContext(ctx, "handler panicked",
				"method", req.Method, "path", req.Path, "panic", r, "stack", string(debug.Stack()))
			res, failed = Response{Status: StatusInternalServerError, ContentType: s.Config.DefaultContentType}, true
		}
	}()

	handlerCtx := ctx
	if !match.Handler.Suspends() {
		handlerCtx = Detach(ctx)
	}

	out, err := match.Handler.invoke(handlerCtx, req, match.Capture)
	if err != nil {
		s.Logger.ErrorContext(ctx, "handler failed",
			"method", req.Method, "path", req.Path, "error", err)
		return Response{Status: StatusInternalServerError, ContentType: s.Config.DefaultContentType}, true
	}

	return normalize(out, s.Config.DefaultContentType), false
}
