package http

import (
	"context"
	"testing"

	"github.com/freekieb7/thimble/test"
)

func call(t *testing.T, match Match) any {
	t.Helper()

	out, err := match.Handler.invoke(context.Background(), &Request{}, match.Capture)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestRouterRegistersPerMethod(t *testing.T) {
	router := NewRouter()
	if err := router.Route("/test", Text("ok"), "put", "Delete"); err != nil {
		t.Fatal(err)
	}

	routes := router.Routes()
	test.AssertEqual(t, 2, len(routes))
	test.AssertEqual(t, "PUT/test", routes[0].Key)
	test.AssertEqual(t, "DELETE/test", routes[1].Key)

	_, ok := router.Resolve("GET", "/test")
	test.AssertTrue(t, !ok, "GET was never registered")

	match, ok := router.Resolve("put", "/test")
	test.AssertTrue(t, ok, "PUT resolves")
	test.AssertEqual(t, "ok", call(t, match))
}

func TestRouterDefaultsToGet(t *testing.T) {
	router := NewRouter()
	if err := router.Route("/test", Text("ok")); err != nil {
		t.Fatal(err)
	}

	match, ok := router.Resolve("GET", "/test")
	test.AssertTrue(t, ok, "GET resolves")
	test.AssertTrue(t, !match.Wildcard, "literal match")
	test.AssertEqual(t, "GET", match.Route.Method)
}

func TestRouterLastRegistrationWins(t *testing.T) {
	router := NewRouter()
	router.GET("/a", Text("first"))
	router.GET("/b", Text("other"))
	router.GET("/a", Text("second"))

	routes := router.Routes()
	test.AssertEqual(t, 2, len(routes))
	test.AssertEqual(t, "GET/a", routes[0].Key)

	match, _ := router.Resolve("GET", "/a")
	test.AssertEqual(t, "second", call(t, match))
}

func TestRouterWildcardCapture(t *testing.T) {
	router := NewRouter()
	router.GET("/gpio/<int>", CaptureFunc(func(req *Request, capture string) (any, error) {
		return "pin " + capture, nil
	}))

	match, ok := router.Resolve("GET", "/gpio/2")
	test.AssertTrue(t, ok, "wildcard resolves")
	test.AssertTrue(t, match.Wildcard, "wildcard flag")
	test.AssertEqual(t, "2", match.Capture)
	test.AssertEqual(t, "pin 2", call(t, match))

	for _, path := range []string{"/gpio/", "/gpio/x", "/gpio/2/extra", "/gpio/-2"} {
		_, ok := router.Resolve("GET", path)
		test.AssertTrue(t, !ok, path+" must not resolve")
	}
}

func TestRouterWildcardTieBreakIsRegistrationOrder(t *testing.T) {
	router := NewRouter()
	router.GET("/value/<string>", CaptureFunc(func(*Request, string) (any, error) { return "A", nil }))
	router.GET("/value/<int>", CaptureFunc(func(*Request, string) (any, error) { return "B", nil }))

	match, ok := router.Resolve("GET", "/value/42")
	test.AssertTrue(t, ok, "resolves")
	test.AssertEqual(t, "A", call(t, match))
	test.AssertEqual(t, "42", match.Capture)
}

func TestRouterLiteralBeatsWildcard(t *testing.T) {
	router := NewRouter()
	router.GET("/gpio/<int>", CaptureFunc(func(*Request, string) (any, error) { return "wildcard", nil }))
	router.GET("/gpio/2", Text("literal"))

	match, _ := router.Resolve("GET", "/gpio/2")
	test.AssertTrue(t, !match.Wildcard, "literal match")
	test.AssertEqual(t, "literal", call(t, match))

	match, _ = router.Resolve("GET", "/gpio/3")
	test.AssertEqual(t, "wildcard", call(t, match))
}

func TestRouterWildcardInMiddle(t *testing.T) {
	router := NewRouter()
	router.PUT("/led/<digit>/brightness", CaptureFunc(func(_ *Request, c string) (any, error) { return c, nil }))

	match, ok := router.Resolve("PUT", "/led/7/brightness")
	test.AssertTrue(t, ok, "resolves")
	test.AssertEqual(t, "7", match.Capture)

	_, ok = router.Resolve("PUT", "/led/77/brightness")
	test.AssertTrue(t, !ok, "digit is a single character")
}

func TestRouterRegistrationErrors(t *testing.T) {
	router := NewRouter()

	err := router.Route("/a/<int>/<int>", CaptureFunc(func(*Request, string) (any, error) { return nil, nil }))
	test.AssertErrorIs(t, err, ErrMultipleWildcards)

	err = router.Route("/a/<int>", Text("no capture"))
	test.AssertErrorIs(t, err, ErrCaptureMismatch)

	err = router.Route("/a", CaptureFunc(func(*Request, string) (any, error) { return nil, nil }))
	test.AssertErrorIs(t, err, ErrCaptureMismatch)

	test.AssertTrue(t, router.Route("a", Text("x")) != nil, "relative path rejected")
	test.AssertTrue(t, router.Route("/a", Handler{}) != nil, "nil handler rejected")
	test.AssertTrue(t, router.Route("/a", Func(nil)) != nil, "nil Func rejected")
	test.AssertTrue(t, router.Route("/a/<int>", CaptureFunc(nil)) != nil, "nil CaptureFunc rejected")
	test.AssertTrue(t, router.Route("/a", AsyncFunc(nil)) != nil, "nil AsyncFunc rejected")
	test.AssertTrue(t, router.Route("/a/<int>", AsyncCaptureFunc(nil)) != nil, "nil AsyncCaptureFunc rejected")
	test.AssertEqual(t, 0, len(router.Routes()))
}

func TestRouterPanicsOnInvalidConvenienceRoute(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()

	NewRouter().GET("/a/<int>", Text("no capture"))
}

func TestRouterUnknownMacroIsLiteral(t *testing.T) {
	router := NewRouter()
	router.GET("/a/<name>", Text("literal"))

	_, ok := router.Resolve("GET", "/a/bob")
	test.AssertTrue(t, !ok, "unknown macros do not match")

	_, ok = router.Resolve("GET", "/a/<name>")
	test.AssertTrue(t, ok, "the literal text still does")
}

func TestPatternTokens(t *testing.T) {
	cases := []struct {
		macro  string
		input  string
		accept bool
	}{
		{MacroDigit, "5", true},
		{MacroDigit, "", false},
		{MacroDigit, "55", false},
		{MacroInt, "0042", true},
		{MacroInt, "", false},
		{MacroInt, "4a", false},
		{MacroFloat, "3.14", true},
		{MacroFloat, "-3.14", true},
		{MacroFloat, "+7", true},
		{MacroFloat, ".5", true},
		{MacroFloat, "5.", false},
		{MacroFloat, "-", false},
		{MacroFloat, "1.2.3", false},
		{MacroString, "", true},
		{MacroString, "any/thing at all", true},
	}

	for _, c := range cases {
		p, err := compilePattern("/x/" + c.macro)
		if err != nil {
			t.Fatal(err)
		}
		_, ok := p.match("/x/" + c.input)
		if ok != c.accept {
			t.Errorf("%s on %q: expected %v, got %v", c.macro, c.input, c.accept, ok)
		}
	}
}

func BenchmarkRouterResolveWildcard(b *testing.B) {
	router := NewRouter()
	router.GET("/temperature/celsius", Text("21"))
	router.GET("/humidity", Text("40"))
	router.GET("/gpio/<int>", CaptureFunc(func(_ *Request, c string) (any, error) { return c, nil }))

	for range b.N {
		router.Resolve("GET", "/gpio/12")
	}
}
