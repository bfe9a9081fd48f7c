package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/freekieb7/thimble/filesystem"
	"github.com/freekieb7/thimble/test"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestServer(files fstest.MapFS) *Server {
	s := NewServer("Thimble")
	s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.Filesystem = filesystem.NewFSFileSystem(files)
	return s
}

// exchange writes raw as a single packet on a fresh connection served by s
// and returns everything the server sent before closing. The write runs on
// its own goroutine since the server may answer without reading it all.
func exchange(t *testing.T, s *Server, raw string) string {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ServeConn(context.Background(), serverConn)
	}()

	go clientConn.Write([]byte(raw))
	out, err := io.ReadAll(clientConn)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	<-done

	return string(out)
}

func parseResponse(t *testing.T, raw string) (*nethttp.Response, string) {
	t.Helper()

	resp, err := nethttp.ReadResponse(bufio.NewReader(strings.NewReader(raw)), nil)
	if err != nil {
		t.Fatalf("invalid response %q: %v", raw, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("invalid body %q: %v", raw, err)
	}

	return resp, string(body)
}

func TestServeConnHello(t *testing.T) {
	s := newTestServer(nil)
	s.Router.GET("/hello", Text("Hello!"))

	raw := exchange(t, s, "GET /hello HTTP/1.1\r\nHost: x\r\n\r\n")

	expected := "HTTP/1.1 200 OK\r\n" +
		"Connection: close\r\n" +
		"Content-Length: 6\r\n" +
		"Content-Type: text/plain\r\n" +
		"Server: Thimble\r\n" +
		"\r\n" +
		"Hello!"
	test.AssertEqual(t, expected, raw)

	resp, body := parseResponse(t, raw)
	test.AssertEqual(t, 200, resp.StatusCode)
	test.AssertEqual(t, "Hello!", body)
	test.AssertEqual(t, int64(6), resp.ContentLength)
}

func TestServeConnBareBodyIsOK(t *testing.T) {
	s := newTestServer(nil)
	for _, path := range []string{"/", "/world", "/cleveland"} {
		s.Router.GET(path, Text("hi "+path))
	}

	for _, path := range []string{"/", "/world", "/cleveland"} {
		resp, body := parseResponse(t, exchange(t, s, "GET "+path+" HTTP/1.1\r\n\r\n"))
		test.AssertEqual(t, 200, resp.StatusCode)
		test.AssertEqual(t, "hi "+path, body)
	}
}

func TestServeConnNightlight(t *testing.T) {
	s := newTestServer(nil)
	state := "off"
	s.Router.PUT("/nightlight", Func(func(req *Request) (any, error) {
		if req.Body == "on" || req.Body == "off" {
			state = req.Body
		}
		return Status(state, StatusOK), nil
	}))

	resp, body := parseResponse(t, exchange(t, s, "PUT /nightlight HTTP/1.1\r\nHost: x\r\nContent-Length: 2\r\n\r\non"))
	test.AssertEqual(t, 200, resp.StatusCode)
	test.AssertEqual(t, "on", body)
	test.AssertEqual(t, "on", state)

	resp, _ = parseResponse(t, exchange(t, s, "GET /nightlight HTTP/1.1\r\nHost: x\r\n\r\n"))
	test.AssertEqual(t, 404, resp.StatusCode)
}

func TestServeConnWildcardCapture(t *testing.T) {
	s := newTestServer(nil)
	var captured string
	s.Router.GET("/gpio/<int>", CaptureFunc(func(req *Request, capture string) (any, error) {
		captured = capture
		return 1, nil
	}))

	resp, body := parseResponse(t, exchange(t, s, "GET /gpio/2 HTTP/1.1\r\n\r\n"))
	test.AssertEqual(t, 200, resp.StatusCode)
	test.AssertEqual(t, "1", body)
	test.AssertEqual(t, "2", captured)
}

func TestServeConnQueryAndRemoteAddr(t *testing.T) {
	s := newTestServer(nil)
	s.Router.GET("/echo", Func(func(req *Request) (any, error) {
		return req.Query["name"] + "@" + req.RemoteAddr, nil
	}))

	_, body := parseResponse(t, exchange(t, s, "GET /echo?name=thimble HTTP/1.1\r\n\r\n"))
	test.AssertEqual(t, "thimble@pipe", body)
}

func TestServeConnTypedReply(t *testing.T) {
	s := newTestServer(nil)
	s.Router.GET("/get/json", Func(func(*Request) (any, error) {
		return Typed(`{"msg": "Testing 1 2 3"}`, 200, "application/json"), nil
	}))

	resp, body := parseResponse(t, exchange(t, s, "GET /get/json HTTP/1.1\r\n\r\n"))
	test.AssertEqual(t, "application/json", resp.Header.Get("Content-Type"))
	test.AssertEqual(t, `{"msg": "Testing 1 2 3"}`, body)
}

func TestServeConnHandlerFailures(t *testing.T) {
	s := newTestServer(nil)
	s.Router.GET("/error", Func(func(*Request) (any, error) {
		return nil, errors.New("sensor unavailable")
	}))
	s.Router.GET("/panic", Func(func(*Request) (any, error) {
		var pins []int
		return pins[3], nil
	}))
	s.Router.GET("/teapot", Func(func(*Request) (any, error) {
		return Status("short and stout", 418), nil
	}))

	for _, path := range []string{"/error", "/panic", "/teapot"} {
		resp, _ := parseResponse(t, exchange(t, s, "GET "+path+" HTTP/1.1\r\n\r\n"))
		test.AssertEqual(t, 500, resp.StatusCode)
	}

	// The server keeps serving after a handler blew up.
	s.Router.GET("/ok", Text("ok"))
	resp, _ := parseResponse(t, exchange(t, s, "GET /ok HTTP/1.1\r\n\r\n"))
	test.AssertEqual(t, 200, resp.StatusCode)
}

func TestServeConnBadRequest(t *testing.T) {
	s := newTestServer(nil)
	s.Router.GET("/", Text("root"))

	for _, raw := range []string{"garbage\r\n\r\n", "GET / HTTP/1.1 extra\r\n\r\n", "GET /\xfe HTTP/1.1\r\n\r\n"} {
		out := exchange(t, s, raw)
		test.AssertEqual(t, "HTTP/1.1 400 Bad Request\r\nConnection: close\r\nContent-Length: 0\r\nContent-Type: text/plain\r\nServer: Thimble\r\n\r\n", out)
	}
}

func TestServeConnOversizedRequestIsTruncated(t *testing.T) {
	s := newTestServer(nil)
	s.Config.ReadBufferSize = 32
	s.Router.POST("/data", Func(func(req *Request) (any, error) {
		return req.Body, nil
	}))

	// Only the first 32 bytes are read: the header block is cut short and
	// the last partial line becomes the body.
	out := exchange(t, s, "POST /data HTTP/1.1\r\nHost: abcdefghijklmnop\r\n\r\npayload")

	resp, body := parseResponse(t, out)
	test.AssertEqual(t, 200, resp.StatusCode)
	test.AssertEqual(t, "Host: abcde", body)
}

func TestServeConnPoolExhausted(t *testing.T) {
	s := newTestServer(nil)
	s.Config.MaxConns = 1

	release := make(chan struct{})
	s.Router.GET("/slow", Func(func(*Request) (any, error) {
		<-release
		return "slow", nil
	}))

	slowServer, slowClient := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ServeConn(context.Background(), slowServer)
	}()
	if _, err := slowClient.Write([]byte("GET /slow HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	resp, _ := parseResponse(t, exchange(t, s, "GET /slow HTTP/1.1\r\n\r\n"))
	test.AssertEqual(t, 503, resp.StatusCode)

	close(release)
	out, _ := io.ReadAll(slowClient)
	slowClient.Close()
	<-done

	resp, body := parseResponse(t, string(out))
	test.AssertEqual(t, 200, resp.StatusCode)
	test.AssertEqual(t, "slow", body)
}

func TestServeConnMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	s := newTestServer(nil)
	s.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	s.Router.GET("/hello", Text("Hello!"))

	exchange(t, s, "GET /hello HTTP/1.1\r\n\r\n")
	exchange(t, s, "GET /hello HTTP/1.1\r\n\r\n")
	exchange(t, s, "GET /missing HTTP/1.1\r\n\r\n")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}

	counts := map[int64]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "thimble.server.requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value("http.status_code")
				counts[status.AsInt64()] += dp.Value
			}
		}
	}

	test.AssertEqual(t, int64(2), counts[200])
	test.AssertEqual(t, int64(1), counts[404])
}

func TestServeBlocking(t *testing.T) {
	s := newTestServer(nil)
	s.Router.GET("/hello", Text("Hello!"))

	ctx, cancel := context.WithCancel(context.Background())
	listener, err := Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	served := make(chan error, 1)
	go func() {
		served <- s.Serve(ctx, listener)
	}()

	for range 3 {
		out := dial(t, listener.Addr().String(), "GET /hello HTTP/1.1\r\n\r\n")
		_, body := parseResponse(t, out)
		test.AssertEqual(t, "Hello!", body)
	}

	cancel()
	select {
	case err := <-served:
		test.AssertNoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func dial(t *testing.T, addr, raw string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func BenchmarkServeConn(b *testing.B) {
	s := NewServer("bench")
	s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.Router.GET("/", Text("OK"))
	reqStr := []byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")

	for range b.N {
		serverConn, clientConn := net.Pipe()
		go s.ServeConn(context.Background(), serverConn)

		if _, err := clientConn.Write(reqStr); err != nil {
			b.Fatalf("write error: %v", err)
		}
		io.Copy(io.Discard, clientConn)
		clientConn.Close()
	}
}
