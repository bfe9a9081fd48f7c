package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/freekieb7/thimble/filesystem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Server runs the request/response engine over raw TCP connections. Routes
// should be registered before serving starts; late registration is safe but
// races with requests in flight.
type Server struct {
	Name       string
	Router     *Router
	Config     Config
	Logger     *slog.Logger
	Filesystem filesystem.Filesystem

	// Default to the otel globals when nil.
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider

	initOnce sync.Once
	pool     *ConnPool
	metrics  serverMetrics
	tracer   trace.Tracer
}

func NewServer(name string) *Server {
	return &Server{
		Name:       name,
		Router:     NewRouter(),
		Config:     DefaultConfig(),
		Logger:     slog.Default(),
		Filesystem: filesystem.NewLocalFileSystem(),
	}
}

func (s *Server) init() {
	s.initOnce.Do(func() {
		if s.Name == "" {
			s.Name = DefaultServerName
		}
		if s.Router == nil {
			s.Router = NewRouter()
		}
		if s.Logger == nil {
			s.Logger = slog.Default()
		}
		if s.Config.ReadBufferSize <= 0 {
			s.Config.ReadBufferSize = DefaultReadBufferSize
		}
		if s.Config.ChunkSize <= 0 {
			s.Config.ChunkSize = DefaultChunkSize
		}
		if s.Config.MaxConns <= 0 {
			s.Config.MaxConns = DefaultMaxConns
		}

		s.pool = NewConnPool(s.Config.MaxConns, s.Config.ReadBufferSize, s.Config.ChunkSize)

		mp := s.MeterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		s.metrics = newServerMetrics(mp.Meter(instrumentationName), s.Logger)

		tp := s.TracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		s.tracer = tp.Tracer(instrumentationName)
	})
}

// Run is ListenAndServe on host:port, with host defaulting to 0.0.0.0.
func (s *Server) Run(ctx context.Context, host string, port int) error {
	return s.ListenAndServe(ctx, joinHostPort(host, port))
}

// RunAsync is ListenAndServeAsync on host:port.
func (s *Server) RunAsync(ctx context.Context, host string, port int, loop *Loop) (*Loop, error) {
	return s.ListenAndServeAsync(ctx, joinHostPort(host, port), loop)
}

func joinHostPort(host string, port int) string {
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := Listen(ctx, addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listener)
}

// Serve accepts one connection at a time and fully serves it before
// accepting the next. It returns nil once ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.init()

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()
	defer listener.Close()

	s.Logger.InfoContext(ctx, "listening", "server", s.Name, "addr", listener.Addr().String(), "mode", "blocking")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			s.Logger.WarnContext(ctx, "failed to accept connection", "error", err)
			continue
		}

		s.ServeConn(ctx, conn)
	}
}

func (s *Server) ListenAndServeAsync(ctx context.Context, addr string, loop *Loop) (*Loop, error) {
	listener, err := Listen(ctx, addr)
	if err != nil {
		return nil, err
	}

	return s.ServeAsync(ctx, listener, loop), nil
}

// ServeAsync schedules an accept task on loop, creating the loop when nil,
// and returns it. Every accepted connection becomes its own task. Before
// accepting, the task waits for a free connection context, so at most
// MaxConns connections are in flight and the rest queue in the listen
// backlog. Cancelling ctx stops accepting; tasks already started run to
// completion.
func (s *Server) ServeAsync(ctx context.Context, listener net.Listener, loop *Loop) *Loop {
	s.init()
	if loop == nil {
		loop = NewLoop()
	}

	stop := context.AfterFunc(ctx, func() { listener.Close() })

	loop.Go(ctx, func(ctx context.Context) {
		defer stop()
		defer listener.Close()

		s.Logger.InfoContext(ctx, "listening", "server", s.Name, "addr", listener.Addr().String(), "mode", "cooperative")

		for {
			cc, err := s.pool.wait(ctx)
			if err != nil {
				return
			}

			var conn net.Conn
			err = Await(ctx, func() (err error) {
				conn, err = listener.Accept()
				return err
			})
			if err != nil {
				s.release(ctx, cc)
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}

				s.Logger.WarnContext(ctx, "failed to accept connection", "error", err)
				continue
			}

			loop.Go(ctx, func(ctx context.Context) {
				s.serveConn(ctx, conn, cc)
			})
		}
	})

	return loop
}

// ServeConn runs one connection through read, parse, dispatch and respond,
// then closes it. Any failure is answered and logged here; nothing escapes.
// When every connection context is taken the request is read and answered
// with 503.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	s.init()

	cc, err := s.pool.get()
	if err != nil {
		s.reject(ctx, conn)
		return
	}

	s.serveConn(ctx, conn, cc)
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, cc *connCtx) {
	defer s.release(ctx, cc)
	defer conn.Close()

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "thimble.conn", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	method, status, outcome, err := s.serve(ctx, conn, cc)
	if err != nil {
		s.debug(ctx, "write failed", "remote", conn.RemoteAddr().String(), "error", err)
	}
	s.record(ctx, span, start, method, status, outcome)
}

// reject reads the request so closing does not reset it, then answers 503.
func (s *Server) reject(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "thimble.conn", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	s.Logger.WarnContext(ctx, "connection pool exhausted", "remote", conn.RemoteAddr().String())

	buf := make([]byte, s.Config.ReadBufferSize)
	Await(ctx, func() error {
		_, err := conn.Read(buf)
		return err
	})

	status, _ := s.respond(ctx, conn, nil, Response{Status: StatusServiceUnavailable, ContentType: s.Config.DefaultContentType})
	s.record(ctx, span, start, "", status, outcomeRejected)
}

func (s *Server) release(ctx context.Context, cc *connCtx) {
	if err := s.pool.put(cc); err != nil {
		s.Logger.ErrorContext(ctx, "connection context released twice", "error", err)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn, cc *connCtx) (string, int, string, error) {
	var n int
	err := Await(ctx, func() (err error) {
		n, err = conn.Read(cc.readBuf)
		return err
	})
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		s.Logger.WarnContext(ctx, "read failed", "remote", conn.RemoteAddr().String(), "error", err)
		status, err := s.respond(ctx, conn, cc, Response{Status: StatusBadRequest, ContentType: s.Config.DefaultContentType})
		return "", status, outcomeBadRequest, err
	}

	s.debug(ctx, "connection", "remote", conn.RemoteAddr().String(), "bytes", n)

	req, err := ParseRequest(cc.readBuf[:n])
	if err != nil {
		s.Logger.WarnContext(ctx, "bad request", "remote", conn.RemoteAddr().String(), "error", err)
		status, err := s.respond(ctx, conn, cc, Response{Status: StatusBadRequest, ContentType: s.Config.DefaultContentType})
		return "", status, outcomeBadRequest, err
	}
	req.RemoteAddr = conn.RemoteAddr().String()

	s.debug(ctx, "request", "method", req.Method, "path", req.Path, "proto", req.Proto)

	match, ok := s.Router.Resolve(req.Method, req.Path)
	if !ok {
		status, err := s.serveStatic(ctx, conn, cc, req)
		return req.Method, status, outcomeStatic, err
	}

	res, failed := s.dispatch(ctx, match, req)
	outcome := outcomeHandler
	if failed {
		outcome = outcomeHandlerError
	}

	status, err := s.respond(ctx, conn, cc, res)
	return req.Method, status, outcome, err
}

// respond formats res into the connection's write buffer and writes it out.
// It returns the status code actually sent.
func (s *Server) respond(ctx context.Context, conn net.Conn, cc *connCtx, res Response) (int, error) {
	var buf []byte
	if cc != nil {
		buf = cc.writeBuf[:0]
	}
	buf = res.Append(buf, s.Name)
	if cc != nil {
		cc.writeBuf = buf
	}

	status, _ := StatusText(res.Status)
	return status, s.write(ctx, conn, buf)
}

// write is a suspension point: the task waits for the peer to take b.
func (s *Server) write(ctx context.Context, conn net.Conn, b []byte) error {
	return Await(ctx, func() error {
		_, err := conn.Write(b)
		return err
	})
}

// debug logs per-connection traces, promoted to info when Config.Debug is set.
func (s *Server) debug(ctx context.Context, msg string, args ...any) {
	if s.Config.Debug {
		s.Logger.InfoContext(ctx, msg, args...)
		return
	}
	s.Logger.DebugContext(ctx, msg, args...)
}

func (s *Server) record(ctx context.Context, span trace.Span, start time.Time, method string, status int, outcome string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.Int("http.status_code", status),
		attribute.String("thimble.outcome", outcome),
	}

	span.SetAttributes(attrs...)
	if status >= StatusInternalServerError {
		span.SetStatus(codes.Error, outcome)
	}

	s.metrics.record(ctx, time.Since(start), attrs)
}
