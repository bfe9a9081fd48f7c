package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb7/thimble/filesystem"
	"github.com/freekieb7/thimble/http"
	"github.com/freekieb7/thimble/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	host := flag.String("host", http.DefaultHost, "address to listen on")
	port := flag.Int("port", http.DefaultPort, "port to listen on")
	debug := flag.Bool("debug", false, "log every connection")
	static := flag.String("static", http.DefaultStaticRoot, "directory served for unrouted paths, empty to disable")
	index := flag.String("index", http.DefaultIndexFile, "file served for paths ending in /")
	buffer := flag.Int("buffer", http.DefaultReadBufferSize, "request read buffer size in bytes")
	maxConns := flag.Int("conns", http.DefaultMaxConns, "connections served at once")
	async := flag.Bool("async", false, "serve on the cooperative loop")
	otlp := flag.String("otlp", "", "OTLP/gRPC collector host:port, empty to log locally")
	insecure := flag.Bool("otlp-insecure", false, "connect to the collector without TLS")
	flag.Parse()

	// Handle SIGINT (CTRL+C) gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "thimble",
		Endpoint:    *otlp,
		Insecure:    *insecure,
		Debug:       *debug,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Println("telemetry shutdown:", err)
		}
	}()

	server := http.NewServer(http.DefaultServerName)
	server.Logger = tel.Logger
	server.MeterProvider = tel.MeterProvider
	server.TracerProvider = tel.TracerProvider
	server.Config.Debug = *debug
	server.Config.StaticRoot = *static
	server.Config.IndexFile = *index
	server.Config.ReadBufferSize = *buffer
	server.Config.MaxConns = *maxConns
	if *static == "" {
		server.Filesystem = nil
	} else {
		server.Filesystem = filesystem.NewLocalFileSystem()
	}

	server.Router.GET("/hello", http.Text("Hello!"))
	server.Router.GET("/hello/<string>", http.CaptureFunc(func(req *http.Request, name string) (any, error) {
		if name == "" {
			return http.Status("Missing name", http.StatusBadRequest), nil
		}
		return fmt.Sprintf("Hello, %s!", name), nil
	}))

	if !*async {
		return server.Run(ctx, *host, *port)
	}

	loop, err := server.RunAsync(ctx, *host, *port, nil)
	if err != nil {
		return err
	}
	loop.Wait()
	return nil
}
