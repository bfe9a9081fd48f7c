package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const DefaultServiceName = "thimble"

type Config struct {
	ServiceName string
	// Endpoint is the OTLP/gRPC collector, host:port. Empty disables export.
	Endpoint string
	Insecure bool
	Debug    bool
	// Output receives local logs when no endpoint is set; os.Stderr when nil.
	Output io.Writer
}

// Telemetry holds the providers the server and the CLI log, count and trace
// through.
type Telemetry struct {
	Logger         *slog.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider

	shutdowns []func(context.Context) error
}

// Setup builds the logger and providers for cfg. Without an endpoint it
// returns a text logger and the otel globals, which are no-ops unless set
// elsewhere. With one, trace, metric and log exporters are registered as
// the globals and slog records are bridged into OTel logs.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	if cfg.Endpoint == "" {
		output := cfg.Output
		if output == nil {
			output = os.Stderr
		}
		level := slog.LevelInfo
		if cfg.Debug {
			level = slog.LevelDebug
		}

		return &Telemetry{
			Logger:         slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})),
			MeterProvider:  otel.GetMeterProvider(),
			TracerProvider: otel.GetTracerProvider(),
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, err
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	t.shutdowns = append(t.shutdowns, tracerProvider.Shutdown)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	t.shutdowns = append(t.shutdowns, meterProvider.Shutdown)

	logExporter, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	t.shutdowns = append(t.shutdowns, loggerProvider.Shutdown)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	global.SetLoggerProvider(loggerProvider)

	t.Logger = otelslog.NewLogger(cfg.ServiceName, otelslog.WithLoggerProvider(loggerProvider))
	t.MeterProvider = meterProvider
	t.TracerProvider = tracerProvider

	return t, nil
}

// Shutdown flushes and stops every provider Setup started, last first.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		err = errors.Join(err, t.shutdowns[i](ctx))
	}
	t.shutdowns = nil
	return err
}
