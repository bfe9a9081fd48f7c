package http

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/freekieb7/thimble/http"

const (
	outcomeHandler      = "handler"
	outcomeHandlerError = "handler_error"
	outcomeStatic       = "static"
	outcomeBadRequest   = "bad_request"
	outcomeRejected     = "rejected"
)

type serverMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// newServerMetrics never fails: an instrument that cannot be created is
// replaced by a no-op and the error logged.
func newServerMetrics(meter metric.Meter, logger *slog.Logger) serverMetrics {
	requests, err := meter.Int64Counter("thimble.server.requests",
		metric.WithDescription("Connections served, by method, status and outcome"),
		metric.WithUnit("{request}"))
	if err != nil {
		logger.Error("creating request counter failed", "error", err)
	}

	duration, err := meter.Float64Histogram("thimble.server.duration",
		metric.WithDescription("Time from accept to close"),
		metric.WithUnit("ms"))
	if err != nil {
		logger.Error("creating duration histogram failed", "error", err)
	}

	return serverMetrics{requests: requests, duration: duration}
}

func (m serverMetrics) record(ctx context.Context, elapsed time.Duration, attrs []attribute.KeyValue) {
	set := metric.WithAttributeSet(attribute.NewSet(attrs...))
	if m.requests != nil {
		m.requests.Add(ctx, 1, set)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), set)
	}
}
