// Package telemetry records workflow metrics through OpenTelemetry.
//
// Metrics are off by default; Setup installs a no-op provider in that case
// so instrumented code pays nothing. When enabled the stdout exporter prints
// periodic snapshots, which is enough for a single service and keeps the
// dependency surface small.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

const instrumentationScope = "github.com/AndersD76/portalpili-producao-sub005"

// Setup builds the meter provider described by cfg. The returned shutdown
// function flushes pending exports and is safe to call when disabled.
func Setup(ctx context.Context, cfg config.Telemetry, serviceName, version string) (metric.MeterProvider, func(context.Context) error, error) {
	noopShutdown := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return metricnoop.NewMeterProvider(), noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("telemetry: resource: %w", err)
	}

	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}
	interval := time.Duration(cfg.ExportIntervalSeconds) * time.Second
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	return mp, mp.Shutdown, nil
}

// Metrics holds the workflow instruments.
type Metrics struct {
	tokensIssued     metric.Int64Counter
	responsesApplied metric.Int64Counter
	responsesSkipped metric.Int64Counter
	decisions        metric.Int64Counter
	rejectedAccess   metric.Int64Counter
	notifications    metric.Int64Counter
	artifactBytes    metric.Int64Histogram
}

// New registers the workflow instruments on provider.
func New(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = metricnoop.NewMeterProvider()
	}
	meter := provider.Meter(instrumentationScope)
	m := &Metrics{}
	var err error
	if m.tokensIssued, err = meter.Int64Counter("portal.tokens.issued",
		metric.WithDescription("Workflow tokens issued"), metric.WithUnit("{token}")); err != nil {
		return nil, fmt.Errorf("telemetry: tokens counter: %w", err)
	}
	if m.responsesApplied, err = meter.Int64Counter("portal.responses.applied",
		metric.WithDescription("Item responses applied"), metric.WithUnit("{response}")); err != nil {
		return nil, fmt.Errorf("telemetry: applied counter: %w", err)
	}
	if m.responsesSkipped, err = meter.Int64Counter("portal.responses.skipped",
		metric.WithDescription("Item responses skipped, by reason"), metric.WithUnit("{response}")); err != nil {
		return nil, fmt.Errorf("telemetry: skipped counter: %w", err)
	}
	if m.decisions, err = meter.Int64Counter("portal.decisions",
		metric.WithDescription("Analysis decisions, by outcome"), metric.WithUnit("{decision}")); err != nil {
		return nil, fmt.Errorf("telemetry: decisions counter: %w", err)
	}
	if m.rejectedAccess, err = meter.Int64Counter("portal.access.rejected",
		metric.WithDescription("Token accesses refused, by reason"), metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("telemetry: access counter: %w", err)
	}
	if m.notifications, err = meter.Int64Counter("portal.notifications",
		metric.WithDescription("Notification jobs, by outcome"), metric.WithUnit("{message}")); err != nil {
		return nil, fmt.Errorf("telemetry: notifications counter: %w", err)
	}
	if m.artifactBytes, err = meter.Int64Histogram("portal.artifact.size",
		metric.WithDescription("Attached artifact sizes"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("telemetry: artifact histogram: %w", err)
	}
	return m, nil
}

// NewNop returns instruments bound to a no-op provider.
func NewNop() *Metrics {
	m, _ := New(metricnoop.NewMeterProvider())
	return m
}

// TokenIssued counts an issued token.
func (m *Metrics) TokenIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// ResponsesApplied counts applied item responses.
func (m *Metrics) ResponsesApplied(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.responsesApplied.Add(ctx, int64(n))
}

// ResponseSkipped counts one skipped response.
func (m *Metrics) ResponseSkipped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.responsesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// Decision counts an analysis decision attempt.
func (m *Metrics) Decision(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// AccessRejected counts a refused token access (expired, not_found).
func (m *Metrics) AccessRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejectedAccess.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// Notification counts a notification job outcome (sent, failed, dropped).
func (m *Metrics) Notification(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ArtifactStored records an attached artifact size.
func (m *Metrics) ArtifactStored(ctx context.Context, size int64) {
	if m == nil {
		return
	}
	m.artifactBytes.Record(ctx, size)
}
