package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetricsRecordCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.New(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.TokenIssued(ctx, "STATUS_CHECK")
	m.TokenIssued(ctx, "STATUS_CHECK")
	m.ResponsesApplied(ctx, 3)
	m.ResponseSkipped(ctx, "already_answered")
	m.ArtifactStored(ctx, 2048)

	data := collect(t, reader)

	issued, ok := data["portal.tokens.issued"].(metricdata.Sum[int64])
	require.True(t, ok, "tokens counter missing")
	require.Len(t, issued.DataPoints, 1)
	assert.Equal(t, int64(2), issued.DataPoints[0].Value)
	kind, _ := issued.DataPoints[0].Attributes.Value(attribute.Key("kind"))
	assert.Equal(t, "STATUS_CHECK", kind.AsString())

	applied, ok := data["portal.responses.applied"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3), applied.DataPoints[0].Value)

	size, ok := data["portal.artifact.size"].(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Equal(t, uint64(1), size.DataPoints[0].Count)
}

func TestNilAndNopMetricsAreSafe(t *testing.T) {
	var m *telemetry.Metrics
	m.TokenIssued(context.Background(), "x")
	telemetry.NewNop().Notification(context.Background(), "sent")
}

func TestSetupDisabledIsNoop(t *testing.T) {
	provider, shutdown, err := telemetry.Setup(context.Background(), config.Telemetry{}, "portal", "test")
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NoError(t, shutdown(context.Background()))
}
