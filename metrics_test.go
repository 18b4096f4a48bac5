package querytap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := newMetrics(mp.Meter(scope))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordQueryDuration(t *testing.T) {
	t.Run("given recorded durations, then histogram holds both outcomes", func(t *testing.T) {
		m, reader := newTestMeter(t)

		ctx := context.Background()
		m.recordQueryDuration(ctx, 5*time.Millisecond, "SELECT", nil, nil)
		m.recordQueryDuration(ctx, 10*time.Millisecond, "SELECT", nil, errors.New("boom"))

		got := collect(t, reader)
		hist, ok := got["db.client.operation.duration"]
		require.True(t, ok)

		data, ok := hist.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		assert.Len(t, data.DataPoints, 2, "ok and error record as separate series")
	})

	t.Run("given nil metrics, then recording is a safe no-op", func(t *testing.T) {
		var m *metrics

		assert.NotPanics(t, func() {
			m.recordQueryDuration(context.Background(), time.Millisecond, "SELECT", nil, nil)
			m.recordAcquisition(context.Background(), nil, nil)
		})
	})
}

func TestRecordAcquisition(t *testing.T) {
	t.Run("given acquisitions, then counter sums per status", func(t *testing.T) {
		m, reader := newTestMeter(t)

		ctx := context.Background()
		m.recordAcquisition(ctx, nil, nil)
		m.recordAcquisition(ctx, nil, nil)
		m.recordAcquisition(ctx, nil, errors.New("pool exhausted"))

		got := collect(t, reader)
		counter, ok := got["db.client.connections.acquired"]
		require.True(t, ok)

		data, ok := counter.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, data.DataPoints, 2)

		var total int64
		for _, dp := range data.DataPoints {
			total += dp.Value
		}
		assert.Equal(t, int64(3), total)
	})
}
