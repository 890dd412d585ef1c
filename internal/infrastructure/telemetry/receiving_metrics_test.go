package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/receiving/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewReceivingMetrics_NilMeter(t *testing.T) {
	rm, err := telemetry.NewReceivingMetrics(nil, zap.NewNop())

	require.Error(t, err)
	assert.Nil(t, rm)
	assert.Equal(t, "NewReceivingMetrics: meter cannot be nil", err.Error())
}

func TestReceivingMetrics_NoopMeter(t *testing.T) {
	rm, err := telemetry.NewReceivingMetrics(noop.NewMeterProvider().Meter("test"), nil)
	require.NoError(t, err)

	ctx := context.Background()
	rm.RecordCommit(ctx, 5, 1, 2, 0, decimal.NewFromFloat(62.5))
	rm.RecordOrderClosed(ctx, telemetry.CloseModeAuto)
	rm.RecordCommitDuration(ctx, "commit", telemetry.OutcomeCommitted, 20*time.Millisecond)
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestReceivingMetrics_RecordCommit(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rm, err := telemetry.NewReceivingMetrics(provider.Meter("test"), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	rm.RecordCommit(ctx, 5, 1, 2, 1, decimal.NewFromFloat(62.505))
	rm.RecordCommit(ctx, 3, 0, 0, 0, decimal.NewFromInt(10))
	rm.RecordOrderClosed(ctx, telemetry.CloseModeForced)

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &data))

	assert.Equal(t, int64(2), sumOf(t, data, "erp_receiving_receipts_committed_total"))
	assert.Equal(t, int64(8), sumOf(t, data, "erp_receiving_units_received_total"))
	assert.Equal(t, int64(1), sumOf(t, data, "erp_receiving_units_returned_total"))
	assert.Equal(t, int64(2), sumOf(t, data, "erp_receiving_unordered_items_total"))
	assert.Equal(t, int64(1), sumOf(t, data, "erp_receiving_integrity_warnings_total"))
	assert.Equal(t, int64(7251), sumOf(t, data, "erp_receiving_value_received_total"))
	assert.Equal(t, int64(1), sumOf(t, data, "erp_receiving_orders_closed_total"))
}
