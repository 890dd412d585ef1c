package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Close modes recorded on erp_receiving_orders_closed_total
const (
	CloseModeAuto   = "auto"
	CloseModeForced = "forced"
)

// Commit outcomes recorded on erp_receiving_commit_duration_seconds
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var hundred = decimal.NewFromInt(100)

// ReceivingMetrics tracks receipt commits and order closures.
type ReceivingMetrics struct {
	logger *zap.Logger

	receiptsCommitted metric.Int64Counter
	unitsReceived     metric.Int64Counter
	unitsReturned     metric.Int64Counter
	unorderedCaptured metric.Int64Counter
	receivedCents     metric.Int64Counter
	ordersClosed      metric.Int64Counter
	integrityWarnings metric.Int64Counter
	commitDuration    metric.Float64Histogram
}

// ErrMeterNil is returned by NewReceivingMetrics without a meter.
var ErrMeterNil = errors.New("NewReceivingMetrics: meter cannot be nil")

// NewReceivingMetrics registers the receiving instruments on meter.
func NewReceivingMetrics(meter metric.Meter, logger *zap.Logger) (*ReceivingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	in := NewInstruments(meter)
	rm := &ReceivingMetrics{
		logger:            logger,
		receiptsCommitted: in.Counter("erp_receiving_receipts_committed_total", "Receipt batches committed", "{receipts}"),
		unitsReceived:     in.Counter("erp_receiving_units_received_total", "Units received against order lines", "{units}"),
		unitsReturned:     in.Counter("erp_receiving_units_returned_total", "Units returned to vendors", "{units}"),
		unorderedCaptured: in.Counter("erp_receiving_unordered_items_total", "Unordered items captured", "{items}"),
		receivedCents:     in.Counter("erp_receiving_value_received_total", "Value received in cents", "{cents}"),
		ordersClosed:      in.Counter("erp_receiving_orders_closed_total", "Purchase orders closed by receiving", "{orders}"),
		integrityWarnings: in.Counter("erp_receiving_integrity_warnings_total", "Lines skipped because they did not resolve", "{lines}"),
		commitDuration:    in.Seconds("erp_receiving_commit_duration_seconds", "Time spent committing a receipt batch", CommitDurationBuckets),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	logger.Debug("Receiving metrics registered")
	return rm, nil
}

// RecordCommit records a committed receipt batch. value is rounded to cents.
func (m *ReceivingMetrics) RecordCommit(ctx context.Context, received, returned, unordered, warnings int, value decimal.Decimal) {
	m.receiptsCommitted.Add(ctx, 1)
	m.unitsReceived.Add(ctx, int64(received))
	m.unitsReturned.Add(ctx, int64(returned))
	m.unorderedCaptured.Add(ctx, int64(unordered))
	m.integrityWarnings.Add(ctx, int64(warnings))
	m.receivedCents.Add(ctx, value.Mul(hundred).Round(0).IntPart())
}

// RecordOrderClosed records an order closing in the given mode.
func (m *ReceivingMetrics) RecordOrderClosed(ctx context.Context, mode string) {
	m.ordersClosed.Add(ctx, 1, metric.WithAttributes(AttrCloseMode.String(mode)))
}

// RecordCommitDuration records how long an operation took and how it ended.
func (m *ReceivingMetrics) RecordCommitDuration(ctx context.Context, operation, outcome string, d time.Duration) {
	m.commitDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(AttrOperation.String(operation), AttrOutcome.String(outcome)))
}
