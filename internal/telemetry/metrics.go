package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "frontdesk/checkin"

// CheckInMetrics records check-in outcomes and latency. With telemetry
// disabled the global meter is a no-op.
type CheckInMetrics struct {
	attempts metric.Int64Counter
	duration metric.Float64Histogram
	sweeps   metric.Int64Counter
}

// NewCheckInMetrics registers the instruments on mp, or on the global meter
// provider when mp is nil.
func NewCheckInMetrics(mp metric.MeterProvider) (*CheckInMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	attempts, err := meter.Int64Counter("checkin.attempts",
		metric.WithDescription("Check-in attempts by outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("checkin.duration",
		metric.WithDescription("Check-in latency including lock wait"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	sweeps, err := meter.Int64Counter("membership.deactivations",
		metric.WithDescription("Memberships deactivated by the expiry sweep"))
	if err != nil {
		return nil, err
	}

	return &CheckInMetrics{attempts: attempts, duration: duration, sweeps: sweeps}, nil
}

// RecordAttempt counts one finished check-in.
func (m *CheckInMetrics) RecordAttempt(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.attempts.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// RecordDeactivations counts memberships flipped inactive by a sweep.
func (m *CheckInMetrics) RecordDeactivations(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.sweeps.Add(ctx, n)
}
