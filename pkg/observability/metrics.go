package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the instruments recorded by the presence and message services
type Metrics struct {
	joins         metric.Int64Counter
	evictions     metric.Int64Counter
	posted        metric.Int64Counter
	sweepFailures metric.Int64Counter
	sweepDuration metric.Float64Histogram
}

// NewMetrics registers the chat instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	joins, err := meter.Int64Counter("chat_participants_joined_total",
		metric.WithDescription("Participants that joined the room"))
	if err != nil {
		return nil, err
	}
	evictions, err := meter.Int64Counter("chat_participants_evicted_total",
		metric.WithDescription("Participants removed for inactivity"))
	if err != nil {
		return nil, err
	}
	posted, err := meter.Int64Counter("chat_messages_posted_total",
		metric.WithDescription("Messages posted by participants"))
	if err != nil {
		return nil, err
	}
	sweepFailures, err := meter.Int64Counter("chat_sweep_failures_total",
		metric.WithDescription("Participants the sweeper failed to evict"))
	if err != nil {
		return nil, err
	}
	sweepDuration, err := meter.Float64Histogram("chat_sweep_duration_seconds",
		metric.WithDescription("Duration of one eviction sweep"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		joins:         joins,
		evictions:     evictions,
		posted:        posted,
		sweepFailures: sweepFailures,
		sweepDuration: sweepDuration,
	}, nil
}

// NoopMetrics returns instruments that record nothing
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func (m *Metrics) ParticipantJoined(ctx context.Context) {
	m.joins.Add(ctx, 1)
}

func (m *Metrics) ParticipantEvicted(ctx context.Context) {
	m.evictions.Add(ctx, 1)
}

func (m *Metrics) MessagePosted(ctx context.Context, kind string) {
	m.posted.Add(ctx, 1, metric.WithAttributes(attribute.String("type", kind)))
}

func (m *Metrics) SweepFailed(ctx context.Context) {
	m.sweepFailures.Add(ctx, 1)
}

func (m *Metrics) SweepCompleted(ctx context.Context, elapsed time.Duration) {
	m.sweepDuration.Record(ctx, elapsed.Seconds())
}
