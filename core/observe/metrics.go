// Package observe provides OpenTelemetry metrics for the bot and a small HTTP
// server exposing them in Prometheus format together with health probes.
//
// Tests should build [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider] (for example an sdkmetric.ManualReader) to avoid
// cross-test pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all bot metrics.
const meterName = "github.com/m3rciful/p2pbot"

// Metrics holds the metric instruments of the bot. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// DialogueEvents counts processed events by state and intent.
	DialogueEvents metric.Int64Counter

	// DialogueFailures counts failed transitions by error kind
	// (validation, not_found, store, panic).
	DialogueFailures metric.Int64Counter

	// StoreDuration tracks record store latency by operation and status.
	StoreDuration metric.Float64Histogram

	// ActiveSessions tracks users currently inside a dialogue flow.
	ActiveSessions metric.Int64UpDownCounter

	// UpdateDuration tracks Telegram update handling by kind and status.
	UpdateDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DialogueEvents, err = m.Int64Counter("p2pbot.dialogue.events",
		metric.WithDescription("Dialogue events processed by state and intent."),
	); err != nil {
		return nil, err
	}
	if met.DialogueFailures, err = m.Int64Counter("p2pbot.dialogue.failures",
		metric.WithDescription("Dialogue failures by error kind."),
	); err != nil {
		return nil, err
	}
	if met.StoreDuration, err = m.Float64Histogram("p2pbot.store.duration",
		metric.WithDescription("Latency of record store operations."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("p2pbot.sessions.active",
		metric.WithDescription("Users with a dialogue in progress."),
	); err != nil {
		return nil, err
	}
	if met.UpdateDuration, err = m.Float64Histogram("p2pbot.telegram.update.duration",
		metric.WithDescription("Time spent handling Telegram updates."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordEvent counts one processed dialogue event.
func (m *Metrics) RecordEvent(ctx context.Context, state, intent string) {
	if m == nil {
		return
	}
	m.DialogueEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", state),
		attribute.String("intent", intent),
	))
}

// RecordFailure counts one failed transition.
func (m *Metrics) RecordFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.DialogueFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordUpdate observes one handled Telegram update.
func (m *Metrics) RecordUpdate(ctx context.Context, kind string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.UpdateDuration.Record(ctx, took.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status(err)),
	))
}

// RecordStore observes one record store call.
func (m *Metrics) RecordStore(ctx context.Context, op string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.StoreDuration.Record(ctx, took.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status(err)),
	))
}

func status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// SessionsChanged adjusts the active sessions gauge by delta.
func (m *Metrics) SessionsChanged(ctx context.Context, delta int64) {
	if m == nil || delta == 0 {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}
