// Package observe wires OpenTelemetry metrics for signbridge and exposes
// them to Prometheus.
//
// Tests should build a [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider] so readings do not leak between tests.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/ayusman/signbridge"

// Metrics holds the metric instruments. All fields are safe for concurrent use.
type Metrics struct {
	// Classifications counts accepted predictions. Attributes: letter, source.
	Classifications metric.Int64Counter

	// ClassifyDuration is the time from frame or landmark intake to a result.
	ClassifyDuration metric.Float64Histogram

	// DetectorErrors counts failed hand detections.
	DetectorErrors metric.Int64Counter

	// NoHand counts ticks where the detector saw no hand.
	NoHand metric.Int64Counter

	// PluginExecutions counts plugin runs. Attributes: plugin, status.
	PluginExecutions metric.Int64Counter

	// WSClients tracks connected websocket clients.
	WSClients metric.Int64UpDownCounter

	// HTTPRequestDuration tracks API latency. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// Detection runs at most a few times per second, so buckets stop at 5s.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Classifications, err = m.Int64Counter("signbridge.classifications",
		metric.WithDescription("Accepted letter predictions by letter and source."),
	); err != nil {
		return nil, err
	}
	if met.ClassifyDuration, err = m.Float64Histogram("signbridge.classify.duration",
		metric.WithDescription("Latency from intake to classified letter."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DetectorErrors, err = m.Int64Counter("signbridge.detector.errors",
		metric.WithDescription("Hand detector failures."),
	); err != nil {
		return nil, err
	}
	if met.NoHand, err = m.Int64Counter("signbridge.detector.no_hand",
		metric.WithDescription("Detection ticks without a visible hand."),
	); err != nil {
		return nil, err
	}
	if met.PluginExecutions, err = m.Int64Counter("signbridge.plugin.executions",
		metric.WithDescription("Plugin action executions by plugin and status."),
	); err != nil {
		return nil, err
	}
	if met.WSClients, err = m.Int64UpDownCounter("signbridge.ws.clients",
		metric.WithDescription("Connected prediction websocket clients."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("signbridge.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Discard returns instruments that record nothing. It never fails.
func Discard() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordClassification counts one accepted letter and its latency.
func (m *Metrics) RecordClassification(ctx context.Context, letter, source string, took time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("letter", letter),
		attribute.String("source", source),
	)
	m.Classifications.Add(ctx, 1, attrs)
	m.ClassifyDuration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("source", source)))
}

// RecordPluginExecution counts one plugin run.
func (m *Metrics) RecordPluginExecution(ctx context.Context, plugin string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PluginExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plugin", plugin),
		attribute.String("status", status),
	))
}
