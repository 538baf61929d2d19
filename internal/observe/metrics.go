// Package observe holds the OpenTelemetry instruments for the interaction
// pipeline and the HTTP layer, exported to Prometheus.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "voice-negotiator-go"

// Stage names used as the "stage" attribute.
const (
	StageLLM         = "llm"
	StageAnalysis    = "analysis"
	StageTTS         = "tts"
	StageSTT         = "stt"
	StageInteraction = "interaction"
)

// Metrics is safe for concurrent use.
type Metrics struct {
	StageDuration       metric.Float64Histogram
	StageErrors         metric.Int64Counter
	Interactions        metric.Int64Counter
	TokensEstimated     metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics creates all instruments on mp. Tests pass a provider backed by
// a ManualReader; production code uses the global provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	var (
		m   Metrics
		err error
	)
	if m.StageDuration, err = meter.Float64Histogram("negotiator.stage.duration",
		metric.WithDescription("Latency of each interaction stage."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.StageErrors, err = meter.Int64Counter("negotiator.stage.errors",
		metric.WithDescription("Failed or degraded stage calls by failure kind.")); err != nil {
		return nil, err
	}
	if m.Interactions, err = meter.Int64Counter("negotiator.interactions",
		metric.WithDescription("Completed interactions by input mode.")); err != nil {
		return nil, err
	}
	if m.TokensEstimated, err = meter.Int64Counter("negotiator.tokens.estimated",
		metric.WithDescription("Estimated reply tokens.")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("negotiator.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

// Default builds Metrics on the global meter provider.
func Default() (*Metrics, error) {
	return NewMetrics(otel.GetMeterProvider())
}

// ObserveStage records the latency of stage and, when err is non-nil, counts
// it under kind.
func (m *Metrics) ObserveStage(ctx context.Context, stage string, start time.Time, err error, kind string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.StageDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.StageErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("kind", kind),
		))
	}
}

// CountInteraction records a finished interaction for mode ("text" or "audio").
func (m *Metrics) CountInteraction(ctx context.Context, mode string, tokens int) {
	if m == nil {
		return
	}
	m.Interactions.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	m.TokensEstimated.Add(ctx, int64(tokens))
}
