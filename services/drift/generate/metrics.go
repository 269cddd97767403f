package generate

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for documentation generation.
var (
	tracer = otel.Tracer("docdrift.generate")
	meter  = otel.Meter("docdrift.generate")
)

// Metrics for generation calls.
var (
	generateLatency metric.Float64Histogram
	generateTotal   metric.Int64Counter
	tokensTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		generateLatency, err = meter.Float64Histogram(
			"generate_duration_seconds",
			metric.WithDescription("Duration of one documentation generation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		generateTotal, err = meter.Int64Counter(
			"generate_total",
			metric.WithDescription("Total generation calls by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		tokensTotal, err = meter.Int64Counter(
			"generate_tokens_total",
			metric.WithDescription("Tokens consumed by generation calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordGenerateMetrics records metrics for one generation call.
func recordGenerateMetrics(ctx context.Context, model, outcome string, duration time.Duration, gen *Generated) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)

	generateLatency.Record(ctx, duration.Seconds(), attrs)
	generateTotal.Add(ctx, 1, attrs)

	if gen != nil {
		tokensTotal.Add(ctx, int64(gen.PromptTokens), metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", "prompt"),
		))
		tokensTotal.Add(ctx, int64(gen.CompletionTokens), metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", "completion"),
		))
	}
}

// startGenerateSpan creates a span for one generation call.
//
// The caller must call span.End().
func startGenerateSpan(ctx context.Context, filePath, model string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "OpenAIGenerator.Generate",
		trace.WithAttributes(
			attribute.String("generate.file", filePath),
			attribute.String("generate.model", model),
		),
	)
}

// setGenerateSpanResult sets result attributes on a generation span.
func setGenerateSpanResult(span trace.Span, gen *Generated) {
	span.SetAttributes(
		attribute.Int("generate.prompt_tokens", gen.PromptTokens),
		attribute.Int("generate.completion_tokens", gen.CompletionTokens),
		attribute.Int("generate.markdown_bytes", len(gen.Markdown)),
	)
}
