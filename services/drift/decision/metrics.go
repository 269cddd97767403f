// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package decision

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for the decision cascade.
var (
	tracer = otel.Tracer("docdrift.decision")
	meter  = otel.Meter("docdrift.decision")
)

// Metrics for cascade evaluations.
var (
	decideLatency metric.Float64Histogram
	decideTotal   metric.Int64Counter
	impactScores  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		decideLatency, err = meter.Float64Histogram(
			"decision_duration_seconds",
			metric.WithDescription("Duration of one cascade evaluation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		decideTotal, err = meter.Int64Counter(
			"decision_total",
			metric.WithDescription("Total cascade evaluations by reason and verdict"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		impactScores, err = meter.Int64Histogram(
			"decision_impact_score",
			metric.WithDescription("Relevance scores produced by the cascade"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordDecideMetrics records metrics for one cascade evaluation.
func recordDecideMetrics(ctx context.Context, res *Result, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.String("reason", string(res.ReasonCode)),
		attribute.Bool("regenerate", res.ShouldRegenerate),
	)

	decideLatency.Record(ctx, duration.Seconds(), attrs)
	decideTotal.Add(ctx, 1, attrs)
	impactScores.Record(ctx, int64(res.Score),
		metric.WithAttributes(attribute.String("reason", string(res.ReasonCode))),
	)
}

// startDecideSpan creates a span for one cascade evaluation.
//
// The caller must call span.End().
func startDecideSpan(ctx context.Context, filePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Decide",
		trace.WithAttributes(
			attribute.String("decision.file", filePath),
		),
	)
}

// setDecideSpanResult sets the result attributes on a decision span.
func setDecideSpanResult(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.String("decision.reason", string(res.ReasonCode)),
		attribute.Bool("decision.regenerate", res.ShouldRegenerate),
		attribute.Float64("decision.confidence", res.Confidence),
		attribute.Int("decision.score", res.Score),
	)
}
