// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for structure extraction.
var (
	tracer = otel.Tracer("docdrift.ast")
	meter  = otel.Meter("docdrift.ast")
)

// Metrics for extraction operations.
var (
	extractLatency      metric.Float64Histogram
	extractTotal        metric.Int64Counter
	declarationsPerFile metric.Int64Histogram
	extractErrors       metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		extractLatency, err = meter.Float64Histogram(
			"ast_extract_duration_seconds",
			metric.WithDescription("Duration of structure extraction"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractTotal, err = meter.Int64Counter(
			"ast_extract_total",
			metric.WithDescription("Total number of extraction operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		declarationsPerFile, err = meter.Int64Histogram(
			"ast_declarations_extracted",
			metric.WithDescription("Number of declarations extracted per file"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractErrors, err = meter.Int64Counter(
			"ast_extract_errors_total",
			metric.WithDescription("Total number of extraction failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordExtractMetrics records metrics for one extraction.
//
// Parameters:
//   - ctx: Context for metric recording
//   - language: Source language (e.g., "php")
//   - duration: How long extraction took
//   - declCount: Number of declarations extracted
//   - success: False when the source had syntax errors or failed outright
func recordExtractMetrics(ctx context.Context, language string, duration time.Duration, declCount int, success bool) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.Bool("success", success),
	)

	extractLatency.Record(ctx, duration.Seconds(), attrs)
	extractTotal.Add(ctx, 1, attrs)

	if success {
		declarationsPerFile.Record(ctx, int64(declCount),
			metric.WithAttributes(attribute.String("language", language)),
		)
	} else {
		extractErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("language", language)),
		)
	}
}

// startExtractSpan creates a span for an extraction operation.
//
// The caller must call span.End().
func startExtractSpan(ctx context.Context, language, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Extractor.Extract",
		trace.WithAttributes(
			attribute.String("ast.language", language),
			attribute.String("ast.file", filePath),
			attribute.Int("ast.content_size", contentSize),
		),
	)
}

// setExtractSpanResult sets the result attributes on an extraction span.
func setExtractSpanResult(span trace.Span, declCount int, err error) {
	span.SetAttributes(attribute.Int("ast.declaration_count", declCount))
	if err != nil {
		span.SetAttributes(attribute.String("ast.error", err.Error()))
	}
}
