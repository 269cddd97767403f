// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/DocDrift/services/drift"
	"github.com/AleutianAI/DocDrift/services/drift/telemetry"
)

// runServe is the CLI handler for "docdrift serve".
//
// Runs the drift analysis HTTP service until interrupted. Routes live
// under /v1/drift; Prometheus metrics are exposed on /metrics when the
// prometheus exporter is configured.
//
// # Exit Codes
//
//   - 0: Clean shutdown
//   - 2: Startup or serve failure
func runServe(cmd *cobra.Command, args []string) {
	os.Exit(serveRun(cmd.Context()))
}

func serveRun(parent context.Context) int {
	port := servePort
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetryConfig())
	if err != nil {
		OutputError(jsonOut, "Initializing telemetry", err)
		return CLIExitError
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shCtx); err != nil {
			appLogger.Warn("telemetry shutdown", "error", err)
		}
	}()

	svc, cleanup, err := buildService(cfg, appLogger)
	if err != nil {
		OutputError(jsonOut, "Building service", err)
		return CLIExitError
	}
	defer cleanup()

	router := buildRouter(svc)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	appLogger.Info("docdrift server listening",
		"addr", srv.Addr,
		"repo", cfg.RepoRoot,
		"store", cfg.Store.Enabled,
		"generation", cfg.Generation.Enabled)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			OutputError(jsonOut, "Server failed", err)
			return CLIExitError
		}
	case <-ctx.Done():
		appLogger.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			appLogger.Warn("server shutdown", "error", err)
		}
	}
	return CLIExitSuccess
}

// buildRouter assembles the gin router with middleware and routes.
func buildRouter(svc *drift.Service) *gin.Engine {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Debug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware("docdrift"))

	v1 := router.Group("/v1")
	drift.RegisterRoutes(v1, drift.NewHandlers(svc))

	if handler := telemetry.MetricsHandler(); handler != nil {
		router.GET("/metrics", gin.WrapH(handler))
	}
	return router
}

// telemetryConfig merges file configuration over the environment
// defaults.
func telemetryConfig() telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = drift.ServiceVersion
	if cfg.Telemetry.TraceExporter != "" {
		tc.TraceExporter = cfg.Telemetry.TraceExporter
	}
	if cfg.Telemetry.MetricExporter != "" {
		tc.MetricExporter = cfg.Telemetry.MetricExporter
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		tc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	return tc
}
