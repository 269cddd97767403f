// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all drift routes with the router.
//
// Description:
//
//	Registers all /v1/drift/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/drift/analyze - Analyze files changed against a base revision
//	POST /v1/drift/analyze/file - Decide one file from supplied sources
//	GET  /v1/drift/history - Query persisted decision history
//	POST /v1/drift/generate - Regenerate stale documentation
//	GET  /v1/drift/health - Health check
//	GET  /v1/drift/ready - Readiness check
//
// Example:
//
//	service, _ := drift.NewService(drift.DefaultServiceConfig())
//	handlers := drift.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	drift.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	dg := rg.Group("/drift")
	{
		// Analysis
		dg.POST("/analyze", handlers.HandleAnalyze)
		dg.POST("/analyze/file", handlers.HandleAnalyzeFile)

		// Decision history
		dg.GET("/history", handlers.HandleHistory)

		// Regeneration
		dg.POST("/generate", handlers.HandleGenerate)

		// Health checks
		dg.GET("/health", handlers.HandleHealth)
		dg.GET("/ready", handlers.HandleReady)
	}
}
