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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/DocDrift/services/drift/analyze"
	"github.com/AleutianAI/DocDrift/services/drift/generate"
	"github.com/AleutianAI/DocDrift/services/drift/gitx"
	"github.com/AleutianAI/DocDrift/services/drift/telemetry"
)

// Handlers contains the HTTP handlers for the drift service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleAnalyze handles POST /v1/drift/analyze.
//
// Description:
//
//	Detects the files changed against the base revision and runs the
//	decision engine over each one.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Validation error or unknown revision
//	500 Internal Server Error: Processing error
//	503 Service Unavailable: Not a git repository
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(),
		slog.With("request_id", requestID, "handler", "HandleAnalyze"))

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Analyzing changes", "base_rev", req.BaseRev, "staged", req.Staged, "files", len(req.Files))

	report, err := h.svc.Analyze(c.Request.Context(), analyze.Options{
		BaseRev:  req.BaseRev,
		Staged:   req.Staged,
		Files:    req.Files,
		Jobs:     req.Jobs,
		MaxFiles: req.MaxFiles,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "ANALYZE_FAILED"

		if errors.Is(err, gitx.ErrUnknownRevision) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_REVISION"
		} else if errors.Is(err, gitx.ErrNotRepository) {
			statusCode = http.StatusServiceUnavailable
			errCode = "NOT_A_REPOSITORY"
		}

		logger.Error("Analysis failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error:   "Analysis failed",
			Code:    errCode,
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		RequestID: requestID,
		Report:    report,
	})
}

// HandleAnalyzeFile handles POST /v1/drift/analyze/file.
//
// Description:
//
//	Decides a single file from sources supplied in the request body.
//	Works without a git checkout on the server.
//
// Request Body:
//
//	AnalyzeFileRequest
//
// Response:
//
//	200 OK: AnalyzeFileResponse
//	400 Bad Request: Validation error
func (h *Handlers) HandleAnalyzeFile(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(),
		slog.With("request_id", requestID, "handler", "HandleAnalyzeFile"))

	var req AnalyzeFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.svc.AnalyzeFile(c.Request.Context(), req.FilePath, req.OldSource, req.NewSource, req.DocPath)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "ANALYZE_FAILED"

		if errors.Is(err, ErrMissingFilePath) {
			statusCode = http.StatusBadRequest
			errCode = "MISSING_FILE_PATH"
		} else if errors.Is(err, ErrMissingSource) {
			statusCode = http.StatusBadRequest
			errCode = "MISSING_SOURCE"
		}

		logger.Warn("Direct analysis rejected", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Decision made",
		"file", req.FilePath,
		"regenerate", result.ShouldRegenerate,
		"reason", result.ReasonCode)

	c.JSON(http.StatusOK, AnalyzeFileResponse{
		RequestID: requestID,
		FilePath:  req.FilePath,
		Decision:  result,
	})
}

// HandleHistory handles GET /v1/drift/history.
//
// Description:
//
//	Returns persisted verdicts for a file, newest first.
//
// Query Parameters:
//
//	path - Repository-relative source path. Required.
//	limit - Maximum entries to return. Default 20.
//
// Response:
//
//	200 OK: HistoryResponse
//	400 Bad Request: Missing path
//	503 Service Unavailable: No decision store configured
func (h *Handlers) HandleHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(),
		slog.With("request_id", requestID, "handler", "HandleHistory"))

	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Query parameter 'path' is required",
			Code:  "MISSING_FILE_PATH",
		})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Query parameter 'limit' must be a non-negative integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		limit = parsed
	}

	decisions, err := h.svc.History(c.Request.Context(), path, limit)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "HISTORY_FAILED"

		if errors.Is(err, ErrStoreDisabled) {
			statusCode = http.StatusServiceUnavailable
			errCode = "STORE_DISABLED"
		} else if errors.Is(err, ErrMissingFilePath) {
			statusCode = http.StatusBadRequest
			errCode = "MISSING_FILE_PATH"
		}

		logger.Warn("History query failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		FilePath:  path,
		Decisions: decisions,
	})
}

// HandleGenerate handles POST /v1/drift/generate.
//
// Description:
//
//	Decides a file against a base revision and produces replacement
//	markdown for regenerate verdicts. DryRun stops after the decision;
//	Force generates even on a skip verdict.
//
// Request Body:
//
//	GenerateRequest
//
// Response:
//
//	200 OK: GenerateResponse
//	400 Bad Request: Validation error or unknown revision
//	404 Not Found: File absent from the working tree
//	502 Bad Gateway: Generator returned an empty completion
//	503 Service Unavailable: No generator configured
func (h *Handlers) HandleGenerate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(),
		slog.With("request_id", requestID, "handler", "HandleGenerate"))

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Generation requested", "file", req.FilePath, "dry_run", req.DryRun, "force", req.Force)

	result, generated, err := h.svc.Generate(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "GENERATE_FAILED"

		if errors.Is(err, ErrMissingFilePath) {
			statusCode = http.StatusBadRequest
			errCode = "MISSING_FILE_PATH"
		} else if errors.Is(err, ErrGeneratorDisabled) {
			statusCode = http.StatusServiceUnavailable
			errCode = "GENERATOR_DISABLED"
		} else if errors.Is(err, gitx.ErrPathNotInRevision) {
			statusCode = http.StatusNotFound
			errCode = "FILE_NOT_FOUND"
		} else if errors.Is(err, gitx.ErrUnknownRevision) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_REVISION"
		} else if errors.Is(err, generate.ErrEmptyCompletion) {
			statusCode = http.StatusBadGateway
			errCode = "EMPTY_COMPLETION"
		}

		logger.Error("Generation failed", "file", req.FilePath, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error:   "Generation failed",
			Code:    errCode,
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		RequestID: requestID,
		FilePath:  req.FilePath,
		DocPath:   h.svc.DocPath(req.FilePath),
		Decision:  result,
		Generated: generated,
		Skipped:   generated == nil && !req.DryRun,
	})
}

// HandleHealth handles GET /v1/drift/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/drift/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	resp := h.svc.Ready(c.Request.Context())
	if !resp.Ready {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getOrCreateRequestID returns the X-Request-ID header, minting one
// when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
