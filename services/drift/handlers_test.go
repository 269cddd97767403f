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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/generate"
	"github.com/AleutianAI/DocDrift/services/drift/gitx"
	"github.com/AleutianAI/DocDrift/services/drift/storage"
)

func setupRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(svc))
	return router
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func serveJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleAnalyzeFile_Success(t *testing.T) {
	svc := newTestService(t, nil)
	writeDoc(t, svc, "app/Cart.php", cartDoc)
	router := setupRouter(t, svc)

	body := mustJSON(t, AnalyzeFileRequest{
		FilePath:  "app/Cart.php",
		OldSource: cartOld,
		NewSource: cartNew,
	})
	w := serveJSON(router, http.MethodPost, "/v1/drift/analyze/file", body)

	require.Equal(t, http.StatusOK, w.Code)

	var resp AnalyzeFileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "app/Cart.php", resp.FilePath)
	require.NotNil(t, resp.Decision)
	assert.True(t, resp.Decision.ShouldRegenerate)
	assert.Equal(t, decision.ReasonPublicAPIChanges, resp.Decision.ReasonCode)
	assert.Contains(t, resp.Decision.AffectedSections, "Overview")
	assert.Equal(t, resp.RequestID, w.Header().Get("X-Request-ID"))
}

func TestHandleAnalyzeFile_EchoesRequestID(t *testing.T) {
	svc := newTestService(t, nil)
	router := setupRouter(t, svc)

	body := mustJSON(t, AnalyzeFileRequest{
		FilePath:  "app/Cart.php",
		NewSource: cartNew,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/drift/analyze/file", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp AnalyzeFileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-123", resp.RequestID)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestHandleAnalyzeFile_Validation(t *testing.T) {
	svc := newTestService(t, nil)
	router := setupRouter(t, svc)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "missing file path",
			body:     mustJSON(t, AnalyzeFileRequest{NewSource: cartNew}),
			wantCode: "MISSING_FILE_PATH",
		},
		{
			name:     "missing new source",
			body:     mustJSON(t, AnalyzeFileRequest{FilePath: "app/Cart.php"}),
			wantCode: "MISSING_SOURCE",
		},
		{
			name:     "malformed json",
			body:     "{not json",
			wantCode: "INVALID_REQUEST",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveJSON(router, http.MethodPost, "/v1/drift/analyze/file", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestHandleAnalyze_Success(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		changed:  []gitx.ChangedFile{{Path: "app/Cart.php", Kind: gitx.ChangeModified}},
		stats:    []gitx.FileStat{{Path: "app/Cart.php", LinesAdded: 1}},
		head:     "abc1234",
		isRepo:   true,
	}
	svc := newTestService(t, git)
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/analyze", `{"base_rev":"main"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	require.NotNil(t, resp.Report)
	require.Len(t, resp.Report.Results, 1)
	assert.Equal(t, "app/Cart.php", resp.Report.Results[0].FilePath)
	assert.Equal(t, 1, resp.Report.RegenerateCount)
}

func TestHandleAnalyze_UnknownRevision(t *testing.T) {
	git := &fakeGit{
		changedErr: fmt.Errorf("%w: wat", gitx.ErrUnknownRevision),
		isRepo:     true,
	}
	svc := newTestService(t, git)
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/analyze", `{"base_rev":"wat"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_REVISION", decodeError(t, w).Code)
}

func TestHandleAnalyze_NotARepository(t *testing.T) {
	git := &fakeGit{
		changedErr: fmt.Errorf("%w: %s", gitx.ErrNotRepository, t.TempDir()),
	}
	svc := newTestService(t, git)
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/analyze", `{}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_A_REPOSITORY", decodeError(t, w).Code)
}

func TestHandleAnalyze_InvalidBody(t *testing.T) {
	svc := newTestService(t, &fakeGit{isRepo: true})
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/analyze", "not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
}

func TestHandleHistory_Success(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, nil, WithStore(store))
	router := setupRouter(t, svc)

	older := &storage.StoredDecision{
		FilePath:       "app/Cart.php",
		Result:         &decision.Result{ReasonCode: decision.ReasonNoExistingDoc},
		DecidedAtMilli: 1000,
	}
	newer := &storage.StoredDecision{
		FilePath:       "app/Cart.php",
		Result:         &decision.Result{ReasonCode: decision.ReasonPublicAPIChanges},
		DecidedAtMilli: 2000,
	}
	require.NoError(t, store.Save(context.Background(), older))
	require.NoError(t, store.Save(context.Background(), newer))

	w := serveJSON(router, http.MethodGet, "/v1/drift/history?path=app/Cart.php&limit=10", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "app/Cart.php", resp.FilePath)
	require.Len(t, resp.Decisions, 2)
	assert.Equal(t, decision.ReasonPublicAPIChanges, resp.Decisions[0].Result.ReasonCode)
	assert.Equal(t, decision.ReasonNoExistingDoc, resp.Decisions[1].Result.ReasonCode)
}

func TestHandleHistory_MissingPath(t *testing.T) {
	svc := newTestService(t, nil, WithStore(newTestStore(t)))
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodGet, "/v1/drift/history", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE_PATH", decodeError(t, w).Code)
}

func TestHandleHistory_InvalidLimit(t *testing.T) {
	svc := newTestService(t, nil, WithStore(newTestStore(t)))
	router := setupRouter(t, svc)

	for _, limit := range []string{"abc", "-1"} {
		w := serveJSON(router, http.MethodGet, "/v1/drift/history?path=app/Cart.php&limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, w).Code)
	}
}

func TestHandleHistory_NoStore(t *testing.T) {
	svc := newTestService(t, nil)
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodGet, "/v1/drift/history?path=app/Cart.php", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_DISABLED", decodeError(t, w).Code)
}

func TestHandleGenerate_Success(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	gen := &fakeGenerator{markdown: "# Cart\n\nRegenerated.\n"}
	svc := newTestService(t, git, WithGenerator(gen))
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/generate", `{"file_path":"app/Cart.php"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "app/Cart.php", resp.FilePath)
	assert.Equal(t, svc.DocPath("app/Cart.php"), resp.DocPath)
	require.NotNil(t, resp.Decision)
	assert.True(t, resp.Decision.ShouldRegenerate)
	require.NotNil(t, resp.Generated)
	assert.Equal(t, "# Cart\n\nRegenerated.\n", resp.Generated.Markdown)
	assert.False(t, resp.Skipped)
}

func TestHandleGenerate_SkipsFreshDocumentation(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartOld},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	svc := newTestService(t, git, WithGenerator(&fakeGenerator{markdown: "x"}))
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/generate", `{"file_path":"app/Cart.php"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Decision.ShouldRegenerate)
	assert.Nil(t, resp.Generated)
	assert.True(t, resp.Skipped)
}

func TestHandleGenerate_DryRun(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	svc := newTestService(t, git)
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/generate", `{"file_path":"app/Cart.php","dry_run":true}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Decision.ShouldRegenerate)
	assert.Nil(t, resp.Generated)
	assert.False(t, resp.Skipped)
}

func TestHandleGenerate_NoGenerator(t *testing.T) {
	svc := newTestService(t, &fakeGit{isRepo: true})
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/generate", `{"file_path":"app/Cart.php"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "GENERATOR_DISABLED", decodeError(t, w).Code)
}

func TestHandleGenerate_FileNotFound(t *testing.T) {
	git := &fakeGit{head: "abc1234", isRepo: true}
	svc := newTestService(t, git, WithGenerator(&fakeGenerator{markdown: "x"}))
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/generate", `{"file_path":"app/Ghost.php"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "FILE_NOT_FOUND", decodeError(t, w).Code)
}

func TestHandleGenerate_EmptyCompletion(t *testing.T) {
	git := &fakeGit{
		worktree: map[string]string{"app/Cart.php": cartNew},
		atBase:   map[string]string{"app/Cart.php": cartOld},
		head:     "abc1234",
		isRepo:   true,
	}
	svc := newTestService(t, git, WithGenerator(&fakeGenerator{err: generate.ErrEmptyCompletion}))
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/generate", `{"file_path":"app/Cart.php"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "EMPTY_COMPLETION", decodeError(t, w).Code)
}

func TestHandleGenerate_MissingFilePath(t *testing.T) {
	svc := newTestService(t, nil, WithGenerator(&fakeGenerator{markdown: "x"}))
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodPost, "/v1/drift/generate", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE_PATH", decodeError(t, w).Code)
}

func TestHandleHealth(t *testing.T) {
	svc := newTestService(t, nil)
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodGet, "/v1/drift/health", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandleReady(t *testing.T) {
	svc := newTestService(t, &fakeGit{isRepo: true},
		WithStore(newTestStore(t)),
		WithGenerator(&fakeGenerator{markdown: "x"}))
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodGet, "/v1/drift/ready", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.True(t, resp.StoreOK)
	assert.True(t, resp.GeneratorOK)
}

func TestHandleReady_NotReady(t *testing.T) {
	svc := newTestService(t, &fakeGit{isRepo: false})
	router := setupRouter(t, svc)

	w := serveJSON(router, http.MethodGet, "/v1/drift/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
}
