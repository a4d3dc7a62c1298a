package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-decoder/internal/llm/llmtest"
	"contract-decoder/internal/shared/config"
	"contract-decoder/internal/workspace"
)

func testConfig() config.Config {
	return config.Config{
		Env:             "dev",
		LLMProvider:     "gemini",
		ChunkSize:       8000,
		CORSAllowOrigin: []string{"http://localhost:5173"},
		RateLimitRPS:    1,
		RateLimitBurst:  1,
	}
}

func TestHealthReportsDiagnostics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(testConfig(), workspace.New(workspace.Deps{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		OK           bool     `json:"ok"`
		LLMAvailable bool     `json:"llmAvailable"`
		Warnings     []string `json:"warnings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.False(t, body.LLMAvailable)
	require.Len(t, body.Warnings, 1)
	assert.Contains(t, body.Warnings[0], "API_KEY")
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(testConfig(), workspace.New(workspace.Deps{}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "analysis_started_total"))
}

func TestLLMRoutesAreRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ws := workspace.New(workspace.Deps{Client: llmtest.New()})
	r := NewRouter(testConfig(), ws)

	post := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"documentA":"a","documentB":""}`))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	assert.Equal(t, http.StatusForbidden, post("/api/v1/compare"))
	assert.Equal(t, http.StatusTooManyRequests, post("/api/v1/compare"))
	assert.Equal(t, http.StatusOK, post("/api/v1/disclaimer/accept"))
	assert.Equal(t, http.StatusOK, post("/api/v1/disclaimer/accept"))
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
