package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contract-decoder/internal/shared/config"
	"contract-decoder/internal/shared/metrics"
	"contract-decoder/internal/shared/server/middleware"
	"contract-decoder/internal/shared/server/respond"
	"contract-decoder/internal/workspace"
)

// llmRoutes are rate limited separately since each call reaches the model provider.
var llmRoutes = map[string]struct{}{
	"/api/v1/analyze":                 {},
	"/api/v1/analyze/persona":         {},
	"/api/v1/chat/messages":           {},
	"/api/v1/chat/messages/:id/retry": {},
	"/api/v1/compare":                 {},
	"/api/v1/draft":                   {},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, ws *workspace.Workspace) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		GroupFor: rateLimitGroup,
		Rules: map[string]middleware.RateLimitRule{
			middleware.LLMRateLimitGroup: {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		},
	}))
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{
			"ok":           true,
			"llmAvailable": ws.Available(),
			"provider":     cfg.LLMProvider,
			"warnings":     cfg.Diagnostics(),
			"limits": gin.H{
				"contractChars":   ws.MaxContractChars(),
				"comparisonChars": ws.ComparisonLimit(),
			},
		})
	})
	workspace.NewHandler(ws).RegisterRoutes(api)

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	if _, ok := llmRoutes[c.FullPath()]; ok {
		return middleware.LLMRateLimitGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
