package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("requestId", "req-42")
		c.Next()
	})
	return r
}

func TestOKIsUncacheable(t *testing.T) {
	r := newRouter()
	r.GET("/state", func(c *gin.Context) { OK(c, gin.H{"tool": "analyze"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
}

func TestResultWrapsState(t *testing.T) {
	r := newRouter()
	r.POST("/cancel", func(c *gin.Context) { Result(c, true, gin.H{"tool": "history"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cancel", nil))
	var body struct {
		Applied bool              `json:"applied"`
		State   map[string]string `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Applied || body.State["tool"] != "history" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestErrorCarriesRequestID(t *testing.T) {
	r := newRouter()
	r.GET("/fail", func(c *gin.Context) {
		Error(c, http.StatusUnprocessableEntity, "input_too_large", "too long", gin.H{"limit": 10})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if body.Error.Code != "input_too_large" || body.Error.RequestID != "req-42" {
		t.Fatalf("unexpected error body: %+v", body.Error)
	}
}
