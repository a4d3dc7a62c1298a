package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with status. Responses describe the live workspace, so
// they are marked uncacheable.
func JSON(c *gin.Context, status int, payload any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, payload)
}

// OK writes a 200 response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Outcome is returned by operations that may not take effect, such as a
// cancel with nothing running. State is the workspace after the call.
type Outcome struct {
	Applied bool `json:"applied"`
	State   any  `json:"state"`
}

// Result writes an Outcome with a 200 status.
func Result(c *gin.Context, applied bool, state any) {
	OK(c, Outcome{Applied: applied, State: state})
}
