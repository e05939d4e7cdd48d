package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//
// --- Health Handlers ---
//

// Health is the handler for GET /api/health/health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	})
}

// Live is the handler for GET /api/health/live. The process is up, nothing
// else is checked.
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	})
}

// Ready is the handler for GET /api/health/ready. Readiness follows the
// database probe: acquire a connection, SELECT 1, release.
func (h *Handlers) Ready(c *gin.Context) {
	dbHealthy := h.Pool.CheckHealth(c.Request.Context())

	checks := gin.H{"database": "healthy"}
	status := http.StatusOK
	state := "ready"
	if !dbHealthy {
		checks["database"] = "unhealthy"
		status = http.StatusServiceUnavailable
		state = "not ready"
	}

	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
