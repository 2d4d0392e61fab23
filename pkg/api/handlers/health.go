package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/pillbox/pkg/api/types"
	"github.com/urmzd/pillbox/pkg/device"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	controller device.Controller
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(controller device.Controller) *HealthHandler {
	return &HealthHandler{controller: controller}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the API and the dispenser link. A simulated dispenser reports degraded.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.controller.Status()

	controllerStatus := "disconnected"
	switch {
	case status.Simulated:
		controllerStatus = "simulated"
	case h.controller.IsConnected():
		controllerStatus = "connected"
	}

	health := "healthy"
	httpStatus := http.StatusOK

	if controllerStatus != "connected" {
		health = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:     health,
		Controller: controllerStatus,
		Timestamp:  time.Now(),
	})
}
