package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/pkg/health"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"go.uber.org/zap"
)

type HealthHandler struct {
	monitor *health.Monitor
	message string
}

type HealthCheckResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(monitor *health.Monitor, appName string) *HealthHandler {
	return &HealthHandler{
		monitor: monitor,
		message: appName + " API is running",
	}
}

// HealthCheck answers 503 when a critical dependency (the database) is down.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	results, healthy := h.monitor.CheckAll(c.Request.Context())

	response := HealthCheckResponse{
		Success:   healthy,
		Message:   h.message,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]HealthCheck, len(results)),
	}
	for name, result := range results {
		response.Checks[name] = HealthCheck{Status: result.Status.String(), Message: result.Message}
	}

	statusCode := http.StatusOK
	if !healthy {
		statusCode = http.StatusServiceUnavailable
	}

	logger.GetLogger().Debug("Health check performed",
		zap.Bool("success", response.Success),
		zap.Int("status_code", statusCode),
	)

	c.JSON(statusCode, response)
}
