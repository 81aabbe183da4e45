package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/logger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/dto"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the ledger store answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness and store health checks
type HealthHandler struct {
	BaseHandler
	store     Pinger
	timeout   time.Duration
	version   string
	startTime time.Time
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// NewHealthHandler creates a HealthHandler. A non-positive timeout defaults to two seconds.
func NewHealthHandler(store Pinger, version string, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{
		store:     store,
		timeout:   timeout,
		version:   version,
		startTime: time.Now(),
	}
}

// Health pings the store. A failed ping answers 503 with the health body under data.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		Store:   "up",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Ledger store health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Store = "down"
		body := dto.NewErrorResponseWithRequestID(dto.ErrCodeServiceUnavailable, "Ledger store is unavailable", middleware.GetRequestID(c))
		body.Data = resp
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	h.Success(c, resp)
}
