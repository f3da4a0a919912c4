package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/worthit/backend/internal/domain"
)

// Version is reported by the health check
const Version = "1.0.0"

// PriceService is the orchestration core the handlers drive
type PriceService interface {
	Compare(ctx context.Context, query string, userPrice float64) (<-chan domain.StreamEvent, error)
	More(ctx context.Context, query string, userPrice *float64) (*domain.MoreResponse, error)
	Diagnostics() domain.Diagnostics
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service PriceService
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler. A nil service makes the price
// endpoints answer 503.
func NewHandler(service PriceService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger.With("component", "http")}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "worthit-backend",
		"version": Version,
	})
}

// Compare streams immediate-tier results as server-sent events, one
// "data:" frame per site followed by the "_done_" frame.
func (h *Handler) Compare(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	userPrice, err := strconv.ParseFloat(c.Query("user_price"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_price must be a number"})
		return
	}

	ctx := c.Request.Context()
	events, err := h.service.Compare(ctx, query, userPrice)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("cannot encode stream event", "site", ev.Site, "error", err)
			return
		}
		if _, err := c.Writer.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			h.logger.Info("client went away", "query", query, "error", err)
			return
		}
		c.Writer.Flush()
		if ev.IsDone() {
			h.logger.Info("compare stream finished", "query", query, "total_time", ev.TotalTime)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// More returns background-tier results, or a loading status while the
// background job is running
func (h *Handler) More(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	var userPrice *float64
	if raw := c.Query("user_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_price must be a number"})
			return
		}
		userPrice = &v
	}

	resp, err := h.service.More(c.Request.Context(), query, userPrice)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Jobs reports in-flight tasks and the number of registered background jobs
func (h *Handler) Jobs(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	c.JSON(http.StatusOK, h.service.Diagnostics())
}

func (h *Handler) configured(c *gin.Context) bool {
	if h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price service not configured"})
		return false
	}
	return true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
