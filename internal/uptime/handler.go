package uptime

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/response"
)

// RecordMetricRequest is the body for POST /uptime/services/:id/record-metric.
// organization_id is accepted for compatibility and ignored.
type RecordMetricRequest struct {
	Status         models.ServiceStatus `json:"status" binding:"required,service_status"`
	ResponseTimeMs *float64             `json:"response_time" binding:"omitempty,gte=0"`
	IsUp           *bool                `json:"is_up"`
	Timestamp      *time.Time           `json:"timestamp"`
	OrganizationID *uuid.UUID           `json:"organization_id"`
}

// Handler handles uptime endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an uptime handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ServiceMetrics handles GET /uptime/services/:id/metrics?period=.
func (h *Handler) ServiceMetrics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid service id")
		return
	}
	period, err := ParsePeriod(c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	m, err := h.svc.ServiceMetrics(c.Request.Context(), middleware.Principal(c), id, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Overview handles GET /uptime/overview.
func (h *Handler) Overview(c *gin.Context) {
	stats, err := h.svc.Overview(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Record handles POST /uptime/services/:id/record-metric.
func (h *Handler) Record(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid service id")
		return
	}
	var req RecordMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Record(c.Request.Context(), middleware.Principal(c), id, Sample{
		Status:         req.Status,
		ResponseTimeMs: req.ResponseTimeMs,
		IsUp:           req.IsUp,
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"message": "Uptime metric recorded successfully", "metric_id": m.ID})
}
