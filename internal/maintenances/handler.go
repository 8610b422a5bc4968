package maintenances

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/response"
	"github.com/statio/backend/pkg/utils"
)

// CreateMaintenanceRequest is the body for POST /maintenances.
type CreateMaintenanceRequest struct {
	Title          string                    `json:"title" binding:"required,max=255"`
	Description    *string                   `json:"description"`
	Status         *models.MaintenanceStatus `json:"status" binding:"omitempty,maintenance_status"`
	ScheduledStart time.Time                 `json:"scheduled_start" binding:"required"`
	ScheduledEnd   time.Time                 `json:"scheduled_end" binding:"required,gtfield=ScheduledStart"`
	ServiceID      uuid.UUID                 `json:"service_id" binding:"required"`
	OrganizationID *uuid.UUID                `json:"organization_id"`
	IsActive       *bool                     `json:"is_active"`
}

// UpdateMaintenanceRequest is the body for PUT /maintenances/:id.
type UpdateMaintenanceRequest struct {
	Title          *string                   `json:"title" binding:"omitempty,max=255"`
	Description    *string                   `json:"description"`
	Status         *models.MaintenanceStatus `json:"status" binding:"omitempty,maintenance_status"`
	ScheduledStart *time.Time                `json:"scheduled_start"`
	ScheduledEnd   *time.Time                `json:"scheduled_end"`
	ServiceID      *uuid.UUID                `json:"service_id"`
	OrganizationID *uuid.UUID                `json:"organization_id"`
	IsActive       *bool                     `json:"is_active"`
}

// Handler handles maintenance endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a maintenances handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func maintenanceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid maintenance id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /maintenances.
func (h *Handler) List(c *gin.Context) {
	page, err := utils.ParsePage(c.Query("skip"), c.Query("limit"), 100, 100)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), middleware.Principal(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /maintenances/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := maintenanceID(c)
	if !ok {
		return
	}
	m, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Create handles POST /maintenances.
func (h *Handler) Create(c *gin.Context) {
	var req CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), CreateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// Update handles PUT /maintenances/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := maintenanceID(c)
	if !ok {
		return
	}
	var req UpdateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), id, UpdateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Delete handles DELETE /maintenances/:id and returns the removed window.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := maintenanceID(c)
	if !ok {
		return
	}
	m, err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}
