package services

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/response"
	"github.com/statio/backend/pkg/utils"
)

// CreateServiceRequest is the body for POST /services.
type CreateServiceRequest struct {
	Name           string                `json:"name" binding:"required,max=255"`
	Description    *string               `json:"description"`
	Status         *models.ServiceStatus `json:"status" binding:"omitempty,service_status"`
	IsActive       *bool                 `json:"is_active"`
	OrganizationID *uuid.UUID            `json:"organization_id"`
}

// UpdateServiceRequest is the body for PUT /services/:id.
type UpdateServiceRequest struct {
	Name           *string               `json:"name" binding:"omitempty,max=255"`
	Description    *string               `json:"description"`
	Status         *models.ServiceStatus `json:"status" binding:"omitempty,service_status"`
	IsActive       *bool                 `json:"is_active"`
	OrganizationID *uuid.UUID            `json:"organization_id"`
}

// Handler handles service endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a services handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func serviceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid service id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /services.
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

// Get handles GET /services/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := serviceID(c)
	if !ok {
		return
	}
	svc, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, svc)
}

// Create handles POST /services.
func (h *Handler) Create(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	svc, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), CreateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, svc)
}

// Update handles PUT /services/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := serviceID(c)
	if !ok {
		return
	}
	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	svc, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), id, UpdateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, svc)
}

// Delete handles DELETE /services/:id and returns the removed service.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := serviceID(c)
	if !ok {
		return
	}
	svc, err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, svc)
}
