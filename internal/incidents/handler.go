package incidents

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/response"
	"github.com/statio/backend/pkg/utils"
)

// CreateIncidentRequest is the body for POST /incidents.
type CreateIncidentRequest struct {
	Title          string                 `json:"title" binding:"required,max=255"`
	Description    *string                `json:"description"`
	Status         *models.IncidentStatus `json:"status" binding:"omitempty,incident_status"`
	Type           *models.IncidentType   `json:"type" binding:"omitempty,incident_type"`
	ServiceID      uuid.UUID              `json:"service_id" binding:"required"`
	OrganizationID *uuid.UUID             `json:"organization_id"`
	IsActive       *bool                  `json:"is_active"`
}

// UpdateIncidentRequest is the body for PUT /incidents/:id.
type UpdateIncidentRequest struct {
	Title          *string                `json:"title" binding:"omitempty,max=255"`
	Description    *string                `json:"description"`
	Status         *models.IncidentStatus `json:"status" binding:"omitempty,incident_status"`
	Type           *models.IncidentType   `json:"type" binding:"omitempty,incident_type"`
	ServiceID      *uuid.UUID             `json:"service_id"`
	OrganizationID *uuid.UUID             `json:"organization_id"`
	IsActive       *bool                  `json:"is_active"`
}

// CreateUpdateRequest is the body for POST /incidents/:id/updates. A
// client-supplied organization_id is accepted and ignored; updates inherit
// the incident's organization.
type CreateUpdateRequest struct {
	Message        string                 `json:"message" binding:"required"`
	Status         *models.IncidentStatus `json:"status" binding:"omitempty,incident_status"`
	OrganizationID *uuid.UUID             `json:"organization_id"`
}

// Handler handles incident endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an incidents handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func incidentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid incident id")
		return uuid.Nil, false
	}
	return id, true
}

func parseFilter(c *gin.Context) (Filter, bool) {
	var f Filter
	if raw := c.Query("service_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid service_id")
			return f, false
		}
		f.ServiceID = &id
	}
	if raw := c.Query("status"); raw != "" {
		st := models.IncidentStatus(raw)
		f.Status = &st
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "invalid is_active")
			return f, false
		}
		f.IsActive = &active
	}
	return f, true
}

// List handles GET /incidents.
func (h *Handler) List(c *gin.Context) {
	page, err := utils.ParsePage(c.Query("skip"), c.Query("limit"), 100, 100)
	if err != nil {
		response.Error(c, err)
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), middleware.Principal(c), f, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /incidents/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	inc, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, inc)
}

// Create handles POST /incidents.
func (h *Handler) Create(c *gin.Context) {
	var req CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	inc, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), CreateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inc)
}

// Update handles PUT /incidents/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	var req UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	inc, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), id, UpdateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, inc)
}

// Delete handles DELETE /incidents/:id and returns the removed incident.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	inc, err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, inc)
}

// ListUpdates handles GET /incidents/:id/updates.
func (h *Handler) ListUpdates(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	list, err := h.svc.ListUpdates(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateUpdate handles POST /incidents/:id/updates.
func (h *Handler) CreateUpdate(c *gin.Context) {
	id, ok := incidentID(c)
	if !ok {
		return
	}
	var req CreateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	upd, err := h.svc.CreateUpdate(c.Request.Context(), middleware.Principal(c), id, UpdateNote{
		Message: req.Message,
		Status:  req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, upd)
}
