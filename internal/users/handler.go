package users

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/response"
	"github.com/statio/backend/pkg/utils"
)

// CreateUserRequest is the body for POST /users.
type CreateUserRequest struct {
	Email          string       `json:"email" binding:"required,email"`
	Password       string       `json:"password" binding:"required,min=8"`
	FullName       *string      `json:"full_name"`
	Role           *models.Role `json:"role" binding:"omitempty,role"`
	IsActive       *bool        `json:"is_active"`
	IsSuperuser    *bool        `json:"is_superuser"`
	OrganizationID *uuid.UUID   `json:"organization_id"`
}

// UpdateUserRequest is the body for PUT /users/:id.
type UpdateUserRequest struct {
	Email          *string      `json:"email" binding:"omitempty,email"`
	Password       *string      `json:"password" binding:"omitempty,min=8"`
	FullName       *string      `json:"full_name"`
	Role           *models.Role `json:"role" binding:"omitempty,role"`
	IsActive       *bool        `json:"is_active"`
	IsSuperuser    *bool        `json:"is_superuser"`
	OrganizationID *uuid.UUID   `json:"organization_id"`
}

// Handler handles user management endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a users handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /users.
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

// Get handles GET /users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// Create handles POST /users.
func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), CreateInput{
		Email:          req.Email,
		Password:       req.Password,
		FullName:       req.FullName,
		Role:           req.Role,
		IsActive:       req.IsActive,
		IsSuperuser:    req.IsSuperuser,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

// Update handles PUT /users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), id, UpdateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// Delete handles DELETE /users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
