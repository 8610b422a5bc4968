package organizations

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/pkg/response"
	"github.com/statio/backend/pkg/storage"
	"github.com/statio/backend/pkg/utils"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an organizations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Slug        *string `json:"slug" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logo_url" binding:"omitempty,url"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateOrganizationRequest is the body for PUT /organizations/:id.
type UpdateOrganizationRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logo_url" binding:"omitempty,url"`
	IsActive    *bool   `json:"is_active"`
}

// LogoUploadRequest is the body for POST /organizations/:id/logo-upload-url.
type LogoUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

func orgID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /organizations.
func (h *Handler) List(c *gin.Context) {
	page, err := utils.ParsePage(c.Query("skip"), c.Query("limit"), 100, 100)
	if err != nil {
		response.Error(c, err)
		return
	}
	orgs, err := h.svc.List(c.Request.Context(), middleware.Principal(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, orgs)
}

// Get handles GET /organizations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := orgID(c)
	if !ok {
		return
	}
	org, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// Create handles POST /organizations.
func (h *Handler) Create(c *gin.Context) {
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), CreateInput{
		Name:        body.Name,
		Slug:        body.Slug,
		Description: body.Description,
		LogoURL:     body.LogoURL,
		IsActive:    body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// Update handles PUT /organizations/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := orgID(c)
	if !ok {
		return
	}
	var body UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), id, UpdateInput{
		Name:        body.Name,
		Description: body.Description,
		LogoURL:     body.LogoURL,
		IsActive:    body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// Delete handles DELETE /organizations/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := orgID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateLogoUploadURL handles POST /organizations/:id/logo-upload-url.
func (h *Handler) CreateLogoUploadURL(c *gin.Context) {
	id, ok := orgID(c)
	if !ok {
		return
	}
	var body LogoUploadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "content_type required")
		return
	}
	upload, err := h.svc.CreateLogoUpload(c.Request.Context(), middleware.Principal(c), id, body.ContentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, upload)
}

// UploadLogo handles PUT /organizations/:id/logo with a multipart "file" field.
func (h *Handler) UploadLogo(c *gin.Context) {
	id, ok := orgID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxLogoFileSize+1024*1024)
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()
	org, err := h.svc.UploadLogo(c.Request.Context(), middleware.Principal(c), id, fh.Header.Get("Content-Type"), f, fh.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}
