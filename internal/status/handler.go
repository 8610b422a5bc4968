package status

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/pkg/response"
	"github.com/statio/backend/pkg/utils"
)

// Handler serves the authenticated overview and the public status pages.
// Public routes accept an optional ?org=<slug> filter.
type Handler struct {
	svc *Service
}

// NewHandler creates a status handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func reply(c *gin.Context, data interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, data)
}

// Overview handles GET /status.
func (h *Handler) Overview(c *gin.Context) {
	ov, err := h.svc.Overview(c.Request.Context(), middleware.Principal(c))
	reply(c, ov, err)
}

// PublicOverview handles GET /public/status.
func (h *Handler) PublicOverview(c *gin.Context) {
	ov, err := h.svc.PublicOverview(c.Request.Context(), c.Query("org"))
	reply(c, ov, err)
}

// PublicTimeline handles GET /public/timeline?skip=&limit=.
func (h *Handler) PublicTimeline(c *gin.Context) {
	page, err := utils.ParsePage(c.Query("skip"), c.Query("limit"), TimelineDefaultLimit, TimelineMaxLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.svc.PublicTimeline(c.Request.Context(), c.Query("org"), page)
	reply(c, events, err)
}

// PublicServices handles GET /public/services.
func (h *Handler) PublicServices(c *gin.Context) {
	list, err := h.svc.PublicServices(c.Request.Context(), c.Query("org"))
	reply(c, list, err)
}

// PublicService handles GET /public/services/:id.
func (h *Handler) PublicService(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	svc, err := h.svc.PublicService(c.Request.Context(), c.Query("org"), id)
	reply(c, svc, err)
}

// PublicActiveIncidents handles GET /public/incidents/active.
func (h *Handler) PublicActiveIncidents(c *gin.Context) {
	list, err := h.svc.PublicActiveIncidents(c.Request.Context(), c.Query("org"))
	reply(c, list, err)
}

// PublicIncident handles GET /public/incidents/:id.
func (h *Handler) PublicIncident(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inc, err := h.svc.PublicIncident(c.Request.Context(), c.Query("org"), id)
	reply(c, inc, err)
}

// PublicMaintenances handles GET /public/maintenances/active.
func (h *Handler) PublicMaintenances(c *gin.Context) {
	list, err := h.svc.PublicMaintenances(c.Request.Context(), c.Query("org"))
	reply(c, list, err)
}

// PublicUpcomingMaintenances handles GET /public/maintenances/upcoming.
func (h *Handler) PublicUpcomingMaintenances(c *gin.Context) {
	list, err := h.svc.PublicUpcomingMaintenances(c.Request.Context(), c.Query("org"))
	reply(c, list, err)
}

// PublicMaintenance handles GET /public/maintenances/:id.
func (h *Handler) PublicMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.svc.PublicMaintenance(c.Request.Context(), c.Query("org"), id)
	reply(c, m, err)
}
