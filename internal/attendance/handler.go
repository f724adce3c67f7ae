package attendance

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/esn-portal/backend/internal/middleware"
	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/internal/registrations"
	"github.com/esn-portal/backend/pkg/response"
)

// ValidateRequest is the body for POST /events/:id/registrations/:regId/attendance.
type ValidateRequest struct {
	Status models.AttendanceStatus `json:"status" binding:"required"`
}

// BulkRequest is the body for POST /events/:id/attendance/bulk.
type BulkRequest struct {
	Items []BulkItem `json:"items" binding:"required,min=1"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	svc    *Service
	cache  registrations.Invalidator
	logger *zap.Logger
}

// NewHandler creates an attendance handler. cache may be nil.
func NewHandler(svc *Service, cache registrations.Invalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, cache: cache, logger: logger}
}

// Validate handles POST /events/:id/registrations/:regId/attendance.
func (h *Handler) Validate(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	regID, err := uuid.Parse(c.Param("regId"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg, err := h.svc.Validate(c.Request.Context(), eventID, regID, req.Status, middleware.CallerEmail(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.invalidate(eventID)
	response.OK(c, reg)
}

// Bulk handles POST /events/:id/attendance/bulk.
func (h *Handler) Bulk(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	updated, err := h.svc.BulkValidate(c.Request.Context(), eventID, req.Items, middleware.CallerEmail(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.invalidate(eventID)
	response.OK(c, gin.H{"updated": updated})
}

// Reset handles DELETE /events/:id/registrations/:regId/attendance.
func (h *Handler) Reset(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	regID, err := uuid.Parse(c.Param("regId"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}

	if err := h.svc.Reset(c.Request.Context(), eventID, regID, middleware.CallerEmail(c)); err != nil {
		response.FromError(c, err)
		return
	}
	h.invalidate(eventID)
	response.NoContent(c)
}

func (h *Handler) invalidate(eventID uuid.UUID) {
	if h.cache != nil {
		h.cache.Invalidate(eventID)
	}
}
