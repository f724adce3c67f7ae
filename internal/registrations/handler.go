package registrations

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/esn-portal/backend/internal/middleware"
	"github.com/esn-portal/backend/pkg/response"
)

// RegisterRequest is the body for POST /events/:id/register.
type RegisterRequest struct {
	FormResponses map[string]string `json:"form_responses,omitempty"` // dynamic signup-form fields
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	engine *Engine
	cache  Invalidator
	logger *zap.Logger
}

// Invalidator drops cached per-event statistics after a registration write.
type Invalidator interface {
	Invalidate(eventID uuid.UUID)
}

// NewHandler creates a registrations handler. cache may be nil.
func NewHandler(engine *Engine, cache Invalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, cache: cache, logger: logger}
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var formData json.RawMessage
	if len(req.FormResponses) > 0 {
		formData, err = json.Marshal(req.FormResponses)
		if err != nil {
			response.BadRequest(c, "invalid form_responses")
			return
		}
	}

	reg, err := h.engine.Register(c.Request.Context(), eventID, middleware.CallerEmail(c), formData)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(eventID)
	}
	response.Created(c, reg)
}

// Unregister handles DELETE /events/:id/register.
func (h *Handler) Unregister(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	reg, err := h.engine.Unregister(c.Request.Context(), eventID, middleware.CallerEmail(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(eventID)
	}
	response.OK(c, reg)
}

// ListByEvent handles GET /events/:id/registrations (organizer view).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.engine.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}
