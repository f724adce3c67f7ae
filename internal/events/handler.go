package events

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/esn-portal/backend/internal/middleware"
	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/pkg/response"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	StartsAt        time.Time  `json:"starts_at" binding:"required"`
	EndsAt          *time.Time `json:"ends_at"`
	MaxParticipants *int       `json:"max_participants"`
}

// UpdateRequest is the body for PATCH /events/:id.
type UpdateRequest struct {
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	StartsAt        *time.Time `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	MaxParticipants *int       `json:"max_participants"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /events (organizer or admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.EndsAt != nil && req.EndsAt.Before(req.StartsAt) {
		response.BadRequest(c, "ends_at before starts_at")
		return
	}
	if req.MaxParticipants != nil && *req.MaxParticipants < 1 {
		response.BadRequest(c, "max_participants must be positive")
		return
	}

	userIDVal, _ := c.Get(middleware.ContextUserID)
	userID, _ := userIDVal.(uuid.UUID)

	e := &models.Event{
		Title:           req.Title,
		Description:     req.Description,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		MaxParticipants: req.MaxParticipants,
		CreatedBy:       userID,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// List handles GET /events. ?upcoming=true filters out past events.
func (h *Handler) List(c *gin.Context) {
	var after *time.Time
	if c.Query("upcoming") == "true" {
		now := time.Now()
		after = &now
	}
	list, err := h.repo.List(c.Request.Context(), after)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /events/:id (owner or admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, ok := h.requireOwnerOrAdmin(c, id)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), e.ID, req.Title, req.Description, req.StartsAt, req.EndsAt, req.MaxParticipants); err != nil {
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to update event")
		return
	}
	response.NoContent(c)
}

// Delete handles DELETE /events/:id (owner or admin). Registrations cascade.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, ok := h.requireOwnerOrAdmin(c, id)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), e.ID); err != nil {
		h.logger.Error("delete event failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

func (h *Handler) requireOwnerOrAdmin(c *gin.Context, id uuid.UUID) (*models.Event, bool) {
	e, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return nil, false
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return nil, false
	}
	roleVal, _ := c.Get(middleware.ContextUserRole)
	role, _ := roleVal.(string)
	userIDVal, _ := c.Get(middleware.ContextUserID)
	userID, _ := userIDVal.(uuid.UUID)
	if role != string(models.RoleAdmin) && e.CreatedBy != userID {
		response.Forbidden(c, "not the event owner")
		return nil, false
	}
	return e, true
}
