package analytics

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/esn-portal/backend/internal/events"
	"github.com/esn-portal/backend/pkg/response"
)

// Handler handles GET /events/:id/stats.
type Handler struct {
	repo      *Repository
	eventRepo *events.Repository
	cache     *Cache
}

// NewHandler creates an analytics handler. cache may be nil.
func NewHandler(repo *Repository, eventRepo *events.Repository, cache *Cache) *Handler {
	return &Handler{repo: repo, eventRepo: eventRepo, cache: cache}
}

// GetByEvent handles GET /events/:id/stats.
func (h *Handler) GetByEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()

	event, err := h.eventRepo.FindByID(ctx, id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if event == nil {
		response.NotFound(c, "event not found")
		return
	}

	if stats, ok := h.cache.Get(ctx, id); ok {
		response.OK(c, stats)
		return
	}

	stats, err := h.repo.AttendanceStats(ctx, id)
	if err != nil {
		response.Internal(c, "failed to compute stats")
		return
	}
	h.cache.Set(ctx, id, stats)
	response.OK(c, stats)
}
