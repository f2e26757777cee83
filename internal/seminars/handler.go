package seminars

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seminarly/backend/internal/admission"
	"github.com/seminarly/backend/internal/middleware"
	"github.com/seminarly/backend/internal/models"
	"github.com/seminarly/backend/pkg/response"
)

// Handler handles seminar and location HTTP endpoints.
type Handler struct {
	repo   *Repository
	guard  *admission.Guard
	cache  *admission.OccupancyCache
	logger *zap.Logger
}

// NewHandler creates a seminars handler. cache may be nil.
func NewHandler(repo *Repository, guard *admission.Guard, cache *admission.OccupancyCache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, guard: guard, cache: cache, logger: logger}
}

// SeminarView is a seminar plus derived occupancy info for browse responses.
type SeminarView struct {
	models.Seminar
	OccupancyRatio float64 `json:"occupancy_ratio"`
	NearCapacity   bool    `json:"near_capacity"`
}

// List handles GET /seminars.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list seminars failed", zap.Error(err))
		response.Internal(c, "failed to list seminars")
		return
	}
	views := make([]SeminarView, 0, len(list))
	for i := range list {
		views = append(views, h.view(c, &list[i]))
	}
	response.OK(c, gin.H{"seminars": views})
}

// GetByID handles GET /seminars/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	sem, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get seminar failed", zap.Error(err))
		response.Internal(c, "failed to load seminar")
		return
	}
	if sem == nil {
		response.NotFound(c, "seminar not found")
		return
	}
	response.OK(c, gin.H{"seminar": h.view(c, sem)})
}

// view resolves occupancy through the cache, falling back to a live count.
func (h *Handler) view(c *gin.Context, sem *models.Seminar) SeminarView {
	ctx := c.Request.Context()
	if h.cache != nil {
		if cached, ok, err := h.cache.Get(ctx, sem.ID); err == nil && ok {
			return SeminarView{Seminar: *sem, OccupancyRatio: cached, NearCapacity: nearCapacity(sem, cached)}
		}
	}
	ratio, err := h.guard.OccupancyRatio(ctx, sem)
	if err != nil {
		h.logger.Warn("occupancy ratio failed", zap.String("seminar_id", sem.ID.String()), zap.Error(err))
		ratio = 0
	} else if h.cache != nil {
		_ = h.cache.Set(ctx, sem.ID, ratio)
	}
	return SeminarView{Seminar: *sem, OccupancyRatio: ratio, NearCapacity: nearCapacity(sem, ratio)}
}

func nearCapacity(sem *models.Seminar, ratio float64) bool {
	return !sem.Location.Unlimited() && ratio >= admission.NearCapacityThreshold
}

// CreateRequest is the body for POST /seminars.
type CreateRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	LocationID  string    `json:"location_id" binding:"required"`
}

// Create handles POST /seminars (organizer/admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		response.BadRequest(c, "invalid location id")
		return
	}
	userID := middleware.UserID(c)
	if userID == nil {
		response.Unauthorized(c, "missing user context")
		return
	}

	sem := &models.Seminar{
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Active:      true,
		LocationID:  locationID,
		CreatedBy:   *userID,
	}
	if err := h.repo.Create(c.Request.Context(), sem); err != nil {
		h.logger.Error("create seminar failed", zap.Error(err))
		response.Internal(c, "failed to create seminar")
		return
	}
	response.Created(c, gin.H{"seminar": sem})
}

// UpdateRequest is the body for PATCH /seminars/:id. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Active      *bool      `json:"active"`
}

// Update handles PATCH /seminars/:id (organizer/admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	found, err := h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.ScheduledAt, req.Active)
	if err != nil {
		h.logger.Error("update seminar failed", zap.Error(err))
		response.Internal(c, "failed to update seminar")
		return
	}
	if !found {
		response.NotFound(c, "seminar not found")
		return
	}
	sem, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || sem == nil {
		response.Internal(c, "failed to load seminar")
		return
	}
	response.OK(c, gin.H{"seminar": sem})
}

// CreateLocationRequest is the body for POST /locations. MaxVacancies nil
// means the room is unbounded.
type CreateLocationRequest struct {
	Name         string `json:"name" binding:"required"`
	MaxVacancies *int   `json:"max_vacancies"`
}

// CreateLocation handles POST /locations (organizer/admin).
func (h *Handler) CreateLocation(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.MaxVacancies != nil && *req.MaxVacancies <= 0 {
		response.BadRequest(c, "max_vacancies must be positive")
		return
	}
	loc := &models.Location{Name: req.Name, MaxVacancies: req.MaxVacancies}
	if err := h.repo.CreateLocation(c.Request.Context(), loc); err != nil {
		h.logger.Error("create location failed", zap.Error(err))
		response.Internal(c, "failed to create location")
		return
	}
	response.Created(c, gin.H{"location": loc})
}

// ListLocations handles GET /locations.
func (h *Handler) ListLocations(c *gin.Context) {
	list, err := h.repo.ListLocations(c.Request.Context())
	if err != nil {
		h.logger.Error("list locations failed", zap.Error(err))
		response.Internal(c, "failed to list locations")
		return
	}
	response.OK(c, gin.H{"locations": list})
}
