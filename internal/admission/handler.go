package admission

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seminarly/backend/internal/middleware"
	"github.com/seminarly/backend/pkg/response"
)

// Handler handles admission HTTP endpoints.
type Handler struct {
	service *Service
	repo    *Repository
	logger  *zap.Logger
}

// NewHandler creates an admission handler.
func NewHandler(service *Service, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, logger: logger}
}

// Admit handles POST /seminars/:id/admission.
func (h *Handler) Admit(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	userID := middleware.UserID(c)
	if userID == nil {
		response.Unauthorized(c, "missing user context")
		return
	}

	reg, err := h.service.Admit(c.Request.Context(), *userID, seminarID)
	if err != nil {
		h.logger.Info("admission rejected",
			zap.String("seminar_id", seminarID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		response.Fault(c, err)
		return
	}
	response.Created(c, gin.H{"registration": reg})
}

// Cancel handles DELETE /seminars/:id/admission.
func (h *Handler) Cancel(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	userID := middleware.UserID(c)
	if userID == nil {
		response.Unauthorized(c, "missing user context")
		return
	}

	if err := h.service.Cancel(c.Request.Context(), *userID, seminarID); err != nil {
		response.Fault(c, err)
		return
	}
	response.NoContent(c)
}

// Status handles GET /seminars/:id/admission. Anonymous callers get a plain
// "not registered" answer instead of a rejection.
func (h *Handler) Status(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	userID := middleware.UserID(c)
	if userID == nil {
		response.OK(c, Status{Registered: false})
		return
	}

	status, err := h.service.Status(c.Request.Context(), *userID, seminarID)
	if err != nil {
		h.logger.Error("status check failed", zap.Error(err))
		response.Internal(c, "failed to check registration status")
		return
	}
	response.OK(c, status)
}

// ListAttendees handles GET /seminars/:id/attendees (organizer/admin).
func (h *Handler) ListAttendees(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	list, err := h.repo.ListAttendees(c.Request.Context(), seminarID)
	if err != nil {
		h.logger.Error("list attendees failed", zap.Error(err))
		response.Internal(c, "failed to list attendees")
		return
	}
	response.OK(c, gin.H{"attendees": list})
}
