package presence

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seminarly/backend/internal/middleware"
	"github.com/seminarly/backend/pkg/response"
)

// Handler handles presence link and check-in HTTP endpoints.
type Handler struct {
	lifecycle *Lifecycle
	protocol  *Protocol
	logger    *zap.Logger
}

// NewHandler creates a presence handler.
func NewHandler(lifecycle *Lifecycle, protocol *Protocol, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{lifecycle: lifecycle, protocol: protocol, logger: logger}
}

// CreateLink handles POST /seminars/:id/presence-link (organizer/admin).
func (h *Handler) CreateLink(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	link, err := h.lifecycle.Create(c.Request.Context(), seminarID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Created(c, gin.H{"link": link})
}

// ToggleLink handles PATCH /seminars/:id/presence-link (organizer/admin).
func (h *Handler) ToggleLink(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	link, err := h.lifecycle.Toggle(c.Request.Context(), seminarID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.OK(c, gin.H{"link": link})
}

// DescribeLink handles GET /seminars/:id/presence-link (organizer/admin).
// Responds with a null link when the seminar has none.
func (h *Handler) DescribeLink(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	view, err := h.lifecycle.Describe(c.Request.Context(), seminarID)
	if err != nil {
		h.logger.Error("describe presence link failed", zap.Error(err))
		response.Internal(c, "failed to describe presence link")
		return
	}
	response.OK(c, gin.H{"link": view})
}

// CheckIn handles POST /checkin/:token. Mounted behind OptionalJWT so
// anonymous scans reach the protocol and get its auth_required answer.
func (h *Handler) CheckIn(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.BadRequest(c, "token required")
		return
	}
	userID := middleware.UserID(c)

	result, err := h.protocol.CheckIn(c.Request.Context(), token, userID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.OK(c, result)
}
