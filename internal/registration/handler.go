package registration

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/pkg/response"
)

// Handler exposes the public registration endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registration handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /registration/:token. Returns the assembled registration
// page view, or 404/410/409 for invalid, expired and used tokens.
func (h *Handler) Get(c *gin.Context) {
	view, err := h.svc.Lookup(c.Request.Context(), c.Param("token"))
	switch {
	case err == nil:
		response.OK(c, view)
	case errors.Is(err, store.ErrNotFound):
		response.NotFound(c, "registration token not found")
	case errors.Is(err, store.ErrTokenExpired):
		response.Gone(c, "registration token expired")
	case errors.Is(err, store.ErrTokenUsed):
		response.Conflict(c, "registration token already used")
	default:
		h.logger.Error("registration lookup failed", zap.Error(err))
		response.Internal(c, "failed to load registration")
	}
}

// CompleteRequest is the body for POST /registration/complete.
type CompleteRequest struct {
	Token            string `json:"token" binding:"required"`
	RegistrationData Data   `json:"registration_data" binding:"required"`
}

// Complete handles POST /registration/complete. Token problems and malformed
// data are a 400 on this path; only storage failures surface as 500.
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res, err := h.svc.Complete(c.Request.Context(), req.Token, req.RegistrationData)
	switch {
	case err == nil:
		response.OK(c, gin.H{
			"message":         "registration completed",
			"registration_id": res.SubmissionID,
		})
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, store.ErrNotFound):
		response.BadRequest(c, "invalid registration token")
	case errors.Is(err, store.ErrTokenExpired):
		response.BadRequest(c, "registration token expired")
	case errors.Is(err, store.ErrTokenUsed):
		response.BadRequest(c, "registration token already used")
	default:
		h.logger.Error("registration completion failed", zap.Error(err))
		response.Internal(c, "failed to complete registration")
	}
}
