package applications

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/pkg/response"
)

// SubmitRequest is the body for POST /events/:id/applications.
type SubmitRequest struct {
	ApplicationType string `json:"application_type" binding:"required"`
	ApplicantName   string `json:"applicant_name" binding:"required"`
	ApplicantEmail  string `json:"applicant_email" binding:"required,email"`
	UserID          string `json:"user_id"` // optional; links the application to an existing identity
	StudioName      string `json:"studio_name"`
	PortfolioURL    string `json:"portfolio_url"`
}

// Handler handles application HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an applications handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Submit handles POST /events/:id/applications (public).
func (h *Handler) Submit(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidApplicationType(req.ApplicationType) {
		response.BadRequest(c, "invalid application_type")
		return
	}

	a := &models.Application{
		EventID:         eventID,
		ApplicationType: req.ApplicationType,
		ApplicantName:   req.ApplicantName,
		ApplicantEmail:  req.ApplicantEmail,
		StudioName:      req.StudioName,
		PortfolioURL:    req.PortfolioURL,
	}
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			response.BadRequest(c, "invalid user_id")
			return
		}
		a.UserID = &id
	}

	if err := h.svc.Submit(c.Request.Context(), a); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.NotFound(c, "event not found")
		case errors.Is(err, store.ErrConflict):
			response.Conflict(c, "application already submitted")
		default:
			h.logger.Error("submit application failed", zap.Error(err))
			response.Internal(c, "failed to submit application")
		}
		return
	}
	response.Created(c, a)
}

// ListByEvent handles GET /events/:id/applications (admin), with optional
// ?status= filter.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.storage.ListApplicationsByEvent(c.Request.Context(), eventID, c.Query("status"))
	if err != nil {
		h.logger.Error("list applications failed", zap.Error(err))
		response.Internal(c, "failed to list applications")
		return
	}
	response.OK(c, list)
}

// Approve handles POST /applications/:id/approve (admin). Mints the
// registration token and returns it alongside its expiry.
func (h *Handler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid application id")
		return
	}
	tok, err := h.svc.Approve(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.NotFound(c, "application not found")
		case errors.Is(err, store.ErrConflict):
			response.Conflict(c, "application already approved")
		default:
			h.logger.Error("approve application failed", zap.Error(err))
			response.Internal(c, "failed to approve application")
		}
		return
	}
	response.OK(c, gin.H{
		"registration_token": tok.Token,
		"expires_at":         tok.ExpiresAt,
	})
}

// Reject handles POST /applications/:id/reject (admin).
func (h *Handler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid application id")
		return
	}
	if err := h.svc.Reject(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "application not found")
			return
		}
		h.logger.Error("reject application failed", zap.Error(err))
		response.Internal(c, "failed to reject application")
		return
	}
	response.OK(c, gin.H{"message": "application rejected"})
}
