// Package events exposes the admin surface for conventions: event CRUD, the
// per-event registration requirements and payment settings that feed the
// registration resolver, and ticket/submission listings.
package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkfest/backend/internal/middleware"
	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/pkg/response"
	"github.com/inkfest/backend/pkg/storage"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Name     string  `json:"name" binding:"required"`
	Venue    string  `json:"venue"`
	City     string  `json:"city"`
	StartsAt string  `json:"starts_at" binding:"required"`
	EndsAt   *string `json:"ends_at"`
}

// RequirementsRequest is the body for PUT /events/:id/requirements.
type RequirementsRequest struct {
	ApplicationType     string  `json:"application_type" binding:"required"`
	RequiresPayment     bool    `json:"requires_payment"`
	PaymentAmount       float64 `json:"payment_amount"`
	AgreementText       string  `json:"agreement_text"`
	ProfileDeadlineDays int     `json:"profile_deadline_days"`
}

// PaymentSettingsRequest is the body for PUT /events/:id/payment-settings.
type PaymentSettingsRequest struct {
	CashEnabled         bool `json:"cash_enabled"`
	BankTransferEnabled bool `json:"bank_transfer_enabled"`
	StripeEnabled       bool `json:"stripe_enabled"`
	AllowInstallments   bool `json:"allow_installments"`
}

// Handler handles event HTTP endpoints. The S3 client is optional; without it
// the agreement download endpoint reports the archive as unavailable.
type Handler struct {
	storage store.Store
	s3      *storage.S3
	logger  *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(st store.Store, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{storage: st, s3: s3, logger: logger}
}

// Create handles POST /events (admin/organizer).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	var endsAt *time.Time
	if req.EndsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		endsAt = &t
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	e := &models.Event{
		Name:      req.Name,
		Venue:     req.Venue,
		City:      req.City,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		CreatedBy: userID,
	}
	if err := h.storage.CreateEvent(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.storage.ListEvents(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.storage.GetEvent(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id (admin/organizer).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.storage.GetEvent(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != "" {
		e.Name = req.Name
	}
	if req.Venue != "" {
		e.Venue = req.Venue
	}
	if req.City != "" {
		e.City = req.City
	}
	if req.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		e.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			response.BadRequest(c, "invalid ends_at")
			return
		}
		e.EndsAt = &t
	}

	if err := h.storage.UpdateEvent(c.Request.Context(), e); err != nil {
		h.logger.Error("update event failed", zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.storage.DeleteEvent(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to delete event")
		return
	}
	response.OK(c, gin.H{"message": "event deleted"})
}

// UpsertRequirements handles PUT /events/:id/requirements (admin/organizer).
func (h *Handler) UpsertRequirements(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidApplicationType(req.ApplicationType) {
		response.BadRequest(c, "invalid application_type")
		return
	}

	r := &models.RegistrationRequirements{
		EventID:             id,
		ApplicationType:     req.ApplicationType,
		RequiresPayment:     req.RequiresPayment,
		PaymentAmount:       req.PaymentAmount,
		AgreementText:       req.AgreementText,
		ProfileDeadlineDays: req.ProfileDeadlineDays,
	}
	if r.AgreementText == "" {
		r.AgreementText = models.DefaultAgreementText
	}
	if r.ProfileDeadlineDays <= 0 {
		r.ProfileDeadlineDays = models.DefaultProfileDeadlineDays
	}
	if err := h.storage.UpsertRequirements(c.Request.Context(), r); err != nil {
		h.logger.Error("upsert requirements failed", zap.Error(err))
		response.Internal(c, "failed to save requirements")
		return
	}
	response.OK(c, r)
}

// UpsertPaymentSettings handles PUT /events/:id/payment-settings (admin/organizer).
func (h *Handler) UpsertPaymentSettings(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req PaymentSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := &models.PaymentSettings{
		EventID:             id,
		CashEnabled:         req.CashEnabled,
		BankTransferEnabled: req.BankTransferEnabled,
		StripeEnabled:       req.StripeEnabled,
		AllowInstallments:   req.AllowInstallments,
	}
	if err := h.storage.UpsertPaymentSettings(c.Request.Context(), p); err != nil {
		h.logger.Error("upsert payment settings failed", zap.Error(err))
		response.Internal(c, "failed to save payment settings")
		return
	}
	response.OK(c, p)
}

// ListTickets handles GET /events/:id/tickets (admin/organizer/staff).
func (h *Handler) ListTickets(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.storage.ListTicketsByEvent(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to list tickets")
		return
	}
	response.OK(c, list)
}

// ListSubmissions handles GET /events/:id/registrations (admin/organizer).
func (h *Handler) ListSubmissions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.storage.ListSubmissionsByEvent(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// AgreementURL handles GET /registrations/:id/agreement (admin/organizer).
// Returns a presigned download link for the archived agreement snapshot.
func (h *Handler) AgreementURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	if h.s3 == nil {
		response.NotFound(c, "agreement archive not configured")
		return
	}
	sub, err := h.storage.GetSubmission(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}
	app, err := h.storage.GetApplication(c.Request.Context(), sub.ApplicationID)
	if err != nil {
		response.Internal(c, "failed to load application")
		return
	}

	key := storage.AgreementKey(app.EventID.String(), sub.ID.String())
	url, err := h.s3.PresignDownload(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign agreement failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to generate download link")
		return
	}
	response.OK(c, gin.H{"agreement_url": url})
}
