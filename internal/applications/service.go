// Package applications handles artist, trader and volunteer applications for
// an event. Approving an application mints the single-use registration token
// that the registration package later redeems.
package applications

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/pkg/queue"
)

// TokenTTL is how long a minted registration token stays redeemable.
const TokenTTL = 30 * 24 * time.Hour

// Broadcaster pushes dashboard events; satisfied by the realtime hub.
type Broadcaster interface {
	BroadcastToEvent(eventID uuid.UUID, event string, payload interface{})
}

// Storage is the slice of the store this service needs.
type Storage interface {
	store.ApplicationStore
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Service reviews applications and mints registration tokens.
type Service struct {
	storage Storage
	queue   *queue.Queue
	hub     Broadcaster
	baseURL string
	logger  *zap.Logger
}

// NewService creates an applications service. Queue and hub are optional.
func NewService(storage Storage, q *queue.Queue, hub Broadcaster, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{storage: storage, queue: q, hub: hub, baseURL: baseURL, logger: logger}
}

// Submit records a new pending application for an event.
func (s *Service) Submit(ctx context.Context, a *models.Application) error {
	if _, err := s.storage.GetEvent(ctx, a.EventID); err != nil {
		return err
	}
	a.Status = models.ApplicationStatusPending
	if err := s.storage.CreateApplication(ctx, a); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.BroadcastToEvent(a.EventID, "application_received", map[string]interface{}{
			"application_id":   a.ID,
			"application_type": a.ApplicationType,
			"applicant_name":   a.ApplicantName,
		})
	}
	return nil
}

// Approve marks an application approved, mints its registration token and
// enqueues the invitation email carrying the registration link.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*models.RegistrationToken, error) {
	a, err := s.storage.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == models.ApplicationStatusApproved {
		return nil, store.ErrConflict
	}

	tokenStr, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	tok := &models.RegistrationToken{
		Token:         tokenStr,
		ApplicationID: a.ID,
		ExpiresAt:     time.Now().Add(TokenTTL),
	}
	if err := s.storage.CreateToken(ctx, tok); err != nil {
		return nil, err
	}
	if err := s.storage.UpdateApplicationStatus(ctx, a.ID, models.ApplicationStatusApproved); err != nil {
		return nil, err
	}

	event, err := s.storage.GetEvent(ctx, a.EventID)
	eventName := ""
	if err == nil {
		eventName = event.Name
	}

	if s.queue != nil {
		link := s.baseURL + "/registration/" + tokenStr
		if err := s.queue.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      "application_approved",
			EventID:        a.EventID,
			ApplicationID:  a.ID,
			RecipientEmail: a.ApplicantEmail,
			Subject:        "Your application was approved: " + eventName,
			Body: fmt.Sprintf("Hi %s,\n\nYour %s application has been approved. Complete your registration here:\n%s\n\nThe link is valid for 30 days and can be used once.",
				a.ApplicantName, a.ApplicationType, link),
		}); err != nil {
			s.logger.Warn("enqueue approval email failed", zap.Error(err),
				zap.String("application_id", a.ID.String()))
		}
	}

	s.logger.Info("application approved",
		zap.String("application_id", a.ID.String()),
		zap.String("event_id", a.EventID.String()))
	return tok, nil
}

// Reject marks an application rejected.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) error {
	return s.storage.UpdateApplicationStatus(ctx, id, models.ApplicationStatusRejected)
}

// generateToken mints an opaque 43-character URL-safe token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:43], nil
}
