// Package registration implements the token redemption flow: a public read
// path that assembles the registration page data for a valid token, and a
// commit path that finalizes the registration in one storage transaction.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/pkg/queue"
)

// ErrValidation is returned for malformed registration data (missing
// applicant details or agreement not accepted).
var ErrValidation = errors.New("invalid registration data")

// Storage is the slice of the store this service needs.
type Storage interface {
	store.RegistrationStore
	GetRequirements(ctx context.Context, eventID uuid.UUID, applicationType string) (*models.RegistrationRequirements, error)
	GetPaymentSettings(ctx context.Context, eventID uuid.UUID) (*models.PaymentSettings, error)
}

// Broadcaster pushes dashboard events; satisfied by the realtime hub.
type Broadcaster interface {
	BroadcastToEvent(eventID uuid.UUID, event string, payload interface{})
}

// Service wires the validator, resolver and committer together. Queue and hub
// are optional; when nil the corresponding side effects are skipped.
type Service struct {
	storage Storage
	queue   *queue.Queue
	hub     Broadcaster
	logger  *zap.Logger
}

// NewService creates a registration service.
func NewService(storage Storage, q *queue.Queue, hub Broadcaster, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{storage: storage, queue: q, hub: hub, logger: logger}
}

// Validate checks a token's existence, expiry and single-use status and
// returns its denormalized view. Pure read.
func (s *Service) Validate(ctx context.Context, token string) (*models.TokenView, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	view, err := s.storage.GetTokenView(ctx, token)
	if err != nil {
		return nil, err
	}
	if view.UsedAt != nil {
		return nil, store.ErrTokenUsed
	}
	if !time.Now().Before(view.ExpiresAt) {
		return nil, store.ErrTokenExpired
	}
	return view, nil
}

// Resolve loads registration requirements and payment settings for an
// event+application_type pair. Missing rows and read failures substitute
// defaults; registration is never blocked by absent optional configuration.
func (s *Service) Resolve(ctx context.Context, eventID uuid.UUID, applicationType string) (models.RegistrationRequirements, models.PaymentSettings) {
	reqs := models.DefaultRequirements(eventID, applicationType)
	if r, err := s.storage.GetRequirements(ctx, eventID, applicationType); err == nil {
		reqs = *r
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("requirements read failed, using defaults",
			zap.String("event_id", eventID.String()),
			zap.String("application_type", applicationType),
			zap.Error(err))
	}

	settings := models.DefaultPaymentSettings(eventID)
	if p, err := s.storage.GetPaymentSettings(ctx, eventID); err == nil {
		settings = *p
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("payment settings read failed, using defaults",
			zap.String("event_id", eventID.String()),
			zap.Error(err))
	}

	return reqs, settings
}

// View is the assembled response for the registration page.
type View struct {
	Token           string                          `json:"token"`
	ExpiresAt       time.Time                       `json:"expires_at"`
	EventName       string                          `json:"event_name"`
	Application     models.Application              `json:"application"`
	Requirements    models.RegistrationRequirements `json:"requirements"`
	PaymentSettings models.PaymentSettings          `json:"payment_settings"`
}

// Lookup validates a token and assembles the registration page view.
func (s *Service) Lookup(ctx context.Context, token string) (*View, error) {
	tv, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	reqs, settings := s.Resolve(ctx, tv.Application.EventID, tv.Application.ApplicationType)
	return &View{
		Token:           tv.Token,
		ExpiresAt:       tv.ExpiresAt,
		EventName:       tv.EventName,
		Application:     tv.Application,
		Requirements:    reqs,
		PaymentSettings: settings,
	}, nil
}

// Data is the registration payload submitted by the applicant.
type Data struct {
	Name                  string          `json:"name"`
	Email                 string          `json:"email"`
	Phone                 string          `json:"phone"`
	EmergencyContactName  string          `json:"emergency_contact_name"`
	EmergencyContactPhone string          `json:"emergency_contact_phone"`
	MedicalConditions     string          `json:"medical_conditions"`
	Allergies             string          `json:"allergies"`
	Medications           string          `json:"medications"`
	AgreementAccepted     bool            `json:"agreement_accepted"`
	PaymentMethod         string          `json:"payment_method"`
	ConfirmedDetails      json.RawMessage `json:"confirmed_details"`
}

func (d Data) validate() error {
	if !d.AgreementAccepted {
		return fmt.Errorf("%w: agreement must be accepted", ErrValidation)
	}
	if d.Name == "" || d.Email == "" {
		return fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	switch d.PaymentMethod {
	case "", "cash", "bank_transfer", "stripe":
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, d.PaymentMethod)
	}
	return nil
}

// Complete redeems a token: pre-validates it, resolves the configured
// requirements (profile deadline, payment amount), and hands the whole write
// sequence to the store as one atomic commit. Follow-up side effects
// (confirmation email, agreement archive, dashboard broadcast) are
// fire-and-forget and never fail the redemption.
func (s *Service) Complete(ctx context.Context, token string, data Data) (*store.CompleteResult, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	if err := data.validate(); err != nil {
		return nil, err
	}

	view, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	reqs, _ := s.Resolve(ctx, view.Application.EventID, view.Application.ApplicationType)

	confirmed := data.ConfirmedDetails
	if len(confirmed) == 0 {
		// Fall back to snapshotting the submitted payload itself.
		confirmed, _ = json.Marshal(data)
	}

	deadline := time.Now().AddDate(0, 0, reqs.ProfileDeadlineDays)
	params := store.CompleteParams{
		Token: token,
		Client: models.Client{
			Name:                  data.Name,
			Email:                 data.Email,
			Phone:                 data.Phone,
			EmergencyContactName:  data.EmergencyContactName,
			EmergencyContactPhone: data.EmergencyContactPhone,
			MedicalConditions:     data.MedicalConditions,
			Allergies:             data.Allergies,
			Medications:           data.Medications,
		},
		ConfirmedDetails:  confirmed,
		AgreementAccepted: data.AgreementAccepted,
		PaymentMethod:     data.PaymentMethod,
		PaymentAmount:     reqs.PaymentAmount,
		ProfileDeadline:   deadline,
	}

	res, err := s.storage.CompleteRegistration(ctx, params)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration completed",
		zap.String("submission_id", res.SubmissionID.String()),
		zap.String("event_id", res.EventID.String()),
		zap.String("application_id", view.ApplicationID.String()))

	if s.queue != nil {
		if err := s.queue.EnqueueEmail(ctx, queue.EmailPayload{
			EmailType:      "registration_confirmed",
			EventID:        res.EventID,
			SubmissionID:   res.SubmissionID,
			RecipientEmail: data.Email,
			Subject:        "Registration confirmed: " + view.EventName,
		}); err != nil {
			s.logger.Warn("enqueue confirmation email failed", zap.Error(err))
		}
		if err := s.queue.EnqueueAgreementArchive(ctx, queue.AgreementArchivePayload{
			SubmissionID: res.SubmissionID,
			EventID:      res.EventID,
		}); err != nil {
			s.logger.Warn("enqueue agreement archive failed", zap.Error(err))
		}
	}
	if s.hub != nil {
		s.hub.BroadcastToEvent(res.EventID, "registration_completed", map[string]interface{}{
			"submission_id":    res.SubmissionID,
			"application_id":   view.ApplicationID,
			"application_type": view.Application.ApplicationType,
			"applicant_name":   data.Name,
		})
	}

	return res, nil
}
