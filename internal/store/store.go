// Package store defines the storage interface the service is written
// against, with two implementations: a transactional PostgreSQL store
// (store/postgres) and an in-process per-table map (store/memory) used for
// development and tests. The backend is chosen once at startup from
// configuration.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
)

// Sentinel errors shared by both implementations. Handlers translate these
// into HTTP statuses; everything else is a storage failure (500).
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTokenExpired is returned when a registration token's expiry has passed.
	ErrTokenExpired = errors.New("registration token expired")
	// ErrTokenUsed is returned when a registration token was already redeemed.
	ErrTokenUsed = errors.New("registration token already used")
	// ErrConflict is returned when a write collides with existing state,
	// such as a duplicate user email.
	ErrConflict = errors.New("conflict")
)

// CompleteParams carries everything the redemption commit writes. ClientID is
// resolved inside the commit from the locked application row, not by the
// caller.
type CompleteParams struct {
	Token             string
	Client            models.Client // details only; ID is taken from application.user_id
	ConfirmedDetails  json.RawMessage
	AgreementAccepted bool
	PaymentMethod     string
	PaymentAmount     float64
	ProfileDeadline   time.Time
}

// CompleteResult reports what a successful redemption created.
type CompleteResult struct {
	SubmissionID uuid.UUID
	TicketID     uuid.UUID
	EventID      uuid.UUID
	ClientID     *uuid.UUID
}

// UserStore persists dashboard users.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.UserPublic, error)
}

// EventStore persists conventions and their per-event reference data.
type EventStore interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	UpsertRequirements(ctx context.Context, r *models.RegistrationRequirements) error
	GetRequirements(ctx context.Context, eventID uuid.UUID, applicationType string) (*models.RegistrationRequirements, error)
	UpsertPaymentSettings(ctx context.Context, p *models.PaymentSettings) error
	GetPaymentSettings(ctx context.Context, eventID uuid.UUID) (*models.PaymentSettings, error)
}

// ApplicationStore persists artist/trader/volunteer applications and the
// registration tokens minted on approval.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, a *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplicationsByEvent(ctx context.Context, eventID uuid.UUID, status string) ([]models.Application, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateToken(ctx context.Context, t *models.RegistrationToken) error
}

// RegistrationStore covers the token redemption core.
type RegistrationStore interface {
	// GetTokenView loads a token joined with its application and event name.
	// Pure read; expiry and used checks are the caller's concern on this path.
	GetTokenView(ctx context.Context, token string) (*models.TokenView, error)

	// CompleteRegistration performs the whole redemption atomically: token
	// re-check, client upsert, submission insert, ticket issue, token
	// invalidation, application update. The conditional used_at update is the
	// at-most-once gate; concurrent redemptions of one token yield exactly
	// one success, the rest ErrTokenUsed.
	CompleteRegistration(ctx context.Context, p CompleteParams) (*CompleteResult, error)

	GetSubmission(ctx context.Context, id uuid.UUID) (*models.RegistrationSubmission, error)
	ListSubmissionsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationSubmission, error)
	ListTicketsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error)
}

// Store is the full storage surface, selected at process startup.
type Store interface {
	UserStore
	EventStore
	ApplicationStore
	RegistrationStore
}
