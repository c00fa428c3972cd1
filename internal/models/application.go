package models

import (
	"time"

	"github.com/google/uuid"
)

// Application types (who is applying to work the convention).
const (
	ApplicationTypeArtist    = "artist"
	ApplicationTypeTrader    = "trader"
	ApplicationTypeVolunteer = "volunteer"
)

// Application statuses.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Application is a prospective participant's request to work an event
// (artist booth, trader stall, volunteer shift).
type Application struct {
	ID                    uuid.UUID  `json:"id"`
	EventID               uuid.UUID  `json:"event_id"`
	UserID                *uuid.UUID `json:"user_id,omitempty"`
	ApplicationType       string     `json:"application_type"`
	Status                string     `json:"status"`
	ApplicantName         string     `json:"applicant_name"`
	ApplicantEmail        string     `json:"applicant_email"`
	StudioName            string     `json:"studio_name,omitempty"`
	PortfolioURL          string     `json:"portfolio_url,omitempty"`
	RegistrationCompleted *time.Time `json:"registration_completed,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ValidApplicationType reports whether t is a known application type.
func ValidApplicationType(t string) bool {
	switch t {
	case ApplicationTypeArtist, ApplicationTypeTrader, ApplicationTypeVolunteer:
		return true
	}
	return false
}
