package models

import (
	"time"

	"github.com/google/uuid"
)

// Client holds an attendee's personal, emergency-contact and medical details,
// collected at registration time. Keyed by the application's user identity
// and upserted, so re-registering overwrites rather than duplicates.
type Client struct {
	ID                    uuid.UUID `json:"id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone,omitempty"`
	EmergencyContactName  string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `json:"emergency_contact_phone,omitempty"`
	MedicalConditions     string    `json:"medical_conditions,omitempty"`
	Allergies             string    `json:"allergies,omitempty"`
	Medications           string    `json:"medications,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
