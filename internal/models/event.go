package models

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a tattoo convention.
type Event struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Venue     string     `json:"venue"`
	City      string     `json:"city"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
