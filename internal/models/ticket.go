package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses.
const (
	TicketStatusActive    = "active"
	TicketStatusCancelled = "cancelled"
	TicketStatusCheckedIn = "checked_in"
)

// Ticket grants entry to an event. Issued exactly once per successful
// registration; price stays 0 at issuance, reconciliation happens later.
type Ticket struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	ClientID     *uuid.UUID `json:"client_id,omitempty"`
	TicketType   string     `json:"ticket_type"`
	PriceGBP     float64    `json:"price_gbp"`
	PurchaseDate time.Time  `json:"purchase_date"`
	Status       string     `json:"status"`
}
