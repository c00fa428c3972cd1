package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RegistrationToken is a single-use, time-limited credential minted when an
// application is approved. Redeemable iff used_at is null and now < expires_at.
// Never deleted; invalidated once by setting used_at.
type RegistrationToken struct {
	Token         string     `json:"token"`
	ApplicationID uuid.UUID  `json:"application_id"`
	ExpiresAt     time.Time  `json:"expires_at"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TokenView is the read-time join of a token with its application and event,
// denormalized for the registration page.
type TokenView struct {
	RegistrationToken
	Application Application `json:"application"`
	EventName   string      `json:"event_name"`
}

// RegistrationRequirements is per event+application_type reference data.
// At most one row per pair; absence means defaults apply.
type RegistrationRequirements struct {
	EventID             uuid.UUID `json:"event_id"`
	ApplicationType     string    `json:"application_type"`
	RequiresPayment     bool      `json:"requires_payment"`
	PaymentAmount       float64   `json:"payment_amount"`
	AgreementText       string    `json:"agreement_text"`
	ProfileDeadlineDays int       `json:"profile_deadline_days"`
}

// DefaultAgreementText is substituted when no requirements row is configured.
const DefaultAgreementText = "I agree to the convention's terms of participation and code of conduct."

// DefaultProfileDeadlineDays is the fallback window for completing a profile.
const DefaultProfileDeadlineDays = 30

// DefaultRequirements returns the requirements applied when no row exists
// for the event+application_type pair.
func DefaultRequirements(eventID uuid.UUID, applicationType string) RegistrationRequirements {
	return RegistrationRequirements{
		EventID:             eventID,
		ApplicationType:     applicationType,
		RequiresPayment:     false,
		PaymentAmount:       0,
		AgreementText:       DefaultAgreementText,
		ProfileDeadlineDays: DefaultProfileDeadlineDays,
	}
}

// PaymentSettings is per-event reference data describing which payment
// methods the organizer accepts. At most one row per event; absence means
// every flag is off.
type PaymentSettings struct {
	EventID             uuid.UUID `json:"event_id"`
	CashEnabled         bool      `json:"cash_enabled"`
	BankTransferEnabled bool      `json:"bank_transfer_enabled"`
	StripeEnabled       bool      `json:"stripe_enabled"`
	AllowInstallments   bool      `json:"allow_installments"`
}

// DefaultPaymentSettings returns the settings applied when no row exists.
func DefaultPaymentSettings(eventID uuid.UUID) PaymentSettings {
	return PaymentSettings{EventID: eventID}
}

// RegistrationSubmission is the durable record of a redemption: the confirmed
// payload, agreement acceptance, and payment intent. Created exactly once per
// successful redemption.
type RegistrationSubmission struct {
	ID                  uuid.UUID       `json:"id"`
	ApplicationID       uuid.UUID       `json:"application_id"`
	ClientID            *uuid.UUID      `json:"client_id,omitempty"`
	ConfirmedDetails    json.RawMessage `json:"confirmed_details,omitempty"`
	AgreementAccepted   bool            `json:"agreement_accepted"`
	AgreementAcceptedAt *time.Time      `json:"agreement_accepted_at,omitempty"`
	PaymentMethod       string          `json:"payment_method,omitempty"`
	PaymentAmount       float64         `json:"payment_amount"`
	SubmittedAt         time.Time       `json:"submitted_at"`
	ProfileDeadline     time.Time       `json:"profile_deadline"`
}
