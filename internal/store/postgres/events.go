package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
)

// CreateEvent inserts a new convention.
func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, name, venue, city, starts_at, ends_at, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, e.Name, e.Venue, e.City, e.StartsAt, e.EndsAt, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, name, venue, city, starts_at, ends_at, created_by, created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := s.pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.Name, &e.Venue, &e.City, &e.StartsAt, &e.EndsAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// ListEvents returns all events, newest first.
func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, venue, city, starts_at, ends_at, created_by, created_at, updated_at
		FROM events ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Venue, &e.City, &e.StartsAt, &e.EndsAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// UpdateEvent updates name, venue, city and schedule fields.
func (s *Store) UpdateEvent(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET name = $1, venue = $2, city = $3,
		starts_at = $4, ends_at = $5, updated_at = NOW()
		WHERE id = $6 RETURNING updated_at`
	err := s.pool.QueryRow(ctx, q, e.Name, e.Venue, e.City, e.StartsAt, e.EndsAt, e.ID).
		Scan(&e.UpdatedAt)
	return mapErr(err)
}

// DeleteEvent removes an event by ID.
func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertRequirements creates or replaces the requirements row for an
// event+application_type pair.
func (s *Store) UpsertRequirements(ctx context.Context, r *models.RegistrationRequirements) error {
	const q = `INSERT INTO registration_requirements
		(event_id, application_type, requires_payment, payment_amount, agreement_text, profile_deadline_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, application_type) DO UPDATE SET
			requires_payment = EXCLUDED.requires_payment,
			payment_amount = EXCLUDED.payment_amount,
			agreement_text = EXCLUDED.agreement_text,
			profile_deadline_days = EXCLUDED.profile_deadline_days`
	_, err := s.pool.Exec(ctx, q, r.EventID, r.ApplicationType, r.RequiresPayment,
		r.PaymentAmount, r.AgreementText, r.ProfileDeadlineDays)
	return mapErr(err)
}

// GetRequirements returns the requirements row for an event+application_type
// pair, or store.ErrNotFound when none is configured.
func (s *Store) GetRequirements(ctx context.Context, eventID uuid.UUID, applicationType string) (*models.RegistrationRequirements, error) {
	const q = `SELECT event_id, application_type, requires_payment, payment_amount, agreement_text, profile_deadline_days
		FROM registration_requirements WHERE event_id = $1 AND application_type = $2`
	var r models.RegistrationRequirements
	err := s.pool.QueryRow(ctx, q, eventID, applicationType).
		Scan(&r.EventID, &r.ApplicationType, &r.RequiresPayment, &r.PaymentAmount, &r.AgreementText, &r.ProfileDeadlineDays)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// UpsertPaymentSettings creates or replaces the payment settings for an event.
func (s *Store) UpsertPaymentSettings(ctx context.Context, p *models.PaymentSettings) error {
	const q = `INSERT INTO payment_settings
		(event_id, cash_enabled, bank_transfer_enabled, stripe_enabled, allow_installments)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO UPDATE SET
			cash_enabled = EXCLUDED.cash_enabled,
			bank_transfer_enabled = EXCLUDED.bank_transfer_enabled,
			stripe_enabled = EXCLUDED.stripe_enabled,
			allow_installments = EXCLUDED.allow_installments`
	_, err := s.pool.Exec(ctx, q, p.EventID, p.CashEnabled, p.BankTransferEnabled, p.StripeEnabled, p.AllowInstallments)
	return mapErr(err)
}

// GetPaymentSettings returns the payment settings for an event, or
// store.ErrNotFound when none are configured.
func (s *Store) GetPaymentSettings(ctx context.Context, eventID uuid.UUID) (*models.PaymentSettings, error) {
	const q = `SELECT event_id, cash_enabled, bank_transfer_enabled, stripe_enabled, allow_installments
		FROM payment_settings WHERE event_id = $1`
	var p models.PaymentSettings
	err := s.pool.QueryRow(ctx, q, eventID).
		Scan(&p.EventID, &p.CashEnabled, &p.BankTransferEnabled, &p.StripeEnabled, &p.AllowInstallments)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}
