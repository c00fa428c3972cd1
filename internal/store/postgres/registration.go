package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
)

// GetTokenView loads a token joined with its application and event name.
func (s *Store) GetTokenView(ctx context.Context, token string) (*models.TokenView, error) {
	const q = `SELECT t.token, t.application_id, t.expires_at, t.used_at, t.created_at,
		a.id, a.event_id, a.user_id, a.application_type, a.status, a.applicant_name, a.applicant_email,
		COALESCE(a.studio_name,''), COALESCE(a.portfolio_url,''), a.registration_completed, a.created_at, a.updated_at,
		e.name
		FROM registration_tokens t
		JOIN applications a ON a.id = t.application_id
		JOIN events e ON e.id = a.event_id
		WHERE t.token = $1`
	var v models.TokenView
	err := s.pool.QueryRow(ctx, q, token).Scan(
		&v.Token, &v.ApplicationID, &v.ExpiresAt, &v.UsedAt, &v.CreatedAt,
		&v.Application.ID, &v.Application.EventID, &v.Application.UserID,
		&v.Application.ApplicationType, &v.Application.Status,
		&v.Application.ApplicantName, &v.Application.ApplicantEmail,
		&v.Application.StudioName, &v.Application.PortfolioURL,
		&v.Application.RegistrationCompleted, &v.Application.CreatedAt, &v.Application.UpdatedAt,
		&v.EventName,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &v, nil
}

// CompleteRegistration redeems a token inside one transaction. The token row
// is locked for the duration and invalidated with a conditional update; if
// that update touches zero rows the transaction rolls back with ErrTokenUsed,
// which is what closes the double-redemption race.
func (s *Store) CompleteRegistration(ctx context.Context, p store.CompleteParams) (*store.CompleteResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const lockQ = `SELECT t.expires_at, t.used_at, a.id, a.event_id, a.user_id, a.application_type
		FROM registration_tokens t
		JOIN applications a ON a.id = t.application_id
		WHERE t.token = $1
		FOR UPDATE OF t`
	var (
		expiresAt       time.Time
		usedAt          *time.Time
		applicationID   uuid.UUID
		eventID         uuid.UUID
		userID          *uuid.UUID
		applicationType string
	)
	err = tx.QueryRow(ctx, lockQ, p.Token).
		Scan(&expiresAt, &usedAt, &applicationID, &eventID, &userID, &applicationType)
	if err != nil {
		return nil, mapErr(err)
	}
	if usedAt != nil {
		return nil, store.ErrTokenUsed
	}
	if !time.Now().Before(expiresAt) {
		return nil, store.ErrTokenExpired
	}

	res := &store.CompleteResult{EventID: eventID}

	if userID != nil {
		const clientQ = `INSERT INTO clients
			(id, name, email, phone, emergency_contact_name, emergency_contact_phone, medical_conditions, allergies, medications)
			VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), NULLIF($7,''), NULLIF($8,''), NULLIF($9,''))
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				phone = EXCLUDED.phone,
				emergency_contact_name = EXCLUDED.emergency_contact_name,
				emergency_contact_phone = EXCLUDED.emergency_contact_phone,
				medical_conditions = EXCLUDED.medical_conditions,
				allergies = EXCLUDED.allergies,
				medications = EXCLUDED.medications,
				updated_at = NOW()`
		_, err = tx.Exec(ctx, clientQ, *userID, p.Client.Name, p.Client.Email, p.Client.Phone,
			p.Client.EmergencyContactName, p.Client.EmergencyContactPhone,
			p.Client.MedicalConditions, p.Client.Allergies, p.Client.Medications)
		if err != nil {
			return nil, fmt.Errorf("upsert client: %w", err)
		}
		res.ClientID = userID
	}

	const submissionQ = `INSERT INTO registration_submissions
		(id, application_id, client_id, confirmed_details, agreement_accepted, agreement_accepted_at, payment_method, payment_amount, profile_deadline)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, NULLIF($6,''), $7, $8)
		RETURNING id`
	var acceptedAt *time.Time
	if p.AgreementAccepted {
		now := time.Now()
		acceptedAt = &now
	}
	err = tx.QueryRow(ctx, submissionQ, applicationID, userID, p.ConfirmedDetails,
		p.AgreementAccepted, acceptedAt, p.PaymentMethod, p.PaymentAmount, p.ProfileDeadline).
		Scan(&res.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	const ticketQ = `INSERT INTO tickets (id, event_id, client_id, ticket_type, price_gbp, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 0, $4)
		RETURNING id`
	err = tx.QueryRow(ctx, ticketQ, eventID, userID, applicationType, models.TicketStatusActive).
		Scan(&res.TicketID)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE registration_tokens SET used_at = NOW()
		WHERE token = $1 AND used_at IS NULL`, p.Token)
	if err != nil {
		return nil, fmt.Errorf("mark token used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrTokenUsed
	}

	_, err = tx.Exec(ctx, `UPDATE applications SET registration_completed = NOW(), updated_at = NOW()
		WHERE id = $1`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// GetSubmission returns a registration submission by ID.
func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*models.RegistrationSubmission, error) {
	const q = `SELECT id, application_id, client_id, confirmed_details, agreement_accepted,
		agreement_accepted_at, COALESCE(payment_method,''), payment_amount, submitted_at, profile_deadline
		FROM registration_submissions WHERE id = $1`
	var sub models.RegistrationSubmission
	err := s.pool.QueryRow(ctx, q, id).Scan(&sub.ID, &sub.ApplicationID, &sub.ClientID,
		&sub.ConfirmedDetails, &sub.AgreementAccepted, &sub.AgreementAcceptedAt,
		&sub.PaymentMethod, &sub.PaymentAmount, &sub.SubmittedAt, &sub.ProfileDeadline)
	if err != nil {
		return nil, mapErr(err)
	}
	return &sub, nil
}

// ListSubmissionsByEvent returns submissions for an event, newest first.
func (s *Store) ListSubmissionsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationSubmission, error) {
	const q = `SELECT s.id, s.application_id, s.client_id, s.confirmed_details, s.agreement_accepted,
		s.agreement_accepted_at, COALESCE(s.payment_method,''), s.payment_amount, s.submitted_at, s.profile_deadline
		FROM registration_submissions s
		JOIN applications a ON a.id = s.application_id
		WHERE a.event_id = $1 ORDER BY s.submitted_at DESC`
	rows, err := s.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RegistrationSubmission
	for rows.Next() {
		var sub models.RegistrationSubmission
		if err := rows.Scan(&sub.ID, &sub.ApplicationID, &sub.ClientID, &sub.ConfirmedDetails,
			&sub.AgreementAccepted, &sub.AgreementAcceptedAt, &sub.PaymentMethod,
			&sub.PaymentAmount, &sub.SubmittedAt, &sub.ProfileDeadline); err != nil {
			return nil, err
		}
		list = append(list, sub)
	}
	return list, rows.Err()
}

// ListTicketsByEvent returns tickets for an event, newest first.
func (s *Store) ListTicketsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	const q = `SELECT id, event_id, client_id, ticket_type, price_gbp, purchase_date, status
		FROM tickets WHERE event_id = $1 ORDER BY purchase_date DESC`
	rows, err := s.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.ClientID, &t.TicketType, &t.PriceGBP, &t.PurchaseDate, &t.Status); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
