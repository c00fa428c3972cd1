package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
)

// CreateApplication inserts a new application (unique per event+email+type).
func (s *Store) CreateApplication(ctx context.Context, a *models.Application) error {
	const q = `INSERT INTO applications
		(id, event_id, user_id, application_type, status, applicant_name, applicant_email, studio_name, portfolio_url)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, NULLIF($7,''), NULLIF($8,''))
		RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, a.EventID, a.UserID, a.ApplicationType, a.Status,
		a.ApplicantName, a.ApplicantEmail, a.StudioName, a.PortfolioURL).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

// GetApplication returns an application by ID.
func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	const q = `SELECT id, event_id, user_id, application_type, status, applicant_name, applicant_email,
		COALESCE(studio_name,''), COALESCE(portfolio_url,''), registration_completed, created_at, updated_at
		FROM applications WHERE id = $1`
	var a models.Application
	err := s.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.EventID, &a.UserID, &a.ApplicationType,
		&a.Status, &a.ApplicantName, &a.ApplicantEmail, &a.StudioName, &a.PortfolioURL,
		&a.RegistrationCompleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// ListApplicationsByEvent returns applications for an event, optionally
// filtered by status.
func (s *Store) ListApplicationsByEvent(ctx context.Context, eventID uuid.UUID, status string) ([]models.Application, error) {
	base := `SELECT id, event_id, user_id, application_type, status, applicant_name, applicant_email,
		COALESCE(studio_name,''), COALESCE(portfolio_url,''), registration_completed, created_at, updated_at
		FROM applications WHERE event_id = $1`
	args := []interface{}{eventID}
	if status != "" {
		base += ` AND status = $2`
		args = append(args, status)
	}
	rows, err := s.pool.Query(ctx, base+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Application
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.ID, &a.EventID, &a.UserID, &a.ApplicationType, &a.Status,
			&a.ApplicantName, &a.ApplicantEmail, &a.StudioName, &a.PortfolioURL,
			&a.RegistrationCompleted, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// UpdateApplicationStatus sets an application's review status.
func (s *Store) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE applications SET status = $1, updated_at = NOW() WHERE id = $2`
	tag, err := s.pool.Exec(ctx, q, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateToken inserts a registration token minted on approval.
func (s *Store) CreateToken(ctx context.Context, t *models.RegistrationToken) error {
	const q = `INSERT INTO registration_tokens (token, application_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING used_at, created_at`
	err := s.pool.QueryRow(ctx, q, t.Token, t.ApplicationID, t.ExpiresAt).
		Scan(&t.UsedAt, &t.CreatedAt)
	return mapErr(err)
}
