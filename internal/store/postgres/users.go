package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
)

// CreateUser inserts a new dashboard user.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (id, email, password_hash, full_name, role)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, u.Email, u.Password, u.FullName, string(u.Role)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

// GetUserByID returns a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, created_at, updated_at
		FROM users WHERE id = $1`
	var u models.User
	err := s.pool.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, created_at, updated_at
		FROM users WHERE email = $1`
	var u models.User
	err := s.pool.QueryRow(ctx, q, email).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// ListUsers returns all dashboard users.
func (s *Store) ListUsers(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, email, full_name, role, created_at
		FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
