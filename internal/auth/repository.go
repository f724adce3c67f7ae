package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/pkg/database"
)

const userColumns = `id, email, password_hash, full_name, role, esn_member, created_at, updated_at`

// Repository is the user directory: lookup by email/id plus account creation.
type Repository struct {
	db database.Querier
}

// NewRepository creates a user repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.ESNMember, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns a user by ID, or nil when unknown.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByEmail returns a user by email, or nil when unknown.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, esnMember bool) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role, esn_member)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	var u models.User
	err := r.db.QueryRow(ctx, q, email, passwordHash, fullName, string(role), esnMember).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.ESNMember, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users for the admin member directory.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.db.Query(ctx, `SELECT id, email, full_name, role, esn_member, created_at FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.ESNMember, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// SetESNMember flips the privileged membership classification for a user.
func (r *Repository) SetESNMember(ctx context.Context, id uuid.UUID, member bool) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET esn_member = $1, updated_at = NOW() WHERE id = $2`, member, id)
	return err
}
