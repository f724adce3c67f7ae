package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/pkg/database"
)

const eventColumns = `id, title, description, starts_at, ends_at, max_participants, created_by, created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	db database.Querier
}

// NewRepository creates an event repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.MaxParticipants, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, description, starts_at, ends_at, max_participants, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, e.Title, e.Description, e.StartsAt, e.EndsAt, e.MaxParticipants, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// FindByID returns an event by ID, or nil when missing.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// List returns events, optionally only those not yet ended at the given time.
func (r *Repository) List(ctx context.Context, upcomingAfter *time.Time) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	if upcomingAfter != nil {
		q += ` WHERE starts_at >= $1 OR (ends_at IS NOT NULL AND ends_at >= $1)`
		args = append(args, *upcomingAfter)
	}
	rows, err := r.db.Query(ctx, q+` ORDER BY starts_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.MaxParticipants, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update updates event fields. Nil time/capacity arguments keep current values.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description string, startsAt, endsAt *time.Time, maxParticipants *int) error {
	const q = `UPDATE events SET title = $1, description = $2,
		starts_at = COALESCE($3, starts_at), ends_at = COALESCE($4, ends_at),
		max_participants = COALESCE($5, max_participants), updated_at = NOW()
		WHERE id = $6`
	_, err := r.db.Exec(ctx, q, title, description, startsAt, endsAt, maxParticipants, id)
	return err
}

// Delete removes an event by ID; registrations cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}
