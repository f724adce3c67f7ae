package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/pkg/database"
)

// UserDirectory resolves caller and validator identities.
// Lookups return nil (not an error) when the user is unknown.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store is the persistence surface for the registration engine and the
// attendance validator. Lookups return nil when the record is missing.
// WithTx runs fn against a transaction-bound Store and must serialize
// concurrent registrations for the same event: EventForUpdate takes a row
// lock so the capacity recount and the insert commit atomically.
type Store interface {
	EventByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	EventForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error)
	CountActive(ctx context.Context, eventID uuid.UUID) (int, error)
	ByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	BatchByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	Insert(ctx context.Context, reg *models.Registration) error
	Update(ctx context.Context, reg *models.Registration) error
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

const regColumns = `id, event_id, user_id, status, registered_at, form_data, attendance_status, validated_at, validated_by, created_at, updated_at`

// Repository is the pgx-backed Store.
type Repository struct {
	db   database.Querier
	pool *pgxpool.Pool // nil when bound to a transaction
}

// NewRepository creates a registration repository over a connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var r models.Registration
	var attendance *string
	err := row.Scan(&r.ID, &r.EventID, &r.UserID, &r.Status, &r.RegisteredAt, &r.FormData,
		&attendance, &r.ValidatedAt, &r.ValidatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if attendance != nil {
		s := models.AttendanceStatus(*attendance)
		r.AttendanceStatus = &s
	}
	return &r, nil
}

// EventByID returns the event, or nil when missing.
func (r *Repository) EventByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.eventQuery(ctx, id, "")
}

// EventForUpdate returns the event under a row lock. Only meaningful inside
// WithTx; the lock serializes concurrent capacity checks for one event.
func (r *Repository) EventForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.eventQuery(ctx, id, " FOR UPDATE")
}

func (r *Repository) eventQuery(ctx context.Context, id uuid.UUID, suffix string) (*models.Event, error) {
	q := `SELECT id, title, description, starts_at, ends_at, max_participants, created_by, created_at, updated_at
		FROM events WHERE id = $1` + suffix
	var e models.Event
	err := r.db.QueryRow(ctx, q, id).Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.MaxParticipants, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CountActive returns the number of registrations with status 'registered'.
func (r *Repository) CountActive(ctx context.Context, eventID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND status = 'registered'`
	var n int
	err := r.db.QueryRow(ctx, q, eventID).Scan(&n)
	return n, err
}

// ByEventAndUser returns the registration for (event, user), or nil.
func (r *Repository) ByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM event_registrations WHERE event_id = $1 AND user_id = $2`
	return scanRegistration(r.db.QueryRow(ctx, q, eventID, userID))
}

// ByID returns a registration by ID, or nil.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM event_registrations WHERE id = $1`
	return scanRegistration(r.db.QueryRow(ctx, q, id))
}

// BatchByIDs returns all registrations matching ids in one round trip.
func (r *Repository) BatchByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM event_registrations WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*models.Registration, len(ids))
	for rows.Next() {
		var reg models.Registration
		var attendance *string
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.FormData,
			&attendance, &reg.ValidatedAt, &reg.ValidatedBy, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		if attendance != nil {
			s := models.AttendanceStatus(*attendance)
			reg.AttendanceStatus = &s
		}
		cp := reg
		out[reg.ID] = &cp
	}
	return out, rows.Err()
}

// ListByEvent returns all registrations for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM event_registrations WHERE event_id = $1 ORDER BY registered_at DESC`
	rows, err := r.db.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		var attendance *string
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.FormData,
			&attendance, &reg.ValidatedAt, &reg.ValidatedBy, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		if attendance != nil {
			s := models.AttendanceStatus(*attendance)
			reg.AttendanceStatus = &s
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// Insert creates a registration row.
func (r *Repository) Insert(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO event_registrations (event_id, user_id, status, registered_at, form_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, reg.EventID, reg.UserID, string(reg.Status), reg.RegisteredAt, reg.FormData).
		Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
}

// Update persists the mutable registration fields.
func (r *Repository) Update(ctx context.Context, reg *models.Registration) error {
	const q = `UPDATE event_registrations
		SET status = $1, registered_at = $2, form_data = $3,
			attendance_status = $4, validated_at = $5, validated_by = $6,
			updated_at = NOW()
		WHERE id = $7`
	var attendance *string
	if reg.AttendanceStatus != nil {
		s := string(*reg.AttendanceStatus)
		attendance = &s
	}
	_, err := r.db.Exec(ctx, q, string(reg.Status), reg.RegisteredAt, reg.FormData,
		attendance, reg.ValidatedAt, reg.ValidatedBy, reg.ID)
	return err
}

// WithTx runs fn inside a transaction; commits on nil, rolls back on error.
// Calling WithTx on an already transaction-bound repository reuses the
// open transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	bound := &Repository{db: tx}
	if err := fn(bound); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
