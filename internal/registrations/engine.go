package registrations

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/pkg/apperr"
	"github.com/esn-portal/backend/pkg/queue"
)

// Notifier enqueues registration emails. A nil Notifier disables them.
type Notifier interface {
	EnqueueRegistrationEmail(ctx context.Context, payload queue.RegistrationEmailPayload) error
}

// Engine enforces the registration invariants: one record per (event, user),
// registration only inside the event window, and capacity as a hard ceiling
// on active registrations.
type Engine struct {
	store    Store
	users    UserDirectory
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates a registration engine.
func NewEngine(store Store, users UserDirectory, notifier Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, users: users, notifier: notifier, logger: logger, now: time.Now}
}

func (e *Engine) resolveCaller(ctx context.Context, email string) (*models.User, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "resolve caller", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "unknown caller")
	}
	return user, nil
}

// Register registers the caller for the event. The whole check-and-write
// sequence runs in one transaction: the event row is locked before the
// capacity recount so concurrent calls cannot jointly exceed the ceiling.
// A cancelled registration is reactivated in place, never duplicated, and
// reactivation goes through the same capacity check as a fresh insert.
func (e *Engine) Register(ctx context.Context, eventID uuid.UUID, callerEmail string, formData json.RawMessage) (*models.Registration, error) {
	user, err := e.resolveCaller(ctx, callerEmail)
	if err != nil {
		return nil, err
	}

	var out *models.Registration
	var event *models.Event
	err = e.store.WithTx(ctx, func(tx Store) error {
		ev, err := tx.EventForUpdate(ctx, eventID)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "load event", err)
		}
		if ev == nil {
			return apperr.New(apperr.NotFound, "event not found")
		}
		event = ev

		now := e.now()
		if now.Before(ev.StartsAt) {
			return apperr.New(apperr.InvalidState, "registration not open")
		}
		if ev.EndsAt != nil && now.After(*ev.EndsAt) {
			return apperr.New(apperr.InvalidState, "registration closed")
		}

		existing, err := tx.ByEventAndUser(ctx, eventID, user.ID)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "load registration", err)
		}
		if existing != nil {
			if existing.Active() {
				return apperr.New(apperr.Conflict, "already registered")
			}
			// reactivation adds an active registration, so the ceiling
			// applies here too
			count, err := tx.CountActive(ctx, eventID)
			if err != nil {
				return apperr.Wrap(apperr.Internal, "count registrations", err)
			}
			if ev.MaxParticipants != nil && count >= *ev.MaxParticipants {
				return apperr.New(apperr.Conflict, "event full")
			}
			existing.Status = models.RegistrationRegistered
			existing.RegisteredAt = now
			existing.FormData = formData
			if err := tx.Update(ctx, existing); err != nil {
				return apperr.Wrap(apperr.Internal, "reactivate registration", err)
			}
			out = existing
			return nil
		}

		count, err := tx.CountActive(ctx, eventID)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "count registrations", err)
		}
		if ev.MaxParticipants != nil && count >= *ev.MaxParticipants {
			return apperr.New(apperr.Conflict, "event full")
		}

		reg := &models.Registration{
			EventID:      eventID,
			UserID:       user.ID,
			Status:       models.RegistrationRegistered,
			RegisteredAt: now,
			FormData:     formData,
		}
		if err := tx.Insert(ctx, reg); err != nil {
			return apperr.Wrap(apperr.Internal, "insert registration", err)
		}
		out = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, queue.EmailRegistrationConfirmed, event, out, user)
	return out, nil
}

// Unregister flips the caller's registration to cancelled. The record is
// kept so a later Register reactivates it instead of inserting a duplicate.
func (e *Engine) Unregister(ctx context.Context, eventID uuid.UUID, callerEmail string) (*models.Registration, error) {
	user, err := e.resolveCaller(ctx, callerEmail)
	if err != nil {
		return nil, err
	}

	reg, err := e.store.ByEventAndUser(ctx, eventID, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load registration", err)
	}
	if reg == nil || reg.Status == models.RegistrationCancelled {
		return nil, apperr.New(apperr.NotFound, "no active registration")
	}

	reg.Status = models.RegistrationCancelled
	if err := e.store.Update(ctx, reg); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "cancel registration", err)
	}

	event, evErr := e.store.EventByID(ctx, eventID)
	if evErr == nil && event != nil {
		e.notify(ctx, queue.EmailRegistrationCancelled, event, reg, user)
	}
	return reg, nil
}

// ListByEvent returns the event's registrations for the organizer view.
func (e *Engine) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	event, err := e.store.EventByID(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load event", err)
	}
	if event == nil {
		return nil, apperr.New(apperr.NotFound, "event not found")
	}
	list, err := e.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list registrations", err)
	}
	return list, nil
}

// notify enqueues a registration email; delivery failures never fail the call.
func (e *Engine) notify(ctx context.Context, kind queue.EmailKind, event *models.Event, reg *models.Registration, user *models.User) {
	if e.notifier == nil || event == nil || reg == nil {
		return
	}
	err := e.notifier.EnqueueRegistrationEmail(ctx, queue.RegistrationEmailPayload{
		Kind:           kind,
		EventID:        event.ID,
		EventTitle:     event.Title,
		RegistrationID: reg.ID,
		RecipientEmail: user.Email,
		RecipientName:  user.FullName,
	})
	if err != nil {
		e.logger.Warn("enqueue registration email failed",
			zap.Error(err),
			zap.String("registration_id", reg.ID.String()))
	}
}
