// Package attendance records validated attendance outcomes on event
// registrations. Validation is restricted to ESN members and admins.
package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/internal/registrations"
	"github.com/esn-portal/backend/pkg/apperr"
)

// BulkItem is one entry of a bulk validation request.
type BulkItem struct {
	RegistrationID uuid.UUID               `json:"registration_id"`
	Status         models.AttendanceStatus `json:"status"`
}

// Service validates and resets attendance on registrations.
type Service struct {
	store  registrations.Store
	users  registrations.UserDirectory
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an attendance service.
func NewService(store registrations.Store, users registrations.UserDirectory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, users: users, logger: logger, now: time.Now}
}

// authorize resolves the validator and checks the privilege gate.
func (s *Service) authorize(ctx context.Context, validatorEmail string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, validatorEmail)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "resolve validator", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "unknown validator")
	}
	if !user.CanValidateAttendance() {
		return nil, apperr.New(apperr.Forbidden, "validator privilege required")
	}
	return user, nil
}

// checkTarget applies the shared per-registration checks: the registration
// must exist, belong to the event, and be active.
func checkTarget(reg *models.Registration, eventID uuid.UUID) error {
	if reg == nil || reg.EventID != eventID {
		return apperr.New(apperr.NotFound, "registration not found")
	}
	if !reg.Active() {
		return apperr.New(apperr.InvalidState, "registration is not active")
	}
	return nil
}

// Validate records an attendance outcome on a single registration.
func (s *Service) Validate(ctx context.Context, eventID, registrationID uuid.UUID, status models.AttendanceStatus, validatorEmail string) (*models.Registration, error) {
	validator, err := s.authorize(ctx, validatorEmail)
	if err != nil {
		return nil, err
	}
	if !models.ValidAttendanceStatus(status) {
		return nil, apperr.New(apperr.InvalidState, "invalid attendance status")
	}

	reg, err := s.store.ByID(ctx, registrationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load registration", err)
	}
	if err := checkTarget(reg, eventID); err != nil {
		return nil, err
	}

	reg.SetAttendance(status, validator.ID, s.now())
	if err := s.store.Update(ctx, reg); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "save attendance", err)
	}
	return reg, nil
}

// BulkValidate records outcomes for many registrations in one transaction.
// Items that fail their checks are skipped (logged, not reported beyond the
// returned count), duplicate registration ids count once with the first
// item's status, and a persistence error rolls back the whole batch.
func (s *Service) BulkValidate(ctx context.Context, eventID uuid.UUID, items []BulkItem, validatorEmail string) (int, error) {
	validator, err := s.authorize(ctx, validatorEmail)
	if err != nil {
		return 0, err
	}

	updated := 0
	err = s.store.WithTx(ctx, func(tx registrations.Store) error {
		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.RegistrationID)
		}
		batch, err := tx.BatchByIDs(ctx, ids)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "load registrations", err)
		}

		now := s.now()
		seen := make(map[uuid.UUID]bool, len(items))
		for _, item := range items {
			if seen[item.RegistrationID] {
				s.logger.Warn("bulk validation item skipped",
					zap.String("registration_id", item.RegistrationID.String()),
					zap.String("reason", "duplicate item"))
				continue
			}
			seen[item.RegistrationID] = true
			reg := batch[item.RegistrationID]
			if err := checkTarget(reg, eventID); err != nil {
				s.logger.Warn("bulk validation item skipped",
					zap.String("registration_id", item.RegistrationID.String()),
					zap.String("reason", err.Error()))
				continue
			}
			if !models.ValidAttendanceStatus(item.Status) {
				s.logger.Warn("bulk validation item skipped",
					zap.String("registration_id", item.RegistrationID.String()),
					zap.String("reason", "invalid attendance status"))
				continue
			}
			reg.SetAttendance(item.Status, validator.ID, now)
			if err := tx.Update(ctx, reg); err != nil {
				return apperr.Wrap(apperr.Internal, "save attendance", err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Reset clears the attendance outcome, timestamp and validator reference
// together. A missing registration or an event mismatch is NotFound, same
// convention as the sibling operations.
func (s *Service) Reset(ctx context.Context, eventID, registrationID uuid.UUID, validatorEmail string) error {
	if _, err := s.authorize(ctx, validatorEmail); err != nil {
		return err
	}

	reg, err := s.store.ByID(ctx, registrationID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "load registration", err)
	}
	if reg == nil || reg.EventID != eventID {
		return apperr.New(apperr.NotFound, "registration not found")
	}

	reg.ClearAttendance()
	if err := s.store.Update(ctx, reg); err != nil {
		return apperr.Wrap(apperr.Internal, "reset attendance", err)
	}
	return nil
}
