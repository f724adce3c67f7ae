package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle state of an event registration.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationPending    RegistrationStatus = "pending"
	RegistrationApproved   RegistrationStatus = "approved"
	RegistrationRejected   RegistrationStatus = "rejected"
)

// AttendanceStatus is the validated attendance outcome for a registration.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

// ValidAttendanceStatus reports whether s is a known attendance outcome.
func ValidAttendanceStatus(s AttendanceStatus) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcused:
		return true
	}
	return false
}

// Registration links one user to one event; unique per (event, user).
// Re-registration after cancellation reuses the same record.
// The attendance fields are set only while Status is registered and are
// cleared together as a unit.
type Registration struct {
	ID               uuid.UUID          `json:"id"`
	EventID          uuid.UUID          `json:"event_id"`
	UserID           uuid.UUID          `json:"user_id"`
	Status           RegistrationStatus `json:"status"`
	RegisteredAt     time.Time          `json:"registered_at"`
	FormData         json.RawMessage    `json:"form_data,omitempty"`
	AttendanceStatus *AttendanceStatus  `json:"attendance_status,omitempty"`
	ValidatedAt      *time.Time         `json:"validated_at,omitempty"`
	ValidatedBy      *uuid.UUID         `json:"validated_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Active reports whether the registration counts toward event capacity.
func (r *Registration) Active() bool {
	return r.Status == RegistrationRegistered
}

// SetAttendance records a validated outcome.
func (r *Registration) SetAttendance(status AttendanceStatus, validatorID uuid.UUID, at time.Time) {
	r.AttendanceStatus = &status
	r.ValidatedAt = &at
	r.ValidatedBy = &validatorID
}

// ClearAttendance resets all three attendance fields together.
func (r *Registration) ClearAttendance() {
	r.AttendanceStatus = nil
	r.ValidatedAt = nil
	r.ValidatedBy = nil
}
