package models

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a section event members can register for.
// MaxParticipants, when set, is a hard ceiling on active registrations.
type Event struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	MaxParticipants *int       `json:"max_participants,omitempty"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RegistrationOpenAt reports whether registration is open at t.
// The window runs from the event start to its end (unbounded when no end).
func (e *Event) RegistrationOpenAt(t time.Time) bool {
	if t.Before(e.StartsAt) {
		return false
	}
	if e.EndsAt != nil && t.After(*e.EndsAt) {
		return false
	}
	return true
}
