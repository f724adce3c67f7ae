// Package analytics derives attendance statistics from registration state.
// Read-only; the same numbers must come out of the aggregate SQL path and
// the in-memory fold over materialized registrations.
package analytics

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/pkg/database"
)

// Stats summarizes attendance for one event.
type Stats struct {
	TotalRegistered int     `json:"total_registered"`
	Present         int     `json:"present"`
	Absent          int     `json:"absent"`
	Excused         int     `json:"excused"`
	NotYetValidated int     `json:"not_yet_validated"`
	AttendanceRate  float64 `json:"attendance_rate"`
	ValidationRate  float64 `json:"validation_rate"`
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// withRates fills the two percentages from the counts. Both are 0 when there
// are no active registrations.
func (s Stats) withRates() Stats {
	if s.TotalRegistered == 0 {
		return s
	}
	total := float64(s.TotalRegistered)
	s.AttendanceRate = round2(float64(s.Present) / total * 100)
	s.ValidationRate = round2(float64(s.TotalRegistered-s.NotYetValidated) / total * 100)
	return s
}

// Compute folds a materialized registration set into Stats. Only active
// registrations count; attendance is summed per outcome.
func Compute(regs []models.Registration) Stats {
	var s Stats
	for i := range regs {
		reg := &regs[i]
		if !reg.Active() {
			continue
		}
		s.TotalRegistered++
		if reg.AttendanceStatus == nil {
			s.NotYetValidated++
			continue
		}
		switch *reg.AttendanceStatus {
		case models.AttendancePresent:
			s.Present++
		case models.AttendanceAbsent:
			s.Absent++
		case models.AttendanceExcused:
			s.Excused++
		}
	}
	return s.withRates()
}

// Repository computes stats with a single aggregate query.
type Repository struct {
	db database.Querier
}

// NewRepository creates an analytics repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// attendanceStatsQuery buckets registrations the same way Compute does:
// only active rows count, split per attendance outcome, NULL meaning not
// yet validated. Column order matches the Scan below.
const attendanceStatsQuery = `SELECT
	COUNT(*) FILTER (WHERE status = 'registered'),
	COUNT(*) FILTER (WHERE status = 'registered' AND attendance_status = 'present'),
	COUNT(*) FILTER (WHERE status = 'registered' AND attendance_status = 'absent'),
	COUNT(*) FILTER (WHERE status = 'registered' AND attendance_status = 'excused'),
	COUNT(*) FILTER (WHERE status = 'registered' AND attendance_status IS NULL)
	FROM event_registrations WHERE event_id = $1`

// AttendanceStats returns per-status counts and rates for an event in one
// round trip.
func (r *Repository) AttendanceStats(ctx context.Context, eventID uuid.UUID) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, attendanceStatsQuery, eventID).
		Scan(&s.TotalRegistered, &s.Present, &s.Absent, &s.Excused, &s.NotYetValidated)
	if err != nil {
		return Stats{}, err
	}
	return s.withRates(), nil
}
