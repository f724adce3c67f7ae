package analytics

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/esn-portal/backend/internal/models"
)

func reg(status models.RegistrationStatus, attendance *models.AttendanceStatus) models.Registration {
	return models.Registration{
		ID:               uuid.New(),
		EventID:          uuid.New(),
		UserID:           uuid.New(),
		Status:           status,
		AttendanceStatus: attendance,
	}
}

func outcome(s models.AttendanceStatus) *models.AttendanceStatus { return &s }

// aggregate replicates the per-status counting of the SQL path so the two
// computations can be compared on the same data set.
func aggregate(regs []models.Registration) Stats {
	var s Stats
	for i := range regs {
		r := &regs[i]
		if r.Status != models.RegistrationRegistered {
			continue
		}
		s.TotalRegistered++
		switch {
		case r.AttendanceStatus == nil:
			s.NotYetValidated++
		case *r.AttendanceStatus == models.AttendancePresent:
			s.Present++
		case *r.AttendanceStatus == models.AttendanceAbsent:
			s.Absent++
		case *r.AttendanceStatus == models.AttendanceExcused:
			s.Excused++
		}
	}
	return s.withRates()
}

func TestComputeCounts(t *testing.T) {
	regs := []models.Registration{
		reg(models.RegistrationRegistered, outcome(models.AttendancePresent)),
		reg(models.RegistrationRegistered, outcome(models.AttendancePresent)),
		reg(models.RegistrationRegistered, outcome(models.AttendanceAbsent)),
		reg(models.RegistrationRegistered, outcome(models.AttendanceExcused)),
		reg(models.RegistrationRegistered, nil),
		reg(models.RegistrationRegistered, nil),
		reg(models.RegistrationCancelled, nil),
		reg(models.RegistrationCancelled, outcome(models.AttendancePresent)),
	}

	got := Compute(regs)
	want := Stats{
		TotalRegistered: 6,
		Present:         2,
		Absent:          1,
		Excused:         1,
		NotYetValidated: 2,
		AttendanceRate:  33.33,
		ValidationRate:  66.67,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestComputeMatchesAggregate(t *testing.T) {
	cases := [][]models.Registration{
		nil,
		{reg(models.RegistrationCancelled, nil)},
		{reg(models.RegistrationRegistered, nil)},
		{
			reg(models.RegistrationRegistered, outcome(models.AttendancePresent)),
			reg(models.RegistrationRegistered, outcome(models.AttendanceAbsent)),
			reg(models.RegistrationRegistered, nil),
		},
		{
			reg(models.RegistrationRegistered, outcome(models.AttendanceExcused)),
			reg(models.RegistrationPending, nil),
			reg(models.RegistrationRejected, outcome(models.AttendanceAbsent)),
			reg(models.RegistrationRegistered, outcome(models.AttendancePresent)),
			reg(models.RegistrationCancelled, outcome(models.AttendancePresent)),
		},
	}
	for i, regs := range cases {
		if got, want := Compute(regs), aggregate(regs); got != want {
			t.Fatalf("case %d: Compute %+v != aggregate %+v", i, got, want)
		}
	}
}

func TestComputeZeroRegistrations(t *testing.T) {
	got := Compute([]models.Registration{
		reg(models.RegistrationCancelled, outcome(models.AttendancePresent)),
	})
	if got.TotalRegistered != 0 || got.AttendanceRate != 0 || got.ValidationRate != 0 {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

// The SQL and the fold must assign rows to the same buckets. The query's
// FILTER predicates are pinned here, in the order the columns are scanned
// into Stats.
func TestAttendanceStatsQueryBuckets(t *testing.T) {
	buckets := []string{
		`FILTER (WHERE status = 'registered')`,
		`FILTER (WHERE status = 'registered' AND attendance_status = 'present')`,
		`FILTER (WHERE status = 'registered' AND attendance_status = 'absent')`,
		`FILTER (WHERE status = 'registered' AND attendance_status = 'excused')`,
		`FILTER (WHERE status = 'registered' AND attendance_status IS NULL)`,
	}
	pos := -1
	for _, b := range buckets {
		i := strings.Index(attendanceStatsQuery, b)
		if i < 0 {
			t.Fatalf("query missing bucket %q", b)
		}
		if i <= pos {
			t.Fatalf("bucket %q out of scan order", b)
		}
		pos = i
	}
	if n := strings.Count(attendanceStatsQuery, "status = 'registered'"); n != 5 {
		t.Fatalf("every bucket must require active status, got %d of 5", n)
	}
}

func TestRatesRounding(t *testing.T) {
	s := Stats{TotalRegistered: 3, Present: 1, NotYetValidated: 1}.withRates()
	if s.AttendanceRate != 33.33 {
		t.Fatalf("attendance rate: got %v, want 33.33", s.AttendanceRate)
	}
	if s.ValidationRate != 66.67 {
		t.Fatalf("validation rate: got %v, want 66.67", s.ValidationRate)
	}
}
