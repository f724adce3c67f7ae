package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/esn-portal/backend/internal/models"
	"github.com/esn-portal/backend/internal/registrations"
	"github.com/esn-portal/backend/pkg/apperr"
)

type fakeStore struct {
	mu         sync.Mutex
	events     map[uuid.UUID]*models.Event
	regs       map[uuid.UUID]*models.Registration
	failUpdate map[uuid.UUID]error // per-registration update failures
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:     make(map[uuid.UUID]*models.Event),
		regs:       make(map[uuid.UUID]*models.Registration),
		failUpdate: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) EventByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if e, ok := f.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) EventForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return f.EventByID(ctx, id)
}

func (f *fakeStore) CountActive(_ context.Context, eventID uuid.UUID) (int, error) {
	n := 0
	for _, reg := range f.regs {
		if reg.EventID == eventID && reg.Active() {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ByEventAndUser(_ context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	for _, reg := range f.regs {
		if reg.EventID == eventID && reg.UserID == userID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	if reg, ok := f.regs[id]; ok {
		cp := *reg
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) BatchByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Registration, error) {
	out := make(map[uuid.UUID]*models.Registration)
	for _, id := range ids {
		if reg, ok := f.regs[id]; ok {
			cp := *reg
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	var list []models.Registration
	for _, reg := range f.regs {
		if reg.EventID == eventID {
			list = append(list, *reg)
		}
	}
	return list, nil
}

func (f *fakeStore) Insert(_ context.Context, reg *models.Registration) error {
	reg.ID = uuid.New()
	cp := *reg
	f.regs[reg.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, reg *models.Registration) error {
	if err := f.failUpdate[reg.ID]; err != nil {
		return err
	}
	cp := *reg
	f.regs[reg.ID] = &cp
	return nil
}

func (f *fakeStore) WithTx(_ context.Context, fn func(tx registrations.Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := make(map[uuid.UUID]*models.Registration, len(f.regs))
	for id, reg := range f.regs {
		cp := *reg
		snap[id] = &cp
	}
	if err := fn(f); err != nil {
		f.regs = snap
		return err
	}
	return nil
}

type fakeDirectory struct {
	byEmail map[string]*models.User
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return d.byEmail[email], nil
}

type fixture struct {
	store   *fakeStore
	dir     *fakeDirectory
	svc     *Service
	now     time.Time
	event   *models.Event
	otherEv *models.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newFakeStore(),
		dir:   &fakeDirectory{byEmail: make(map[string]*models.User)},
		now:   time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.dir, nil)
	f.svc.now = func() time.Time { return f.now }

	f.event = &models.Event{ID: uuid.New(), Title: "City Tour", StartsAt: f.now.Add(-2 * time.Hour)}
	f.otherEv = &models.Event{ID: uuid.New(), Title: "Pub Quiz", StartsAt: f.now.Add(-2 * time.Hour)}
	f.store.events[f.event.ID] = f.event
	f.store.events[f.otherEv.ID] = f.otherEv

	f.dir.byEmail["validator@esn.org"] = &models.User{
		ID: uuid.New(), Email: "validator@esn.org", Role: models.RoleMember, ESNMember: true,
	}
	f.dir.byEmail["admin@esn.org"] = &models.User{
		ID: uuid.New(), Email: "admin@esn.org", Role: models.RoleAdmin,
	}
	f.dir.byEmail["regular@esn.org"] = &models.User{
		ID: uuid.New(), Email: "regular@esn.org", Role: models.RoleMember,
	}
	return f
}

func (f *fixture) addRegistration(eventID uuid.UUID, status models.RegistrationStatus) *models.Registration {
	reg := &models.Registration{
		ID:           uuid.New(),
		EventID:      eventID,
		UserID:       uuid.New(),
		Status:       status,
		RegisteredAt: f.now.Add(-time.Hour),
	}
	f.store.regs[reg.ID] = reg
	return reg
}

func TestValidateAuthorization(t *testing.T) {
	f := newFixture(t)
	reg := f.addRegistration(f.event.ID, models.RegistrationRegistered)
	ctx := context.Background()

	if _, err := f.svc.Validate(ctx, f.event.ID, reg.ID, models.AttendancePresent, "ghost@esn.org"); !apperr.Is(err, apperr.Unauthorized) {
		t.Fatalf("unknown validator: expected Unauthorized, got %v", err)
	}
	if _, err := f.svc.Validate(ctx, f.event.ID, reg.ID, models.AttendancePresent, "regular@esn.org"); !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("unprivileged validator: expected Forbidden, got %v", err)
	}
	if _, err := f.svc.Validate(ctx, f.event.ID, reg.ID, models.AttendancePresent, "validator@esn.org"); err != nil {
		t.Fatalf("ESN member validator: %v", err)
	}
	if _, err := f.svc.Validate(ctx, f.event.ID, reg.ID, models.AttendanceAbsent, "admin@esn.org"); err != nil {
		t.Fatalf("admin validator: %v", err)
	}
}

func TestValidateSetsAttendanceFields(t *testing.T) {
	f := newFixture(t)
	reg := f.addRegistration(f.event.ID, models.RegistrationRegistered)

	out, err := f.svc.Validate(context.Background(), f.event.ID, reg.ID, models.AttendanceExcused, "validator@esn.org")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if out.AttendanceStatus == nil || *out.AttendanceStatus != models.AttendanceExcused {
		t.Fatalf("expected excused outcome, got %v", out.AttendanceStatus)
	}
	if out.ValidatedAt == nil || !out.ValidatedAt.Equal(f.now) {
		t.Fatalf("expected validated_at %v, got %v", f.now, out.ValidatedAt)
	}
	if out.ValidatedBy == nil || *out.ValidatedBy != f.dir.byEmail["validator@esn.org"].ID {
		t.Fatalf("expected validator reference, got %v", out.ValidatedBy)
	}
}

func TestValidateTargetChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Validate(ctx, f.event.ID, uuid.New(), models.AttendancePresent, "validator@esn.org"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("missing registration: expected NotFound, got %v", err)
	}

	other := f.addRegistration(f.otherEv.ID, models.RegistrationRegistered)
	if _, err := f.svc.Validate(ctx, f.event.ID, other.ID, models.AttendancePresent, "validator@esn.org"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("event mismatch: expected NotFound, got %v", err)
	}

	cancelled := f.addRegistration(f.event.ID, models.RegistrationCancelled)
	if _, err := f.svc.Validate(ctx, f.event.ID, cancelled.ID, models.AttendancePresent, "validator@esn.org"); !apperr.Is(err, apperr.InvalidState) {
		t.Fatalf("cancelled registration: expected InvalidState, got %v", err)
	}

	active := f.addRegistration(f.event.ID, models.RegistrationRegistered)
	if _, err := f.svc.Validate(ctx, f.event.ID, active.ID, models.AttendanceStatus("late"), "validator@esn.org"); !apperr.Is(err, apperr.InvalidState) {
		t.Fatalf("bad outcome: expected InvalidState, got %v", err)
	}
}

func TestBulkValidatePartialSuccess(t *testing.T) {
	f := newFixture(t)
	var items []BulkItem

	// 3 registrations on the right event, 2 on another one.
	var matching []*models.Registration
	for i := 0; i < 3; i++ {
		reg := f.addRegistration(f.event.ID, models.RegistrationRegistered)
		matching = append(matching, reg)
		items = append(items, BulkItem{RegistrationID: reg.ID, Status: models.AttendancePresent})
	}
	var mismatched []*models.Registration
	for i := 0; i < 2; i++ {
		reg := f.addRegistration(f.otherEv.ID, models.RegistrationRegistered)
		mismatched = append(mismatched, reg)
		items = append(items, BulkItem{RegistrationID: reg.ID, Status: models.AttendancePresent})
	}

	updated, err := f.svc.BulkValidate(context.Background(), f.event.ID, items, "validator@esn.org")
	if err != nil {
		t.Fatalf("bulk validate: %v", err)
	}
	if updated != 3 {
		t.Fatalf("expected 3 updated, got %d", updated)
	}
	for _, reg := range matching {
		if got := f.store.regs[reg.ID]; got.AttendanceStatus == nil {
			t.Fatalf("matching registration %s not updated", reg.ID)
		}
	}
	for _, reg := range mismatched {
		if got := f.store.regs[reg.ID]; got.AttendanceStatus != nil {
			t.Fatalf("mismatched registration %s was mutated", reg.ID)
		}
	}
}

func TestBulkValidateDuplicateItemsCountOnce(t *testing.T) {
	f := newFixture(t)
	reg := f.addRegistration(f.event.ID, models.RegistrationRegistered)
	other := f.addRegistration(f.event.ID, models.RegistrationRegistered)

	items := []BulkItem{
		{RegistrationID: reg.ID, Status: models.AttendancePresent},
		{RegistrationID: reg.ID, Status: models.AttendanceAbsent},
		{RegistrationID: other.ID, Status: models.AttendanceExcused},
		{RegistrationID: reg.ID, Status: models.AttendancePresent},
	}

	updated, err := f.svc.BulkValidate(context.Background(), f.event.ID, items, "validator@esn.org")
	if err != nil {
		t.Fatalf("bulk validate: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 distinct records updated, got %d", updated)
	}
	// the first occurrence wins for the duplicated id
	if got := f.store.regs[reg.ID].AttendanceStatus; got == nil || *got != models.AttendancePresent {
		t.Fatalf("duplicated id: got %v, want present", got)
	}
}

func TestBulkValidateRollsBackOnPersistenceError(t *testing.T) {
	f := newFixture(t)
	var items []BulkItem
	var regs []*models.Registration
	for i := 0; i < 3; i++ {
		reg := f.addRegistration(f.event.ID, models.RegistrationRegistered)
		regs = append(regs, reg)
		items = append(items, BulkItem{RegistrationID: reg.ID, Status: models.AttendancePresent})
	}
	f.store.failUpdate[regs[2].ID] = fmt.Errorf("connection reset")

	if _, err := f.svc.BulkValidate(context.Background(), f.event.ID, items, "validator@esn.org"); err == nil {
		t.Fatal("expected error")
	}
	for _, reg := range regs {
		if got := f.store.regs[reg.ID]; got.AttendanceStatus != nil {
			t.Fatalf("registration %s mutated despite rollback", reg.ID)
		}
	}
}

func TestResetClearsAllFieldsTogether(t *testing.T) {
	f := newFixture(t)
	reg := f.addRegistration(f.event.ID, models.RegistrationRegistered)
	if _, err := f.svc.Validate(context.Background(), f.event.ID, reg.ID, models.AttendancePresent, "validator@esn.org"); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := f.svc.Reset(context.Background(), f.event.ID, reg.ID, "validator@esn.org"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got := f.store.regs[reg.ID]
	if got.AttendanceStatus != nil || got.ValidatedAt != nil || got.ValidatedBy != nil {
		t.Fatalf("expected all attendance fields cleared, got %+v", got)
	}
}

func TestResetNotFoundConvention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Reset(ctx, f.event.ID, uuid.New(), "validator@esn.org"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("missing registration: expected NotFound, got %v", err)
	}
	other := f.addRegistration(f.otherEv.ID, models.RegistrationRegistered)
	if err := f.svc.Reset(ctx, f.event.ID, other.ID, "validator@esn.org"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("event mismatch: expected NotFound, got %v", err)
	}
	if err := f.svc.Reset(ctx, f.event.ID, other.ID, "regular@esn.org"); !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("unprivileged caller: expected Forbidden, got %v", err)
	}
}
