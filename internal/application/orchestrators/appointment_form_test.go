package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/customer"
	"groomdesk/internal/domain/staff"
)

var fixedTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

var testStaffList = []staff.Staff{
	{ID: "owner", Name: "Owner", Role: staff.RoleAdmin},
	{ID: "s1", Name: "Jisoo", Role: staff.RoleStaff},
	{ID: "s2", Name: "Hana", Role: staff.RoleStaff},
}

// mockCache implements CachedAppointments for testing.
type mockCache map[string]appointment.Appointment

// FindByID implements CachedAppointments.
func (m mockCache) FindByID(id string) (appointment.Appointment, bool) {
	a, ok := m[id]
	return a, ok
}

// mockAppointmentsAPI implements the appointment API interfaces for testing.
type mockAppointmentsAPI struct {
	byID      map[string]appointment.Appointment
	getCalls  int
	created   []appointment.Appointment
	updated   []appointment.Appointment
	statuses  map[string]string
	deleted   []string
	byDate    []appointment.Appointment
	saveErr   error
	changeErr error
}

func newMockAppointmentsAPI() *mockAppointmentsAPI {
	return &mockAppointmentsAPI{byID: map[string]appointment.Appointment{}, statuses: map[string]string{}}
}

// GetAppointment implements AppointmentReader.
func (m *mockAppointmentsAPI) GetAppointment(_ context.Context, id string) (appointment.Appointment, error) {
	m.getCalls++
	a, ok := m.byID[id]
	if !ok {
		return appointment.Appointment{}, &api.Error{Status: 404, Message: "not found"}
	}
	return a, nil
}

// CreateAppointment implements AppointmentWriter.
func (m *mockAppointmentsAPI) CreateAppointment(_ context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	if m.saveErr != nil {
		return appointment.Appointment{}, m.saveErr
	}
	a.ID = "new-1"
	m.created = append(m.created, a)
	return a, nil
}

// UpdateAppointment implements AppointmentWriter.
func (m *mockAppointmentsAPI) UpdateAppointment(_ context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	if m.saveErr != nil {
		return appointment.Appointment{}, m.saveErr
	}
	m.updated = append(m.updated, a)
	return a, nil
}

// UpdateAppointmentStatus implements AppointmentStatusUpdater.
func (m *mockAppointmentsAPI) UpdateAppointmentStatus(_ context.Context, id, status string) error {
	if m.changeErr != nil {
		return m.changeErr
	}
	m.statuses[id] = status
	return nil
}

// DeleteAppointment implements AppointmentDeleter.
func (m *mockAppointmentsAPI) DeleteAppointment(_ context.Context, id string) error {
	if m.changeErr != nil {
		return m.changeErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// ListAppointmentsByDate implements DayAppointments.
func (m *mockAppointmentsAPI) ListAppointmentsByDate(_ context.Context, date, _ string) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	for _, a := range m.byDate {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

// mockStaff implements StaffLister for testing.
type mockStaff struct {
	list []staff.Staff
	err  error
}

// Staff implements StaffLister.
func (m mockStaff) Staff(context.Context) ([]staff.Staff, error) { return m.list, m.err }

func stored(id, date string) appointment.Appointment {
	return appointment.Appointment{
		ID: id, Date: date, StartTime: "10:00", EndTime: "11:30", StaffID: "s1",
		Guardian: appointment.Guardian{Name: "Kim Minji", Phone: "010-1234-5678", AlimtalkConsent: true},
		Pets:     []appointment.Pet{{Name: "Bori", Breed: "Maltese", Weight: 3.2}},
		Service:  "Full groom",
		Status:   appointment.StatusCompleted,
	}
}

// TestOpenAppointmentForm_SlotSeed tests the create form opened from a day-view slot.
func TestOpenAppointmentForm_SlotSeed(t *testing.T) {
	form, err := ExecuteOpenAppointmentForm(context.Background(),
		FormSeed{Date: "2024-03-01", Time: "18:30", StaffID: "s2"},
		OpenAppointmentFormDeps{Cache: mockCache{}, API: newMockAppointmentsAPI(), Staff: mockStaff{list: testStaffList}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Mode != FormModeCreate || form.AppointmentID != "" {
		t.Errorf("mode = %s, id = %q", form.Mode, form.AppointmentID)
	}
	if form.StartTime != "18:30" || form.EndTime != "19:30" {
		t.Errorf("times = %s-%s, want 18:30-19:30", form.StartTime, form.EndTime)
	}
	if form.StaffID != "s2" || form.Status != appointment.StatusReserved {
		t.Errorf("staff = %s, status = %s", form.StaffID, form.Status)
	}
	if len(form.StaffOptions) != 2 {
		t.Fatalf("staff options = %v, want admins excluded", form.StaffOptions)
	}
	for _, s := range form.StaffOptions {
		if s.IsAdmin() {
			t.Errorf("admin %s offered as staff option", s.ID)
		}
	}
}

// TestOpenAppointmentForm_BlankDateSeed tests the muted month cell and date-only seeds.
func TestOpenAppointmentForm_BlankDateSeed(t *testing.T) {
	form, err := ExecuteOpenAppointmentForm(context.Background(), FormSeed{StaffID: "all"},
		OpenAppointmentFormDeps{Cache: mockCache{}, API: newMockAppointmentsAPI()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Date != "" || form.StartTime != "" || form.EndTime != "" || form.StaffID != "" {
		t.Errorf("expected blank seed, got %+v", form)
	}
	if len(form.Pets) != 1 {
		t.Errorf("expected one empty pet row, got %d", len(form.Pets))
	}
}

// TestOpenAppointmentForm_EditFromCache opens the edit form without calling the API.
func TestOpenAppointmentForm_EditFromCache(t *testing.T) {
	remote := newMockAppointmentsAPI()
	form, err := ExecuteOpenAppointmentForm(context.Background(), FormSeed{AppointmentID: "a1"},
		OpenAppointmentFormDeps{Cache: mockCache{"a1": stored("a1", "2024-03-01")}, API: remote})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.getCalls != 0 {
		t.Errorf("API called %d times for a cached appointment", remote.getCalls)
	}
	if form.Mode != FormModeEdit || form.OriginalDate != "2024-03-01" || form.EndTime != "11:30" {
		t.Errorf("unexpected form %+v", form)
	}
	if form.Status != appointment.StatusCompleted || form.Pets[0].Breed != "Maltese" {
		t.Errorf("stored values not carried: %+v", form)
	}
}

// TestOpenAppointmentForm_EditFallsBackToAPI fetches ids the cache does not hold.
func TestOpenAppointmentForm_EditFallsBackToAPI(t *testing.T) {
	remote := newMockAppointmentsAPI()
	remote.byID["a9"] = stored("a9", "2024-04-02")
	form, err := ExecuteOpenAppointmentForm(context.Background(), FormSeed{AppointmentID: "a9"},
		OpenAppointmentFormDeps{Cache: mockCache{}, API: remote})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.AppointmentID != "a9" || remote.getCalls != 1 {
		t.Errorf("id = %s, calls = %d", form.AppointmentID, remote.getCalls)
	}
}

// TestOpenAppointmentForm_StaleID reports ErrAppointmentNotFound for a deleted appointment.
func TestOpenAppointmentForm_StaleID(t *testing.T) {
	_, err := ExecuteOpenAppointmentForm(context.Background(), FormSeed{AppointmentID: "gone"},
		OpenAppointmentFormDeps{Cache: mockCache{}, API: newMockAppointmentsAPI()})
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

// TestOpenAppointmentForm_StaffFailureStillOpens keeps the form usable without staff options.
func TestOpenAppointmentForm_StaffFailureStillOpens(t *testing.T) {
	form, err := ExecuteOpenAppointmentForm(context.Background(), FormSeed{Date: "2024-03-01"},
		OpenAppointmentFormDeps{Cache: mockCache{}, API: newMockAppointmentsAPI(), Staff: mockStaff{err: errors.New("down")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(form.StaffOptions) != 0 {
		t.Errorf("staff options = %v", form.StaffOptions)
	}
}

// TestSelectCustomer_SinglePetFills fills guardian and pet from a one-pet customer.
func TestSelectCustomer_SinglePetFills(t *testing.T) {
	form := AppointmentForm{Pets: []PetField{{}}}
	c := customer.Customer{ID: "c1", Name: "Lee", Phone: "01099998888", Consent: true,
		Pets: []appointment.Pet{{Name: "Choco", Breed: "Poodle", Weight: 4.5}}}

	form = ExecuteSelectCustomer(form, c)
	if form.GuardianName != "Lee" || form.GuardianPhone != "01099998888" || !form.AlimtalkConsent {
		t.Errorf("guardian not filled: %+v", form)
	}
	if form.Pets[0].Name != "Choco" || form.Pets[0].Weight != 4.5 {
		t.Errorf("pet not filled: %+v", form.Pets[0])
	}
	if len(form.PetChoices) != 0 {
		t.Errorf("unexpected pet choices %v", form.PetChoices)
	}
}

// TestSelectCustomer_MultiplePetsOffersChoice leaves pet rows untouched until a pet is chosen.
func TestSelectCustomer_MultiplePetsOffersChoice(t *testing.T) {
	form := AppointmentForm{Pets: []PetField{{Name: "typed"}}}
	c := customer.Customer{ID: "c1", Name: "Lee", Phone: "01099998888",
		Pets: []appointment.Pet{{Name: "Choco"}, {Name: "Mong", Breed: "Bichon", Weight: 5}}}

	form = ExecuteSelectCustomer(form, c)
	if form.Pets[0].Name != "typed" {
		t.Errorf("pet row changed before selection: %+v", form.Pets[0])
	}
	if len(form.PetChoices) != 2 {
		t.Fatalf("pet choices = %d, want 2", len(form.PetChoices))
	}

	form, err := ExecuteSelectPet(form, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Pets[0].Name != "Mong" || form.Pets[0].Breed != "Bichon" || len(form.PetChoices) != 0 {
		t.Errorf("selection not applied: %+v", form)
	}

	if _, err := ExecuteSelectPet(form, 5); !errors.Is(err, ErrPetChoiceOutOfRange) {
		t.Errorf("expected ErrPetChoiceOutOfRange, got %v", err)
	}
}
