package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/application/projections"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/customer"
	"groomdesk/internal/domain/staff"
)

// DefaultDurationMinutes is the length of a new appointment when only a start time is seeded.
const DefaultDurationMinutes = 60

// Form modes
const (
	FormModeCreate = "create"
	FormModeEdit   = "edit"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found; it may have been deleted")
	ErrPetChoiceOutOfRange = errors.New("selected pet is not one of the customer's pets")
)

// PetField is one pet row of the appointment form.
type PetField struct {
	Name   string  `json:"name" validate:"required,max=50"`
	Breed  string  `json:"breed" validate:"required,max=50"`
	Weight float64 `json:"weight" validate:"gt=0"`
	Age    int     `json:"age" validate:"gte=0"`
	Memo   string  `json:"memo" validate:"max=500"`
}

// AppointmentForm is the editable state of the appointment modal.
// An empty AppointmentID means the form creates a new appointment.
type AppointmentForm struct {
	Mode            string            `json:"mode" validate:"-"`
	AppointmentID   string            `json:"appointmentId" validate:"-"`
	OriginalDate    string            `json:"originalDate,omitempty" validate:"-"`
	Date            string            `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string            `json:"startTime" validate:"required,datetime=15:04"`
	EndTime         string            `json:"endTime" validate:"required,datetime=15:04"`
	StaffID         string            `json:"staffId" validate:"required"`
	Service         string            `json:"service" validate:"required,max=100"`
	CustomerID      string            `json:"customerId,omitempty" validate:"-"`
	GuardianName    string            `json:"guardianName" validate:"required,max=50"`
	GuardianPhone   string            `json:"guardianPhone" validate:"required,max=20"`
	GuardianMemo    string            `json:"guardianMemo,omitempty" validate:"max=500"`
	AlimtalkConsent bool              `json:"alimtalkConsent"`
	Pets            []PetField        `json:"pets" validate:"min=1,dive"`
	Status          string            `json:"status" validate:"required,oneof=reserved completed cancelled"`
	Memo            string            `json:"memo,omitempty" validate:"max=1000"`
	Alimtalk        string            `json:"alimtalk" validate:"omitempty,oneof=none default reservation reminder completed deposit"`
	PetChoices      []appointment.Pet `json:"petChoices,omitempty" validate:"-"`
	StaffOptions    []staff.Staff     `json:"staffOptions,omitempty" validate:"-"`
}

// Appointment converts the form into the appointment it describes.
func (f *AppointmentForm) Appointment() appointment.Appointment {
	a := appointment.Appointment{
		ID:        f.AppointmentID,
		Date:      strings.TrimSpace(f.Date),
		StartTime: strings.TrimSpace(f.StartTime),
		EndTime:   strings.TrimSpace(f.EndTime),
		Guardian: appointment.Guardian{
			Name:            strings.TrimSpace(f.GuardianName),
			Phone:           strings.TrimSpace(f.GuardianPhone),
			Memo:            f.GuardianMemo,
			AlimtalkConsent: f.AlimtalkConsent,
		},
		Service:   strings.TrimSpace(f.Service),
		StaffID:   f.StaffID,
		StaffName: staff.NameByID(f.StaffOptions, f.StaffID),
		Status:    f.Status,
		Memo:      f.Memo,
		Alimtalk:  appointment.NormalizeAlimtalk(f.Alimtalk),
	}
	for _, p := range f.Pets {
		a.Pets = append(a.Pets, appointment.Pet{
			Name:   strings.TrimSpace(p.Name),
			Breed:  strings.TrimSpace(p.Breed),
			Weight: p.Weight,
			Age:    p.Age,
			Memo:   p.Memo,
		})
	}
	return a
}

func formFromAppointment(a appointment.Appointment) AppointmentForm {
	f := AppointmentForm{
		Mode:            FormModeEdit,
		AppointmentID:   a.ID,
		OriginalDate:    a.Date,
		Date:            a.Date,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		StaffID:         a.StaffID,
		Service:         a.Service,
		GuardianName:    a.Guardian.Name,
		GuardianPhone:   a.Guardian.Phone,
		GuardianMemo:    a.Guardian.Memo,
		AlimtalkConsent: a.Guardian.AlimtalkConsent,
		Status:          a.Status,
		Memo:            a.Memo,
		Alimtalk:        appointment.AlimtalkNone,
	}
	for _, p := range a.Pets {
		f.Pets = append(f.Pets, petField(p))
	}
	return f
}

func petField(p appointment.Pet) PetField {
	return PetField{Name: p.Name, Breed: p.Breed, Weight: p.Weight, Age: p.Age, Memo: p.Memo}
}

// FormSeed is what the clicked cell or card passes to the form.
// AppointmentID set opens the edit form; otherwise the other fields prefill a create form.
type FormSeed struct {
	AppointmentID string
	Date          string
	Time          string
	StaffID       string
}

// SeedFromAction converts a grid action into a form seed.
func SeedFromAction(a projections.Action) FormSeed {
	return FormSeed{AppointmentID: a.AppointmentID, Date: a.Date, Time: a.Time, StaffID: a.StaffID}
}

// CachedAppointments is the session cache lookup used before asking the API.
type CachedAppointments interface {
	FindByID(id string) (appointment.Appointment, bool)
}

// AppointmentReader fetches a single appointment from the API.
type AppointmentReader interface {
	GetAppointment(ctx context.Context, id string) (appointment.Appointment, error)
}

// StaffLister returns the shop's staff list.
type StaffLister interface {
	Staff(ctx context.Context) ([]staff.Staff, error)
}

// OpenAppointmentFormDeps holds dependencies for OpenAppointmentForm.
type OpenAppointmentFormDeps struct {
	Cache CachedAppointments
	API   AppointmentReader
	Staff StaffLister
}

// ExecuteOpenAppointmentForm builds the initial form state for a click.
// PRE: deps.Cache and deps.API are non-nil
// POST: edit forms carry the stored appointment; create forms carry the seed with
// end = start + DefaultDurationMinutes and status reserved
// POST: StaffOptions never contains administrators
func ExecuteOpenAppointmentForm(ctx context.Context, seed FormSeed, deps OpenAppointmentFormDeps) (AppointmentForm, error) {
	var form AppointmentForm
	if seed.AppointmentID != "" {
		a, found := deps.Cache.FindByID(seed.AppointmentID)
		if !found {
			remote, err := deps.API.GetAppointment(ctx, seed.AppointmentID)
			if errors.Is(err, api.ErrNotFound) {
				slog.Info("appointment_form_stale", "appointment_id", seed.AppointmentID)
				return AppointmentForm{}, ErrAppointmentNotFound
			}
			if err != nil {
				return AppointmentForm{}, err
			}
			a = remote
		}
		form = formFromAppointment(a)
	} else {
		form = AppointmentForm{
			Mode:      FormModeCreate,
			Date:      seed.Date,
			StartTime: seed.Time,
			Status:    appointment.StatusReserved,
			Alimtalk:  appointment.AlimtalkNone,
			Pets:      []PetField{{}},
		}
		if seed.StaffID != projections.AllStaff {
			form.StaffID = seed.StaffID
		}
		if seed.Time != "" {
			if end, err := appointment.AddMinutes(seed.Time, DefaultDurationMinutes); err == nil {
				form.EndTime = end
			}
		}
	}

	if deps.Staff != nil {
		list, err := deps.Staff.Staff(ctx)
		if err != nil {
			slog.Warn("appointment_form_staff_failed", "err", err)
		}
		form.StaffOptions = staff.Schedulable(list)
	}
	return form, nil
}

// ExecuteSelectCustomer copies a looked-up customer into the form.
// POST: guardian fields are replaced; a single pet fills the first pet row;
// several pets are offered as PetChoices and the pet rows are left untouched
func ExecuteSelectCustomer(form AppointmentForm, c customer.Customer) AppointmentForm {
	form.CustomerID = c.ID
	form.GuardianName = c.Name
	form.GuardianPhone = c.Phone
	form.GuardianMemo = c.Memo
	form.AlimtalkConsent = c.Consent
	form.PetChoices = nil

	switch len(c.Pets) {
	case 0:
	case 1:
		form = fillFirstPet(form, c.Pets[0])
	default:
		form.PetChoices = append([]appointment.Pet(nil), c.Pets...)
	}
	return form
}

// ExecuteSelectPet fills the first pet row from one of the offered PetChoices.
func ExecuteSelectPet(form AppointmentForm, index int) (AppointmentForm, error) {
	if index < 0 || index >= len(form.PetChoices) {
		return form, ErrPetChoiceOutOfRange
	}
	form = fillFirstPet(form, form.PetChoices[index])
	form.PetChoices = nil
	return form, nil
}

func fillFirstPet(form AppointmentForm, p appointment.Pet) AppointmentForm {
	pets := append([]PetField(nil), form.Pets...)
	if len(pets) == 0 {
		pets = []PetField{petField(p)}
	} else {
		pets[0] = petField(p)
	}
	form.Pets = pets
	return form
}
