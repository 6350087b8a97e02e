package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"groomdesk/internal/adapters/notify"
	"groomdesk/internal/domain/alimtalk"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/customer"
	"groomdesk/internal/domain/staff"
)

// Submit warnings are shown after a successful save.
const (
	WarnAlimtalkFailed     = "appointment saved, but the notification could not be sent"
	WarnAlimtalkNoConsent  = "appointment saved; notification skipped because the guardian has not consented"
	WarnAlimtalkNoTemplate = "appointment saved; no template is configured for the selected notification"
	WarnRefreshFailed      = "change saved, but the calendar could not be refreshed"
)

// AppointmentWriter creates and updates appointments on the API.
type AppointmentWriter interface {
	CreateAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error)
	UpdateAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error)
}

// TemplateSource reads the configured alimtalk templates.
type TemplateSource interface {
	Templates(ctx context.Context) ([]alimtalk.Template, error)
}

// CalendarRefresher re-fetches the calendar range containing date.
type CalendarRefresher interface {
	Refresh(ctx context.Context, date string) error
}

// SubmitAppointmentDeps holds dependencies for SubmitAppointment.
type SubmitAppointmentDeps struct {
	API       AppointmentWriter
	Staff     StaffLister
	Templates TemplateSource
	Sender    notify.Sender
	Calendar  CalendarRefresher
}

// SubmitAppointmentResult carries the saved appointment and any non-fatal warnings.
type SubmitAppointmentResult struct {
	Appointment      appointment.Appointment `json:"appointment"`
	Created          bool                    `json:"created"`
	NotificationSent bool                    `json:"notificationSent"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// ExecuteSubmitAppointment validates the form and saves it through the API.
// PRE: deps.API is non-nil
// POST: on validation failure returns *ValidationError and makes no network call
// POST: on success the affected date range is re-fetched; the cache is never updated optimistically
// INVARIANT: notification and refresh failures never turn a saved appointment into an error
func ExecuteSubmitAppointment(ctx context.Context, form AppointmentForm, deps SubmitAppointmentDeps) (SubmitAppointmentResult, error) {
	if deps.Staff != nil && len(form.StaffOptions) == 0 {
		if list, err := deps.Staff.Staff(ctx); err == nil {
			form.StaffOptions = list
		}
	}
	a := form.Appointment()
	if err := ValidateAppointmentForm(form, a); err != nil {
		return SubmitAppointmentResult{}, err
	}

	var (
		saved appointment.Appointment
		err   error
	)
	created := a.ID == ""
	if created {
		saved, err = deps.API.CreateAppointment(ctx, a)
	} else {
		saved, err = deps.API.UpdateAppointment(ctx, a)
	}
	if err != nil {
		slog.Warn("appointment_save_failed", "appointment_id", a.ID, "created", created, "err", err)
		return SubmitAppointmentResult{}, err
	}
	if saved.ID == "" {
		saved.ID = a.ID
	}
	if saved.Date == "" {
		saved = mergeSaved(a, saved)
	}
	if saved.StaffName == "" {
		saved.StaffName = a.StaffName
	}
	slog.Info("appointment_saved", "appointment_id", saved.ID, "created", created, "date", saved.Date, "staff_id", saved.StaffID)

	result := SubmitAppointmentResult{Appointment: saved, Created: created}

	if choice := appointment.NormalizeAlimtalk(form.Alimtalk); choice != appointment.AlimtalkNone {
		sent, warning := sendAlimtalk(ctx, choice, saved, deps)
		result.NotificationSent = sent
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	if deps.Calendar != nil {
		dates := []string{saved.Date}
		if form.OriginalDate != "" && form.OriginalDate != saved.Date {
			dates = append(dates, form.OriginalDate)
		}
		if refreshDates(ctx, deps.Calendar, dates) != nil {
			result.Warnings = append(result.Warnings, WarnRefreshFailed)
		}
	}
	return result, nil
}

// ValidateAppointmentForm checks struct rules and then the appointment invariants.
// POST: returns *ValidationError keyed by form field, or nil
func ValidateAppointmentForm(form AppointmentForm, a appointment.Appointment) error {
	verr := validateStruct(form)
	if len(verr.Fields) > 0 {
		return verr
	}
	if err := a.Validate(); err != nil {
		verr.Add(appointmentErrorField(err), err.Error())
		return verr
	}
	if n := len(customer.NormalizePhone(a.Guardian.Phone)); n < 9 || n > 11 {
		verr.Add("guardianPhone", customer.ErrBadPhone.Error())
	}
	if len(form.StaffOptions) > 0 {
		known := false
		for _, s := range staff.Schedulable(form.StaffOptions) {
			if s.ID == form.StaffID {
				known = true
				break
			}
		}
		if !known {
			verr.Add("staffId", "must be a staff member who takes appointments")
		}
	}
	return verr.OrNil()
}

func appointmentErrorField(err error) string {
	switch {
	case errors.Is(err, appointment.ErrInvalidDate):
		return "date"
	case errors.Is(err, appointment.ErrInvalidTime):
		return "startTime"
	case errors.Is(err, appointment.ErrStartNotBeforeEnd):
		return "endTime"
	case errors.Is(err, appointment.ErrInvalidStatus):
		return "status"
	case errors.Is(err, appointment.ErrInvalidAlimtalk):
		return "alimtalk"
	case errors.Is(err, appointment.ErrEmptyGuardianName):
		return "guardianName"
	case errors.Is(err, appointment.ErrEmptyGuardianPhone):
		return "guardianPhone"
	case errors.Is(err, appointment.ErrEmptyService):
		return "service"
	case errors.Is(err, appointment.ErrNoPets), errors.Is(err, appointment.ErrEmptyPetName), errors.Is(err, appointment.ErrEmptyPetBreed):
		return "pets"
	}
	return "form"
}

// mergeSaved fills fields the API left out of its response.
func mergeSaved(sent, got appointment.Appointment) appointment.Appointment {
	sent.ID = got.ID
	if got.Status != "" {
		sent.Status = got.Status
	}
	return sent
}

func sendAlimtalk(ctx context.Context, kind string, a appointment.Appointment, deps SubmitAppointmentDeps) (bool, string) {
	if deps.Sender == nil || deps.Templates == nil {
		return false, WarnAlimtalkNoTemplate
	}
	if !a.Guardian.AlimtalkConsent {
		slog.Info("alimtalk_skipped", "appointment_id", a.ID, "reason", "no_consent")
		return false, WarnAlimtalkNoConsent
	}
	list, err := deps.Templates.Templates(ctx)
	if err != nil {
		slog.Warn("alimtalk_templates_failed", "err", err)
		return false, WarnAlimtalkFailed
	}
	tpl, ok := alimtalk.FindByKind(list, kind)
	if !ok {
		return false, WarnAlimtalkNoTemplate
	}
	msg := notify.Message{
		To:            customer.NormalizePhone(a.Guardian.Phone),
		GuardianName:  a.Guardian.Name,
		Kind:          kind,
		Title:         tpl.Title,
		Text:          tpl.Render(a),
		AppointmentID: a.ID,
	}
	res, err := deps.Sender.Send(ctx, msg)
	if err != nil {
		slog.Warn("alimtalk_send_failed", "appointment_id", a.ID, "kind", kind, "err", err)
		return false, WarnAlimtalkFailed
	}
	slog.Info("alimtalk_sent", "appointment_id", a.ID, "kind", kind, "message_id", res.MessageID)
	return true, ""
}

func refreshDates(ctx context.Context, cal CalendarRefresher, dates []string) error {
	var firstErr error
	for _, d := range dates {
		if err := cal.Refresh(ctx, d); err != nil {
			slog.Warn("calendar_refresh_failed", "date", d, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
