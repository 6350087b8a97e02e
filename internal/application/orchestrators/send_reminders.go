package orchestrators

import (
	"context"
	"log/slog"

	"groomdesk/internal/adapters/notify"
	"groomdesk/internal/application/projections"
	"groomdesk/internal/domain/alimtalk"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/customer"
)

// DayAppointments lists one date's appointments on the API.
type DayAppointments interface {
	ListAppointmentsByDate(ctx context.Context, date, staffID string) ([]appointment.Appointment, error)
}

// SendRemindersInput selects the date whose guardians get a reminder.
type SendRemindersInput struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SendRemindersDeps holds dependencies for SendReminders.
type SendRemindersDeps struct {
	Appointments DayAppointments
	Templates    TemplateSource
	Sender       notify.Sender
}

// SendRemindersResult counts the outcome of a reminder run.
type SendRemindersResult struct {
	Date    string `json:"date"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// ExecuteSendReminders sends the reminder template to every reserved, consenting guardian on a date.
// PRE: deps are non-nil
// POST: cancelled and completed appointments and guardians without consent are skipped
func ExecuteSendReminders(ctx context.Context, input SendRemindersInput, deps SendRemindersDeps) (SendRemindersResult, error) {
	if err := validateStruct(input).OrNil(); err != nil {
		return SendRemindersResult{}, err
	}
	list, err := deps.Templates.Templates(ctx)
	if err != nil {
		return SendRemindersResult{}, err
	}
	tpl, ok := alimtalk.FindByKind(list, appointment.AlimtalkReminder)
	if !ok {
		return SendRemindersResult{}, &ValidationError{Fields: map[string]string{"template": "no reminder template is configured"}}
	}
	records, err := deps.Appointments.ListAppointmentsByDate(ctx, input.Date, projections.AllStaff)
	if err != nil {
		return SendRemindersResult{}, err
	}

	result := SendRemindersResult{Date: input.Date}
	var msgs []notify.Message
	for _, a := range records {
		if a.Status != appointment.StatusReserved || !a.Guardian.AlimtalkConsent || a.Guardian.Phone == "" {
			result.Skipped++
			continue
		}
		msgs = append(msgs, notify.Message{
			To:            customer.NormalizePhone(a.Guardian.Phone),
			GuardianName:  a.Guardian.Name,
			Kind:          appointment.AlimtalkReminder,
			Title:         tpl.Title,
			Text:          tpl.Render(a),
			AppointmentID: a.ID,
		})
	}
	if len(msgs) == 0 {
		return result, nil
	}

	sent, err := deps.Sender.SendBatch(ctx, msgs)
	result.Sent = len(sent)
	result.Failed = len(msgs) - len(sent)
	if err != nil {
		slog.Warn("reminders_send_failed", "date", input.Date, "sent", result.Sent, "failed", result.Failed, "err", err)
	}
	slog.Info("reminders_sent", "date", input.Date, "sent", result.Sent, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}
