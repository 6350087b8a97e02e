package alimtalk

import (
	"errors"
	"strings"

	"groomdesk/internal/domain/appointment"
)

// Max length constants.
const (
	MaxTitleLength = 100
	MaxBodyLength  = 1000
)

// Domain errors
var (
	ErrInvalidKind  = errors.New("template kind must be one of: reservation, reminder, completed, deposit")
	ErrEmptyBody    = errors.New("template body cannot be empty")
	ErrBodyTooLong  = errors.New("template body cannot exceed 1000 characters")
	ErrTitleTooLong = errors.New("template title cannot exceed 100 characters")
)

// Kinds lists the notification kinds that have a template.
var Kinds = []string{
	appointment.AlimtalkReservation,
	appointment.AlimtalkReminder,
	appointment.AlimtalkCompleted,
	appointment.AlimtalkDeposit,
}

// Template is a notification message with #{placeholder} fields.
type Template struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Validate checks if the Template has valid data.
// PRE: Template struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Template) Validate() error {
	if !isKind(t.Kind) {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Body) == "" {
		return ErrEmptyBody
	}
	if len(t.Body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	if len(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// Render substitutes the appointment's fields into the template body.
// Unknown placeholders are left untouched.
func (t *Template) Render(a appointment.Appointment) string {
	r := strings.NewReplacer(
		"#{guardian}", a.Guardian.Name,
		"#{pet}", a.PetNames(),
		"#{date}", a.Date,
		"#{time}", a.StartTime,
		"#{service}", a.Service,
		"#{staff}", a.StaffName,
	)
	return r.Replace(t.Body)
}

// Defaults returns one starter template per kind.
func Defaults() []Template {
	return []Template{
		{ID: "tpl-reservation", Kind: appointment.AlimtalkReservation, Title: "Booking confirmed",
			Body: "Hello #{guardian}, #{pet} is booked for #{service} on #{date} at #{time} with #{staff}."},
		{ID: "tpl-reminder", Kind: appointment.AlimtalkReminder, Title: "Appointment reminder",
			Body: "Reminder: #{pet} has a grooming appointment on #{date} at #{time}."},
		{ID: "tpl-completed", Kind: appointment.AlimtalkCompleted, Title: "Grooming finished",
			Body: "#{pet} is all done and ready for pick-up. Thank you, #{guardian}!"},
		{ID: "tpl-deposit", Kind: appointment.AlimtalkDeposit, Title: "Deposit request",
			Body: "Please send the deposit to confirm #{pet}'s booking on #{date} at #{time}."},
	}
}

// FindByKind returns the template for kind, or false if none exists.
func FindByKind(list []Template, kind string) (Template, bool) {
	for _, t := range list {
		if t.Kind == kind {
			return t, true
		}
	}
	return Template{}, false
}

func isKind(k string) bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}
