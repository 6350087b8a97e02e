package appointment

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Status constants
const (
	StatusReserved  = "reserved"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Alimtalk notification choices sent alongside an appointment event.
const (
	AlimtalkNone        = "none"
	AlimtalkReservation = "reservation"
	AlimtalkReminder    = "reminder"
	AlimtalkCompleted   = "completed"
	AlimtalkDeposit     = "deposit"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusReserved, StatusCompleted, StatusCancelled}

// ValidAlimtalk contains all valid notification choices.
var ValidAlimtalk = []string{AlimtalkNone, AlimtalkReservation, AlimtalkReminder, AlimtalkCompleted, AlimtalkDeposit}

const clockLayout = "15:04"

// Domain errors
var (
	ErrInvalidDate        = errors.New("appointment date must be in YYYY-MM-DD format")
	ErrInvalidTime        = errors.New("appointment times must be zero-padded HH:MM")
	ErrStartNotBeforeEnd  = errors.New("appointment start time must be before end time")
	ErrInvalidStatus      = errors.New("status must be one of: reserved, completed, cancelled")
	ErrInvalidAlimtalk    = errors.New("alimtalk must be one of: none, reservation, reminder, completed, deposit")
	ErrEmptyGuardianName  = errors.New("guardian name cannot be empty")
	ErrEmptyGuardianPhone = errors.New("guardian phone cannot be empty")
	ErrNoPets             = errors.New("at least one pet is required")
	ErrEmptyPetName       = errors.New("pet name cannot be empty")
	ErrEmptyPetBreed      = errors.New("pet breed cannot be empty")
	ErrEmptyService       = errors.New("service cannot be empty")
)

// Guardian is the customer snapshot stored on an appointment.
type Guardian struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Memo            string `json:"memo,omitempty"`
	AlimtalkConsent bool   `json:"alimtalkConsent"`
}

// Pet is a pet snapshot stored on an appointment or a customer.
type Pet struct {
	Name   string  `json:"name"`
	Breed  string  `json:"breed"`
	Weight float64 `json:"weight"`
	Age    int     `json:"age,omitempty"`
	Memo   string  `json:"memo,omitempty"`
}

// Appointment is a single grooming booking.
// Guardian and Pets are copies taken at creation time, not live references to a customer.
type Appointment struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`      // YYYY-MM-DD
	StartTime string   `json:"startTime"` // HH:MM, 24h
	EndTime   string   `json:"endTime"`   // HH:MM, 24h
	Guardian  Guardian `json:"guardian"`
	Pets      []Pet    `json:"pets"`
	Service   string   `json:"service"`
	StaffID   string   `json:"staffId"`
	StaffName string   `json:"staffName,omitempty"`
	Status    string   `json:"status"`
	Memo      string   `json:"memo,omitempty"`
	Alimtalk  string   `json:"alimtalk,omitempty"`
}

// Validate checks the appointment's invariants.
// PRE: none
// POST: returns nil if valid, the first violation otherwise
func (a *Appointment) Validate() error {
	if _, err := time.Parse("2006-01-02", a.Date); err != nil {
		return ErrInvalidDate
	}
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return ErrStartNotBeforeEnd
	}
	if !isOneOf(a.Status, ValidStatuses) {
		return ErrInvalidStatus
	}
	if a.Alimtalk != "" && !isOneOf(NormalizeAlimtalk(a.Alimtalk), ValidAlimtalk) {
		return ErrInvalidAlimtalk
	}
	if strings.TrimSpace(a.Guardian.Name) == "" {
		return ErrEmptyGuardianName
	}
	if strings.TrimSpace(a.Guardian.Phone) == "" {
		return ErrEmptyGuardianPhone
	}
	if strings.TrimSpace(a.Service) == "" {
		return ErrEmptyService
	}
	if len(a.Pets) == 0 {
		return ErrNoPets
	}
	for _, p := range a.Pets {
		if strings.TrimSpace(p.Name) == "" {
			return ErrEmptyPetName
		}
		if strings.TrimSpace(p.Breed) == "" {
			return ErrEmptyPetBreed
		}
	}
	return nil
}

// PetNames returns the pet names joined for display.
func (a *Appointment) PetNames() string {
	names := make([]string, 0, len(a.Pets))
	for _, p := range a.Pets {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}


// NormalizeAlimtalk maps the legacy "default" choice onto "reservation".
func NormalizeAlimtalk(choice string) string {
	choice = strings.ToLower(strings.TrimSpace(choice))
	switch choice {
	case "":
		return AlimtalkNone
	case "default":
		return AlimtalkReservation
	}
	return choice
}

// ParseClock parses a zero-padded "HH:MM" string into minutes after midnight.
// PRE: none
// POST: returns minutes in [0, 1440) or ErrInvalidTime
func ParseClock(s string) (int, error) {
	if len(s) != len(clockLayout) {
		return 0, ErrInvalidTime
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock formats minutes after midnight as "HH:MM", wrapping at 24h.
func FormatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format(clockLayout)
}

// AddMinutes shifts an "HH:MM" clock by delta minutes.
// PRE: clock is a valid HH:MM string
func AddMinutes(clock string, delta int) (string, error) {
	m, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	return FormatClock(m + delta), nil
}

// SortByStartTime orders appointments by StartTime.
// Lexical order is chronological because times are zero-padded 24h.
func SortByStartTime(list []Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartTime < list[j].StartTime
	})
}

func isOneOf(v string, valid []string) bool {
	for _, s := range valid {
		if s == v {
			return true
		}
	}
	return false
}
