package calendar

import (
	"errors"
	"strings"
	"time"
)

// Granularity constants.
const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Date and clock layouts shared by the calendar engine.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	ClockLayout = "15:04"
)

// Day view operating hours.
const (
	OpenHour    = 9
	CloseHour   = 19
	SlotMinutes = 30
)

// Domain errors
var (
	ErrInvalidGranularity = errors.New("granularity must be one of: day, week, month")
	ErrInvalidDirection   = errors.New("direction must be +1 or -1")
	ErrInvalidDate        = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidPrefix      = errors.New("range prefix must be YYYY-MM or YYYY-MM-DD")
)

// Granularity is the calendar display mode.
type Granularity string

// ParseGranularity converts a query value into a Granularity.
// PRE: none
// POST: returns the granularity or ErrInvalidGranularity
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	}
	return "", ErrInvalidGranularity
}

// ViewState is the focal date plus the active granularity.
// INVARIANT: Focal carries no time-of-day component (midnight UTC).
type ViewState struct {
	Focal       time.Time
	Granularity Granularity
}

// NewViewState returns a day-granularity state focused on the date of now.
// PRE: none
// POST: Focal is truncated to the calendar day
func NewViewState(now time.Time) ViewState {
	return ViewState{Focal: DateOnly(now), Granularity: GranularityDay}
}

// Advance moves the focal date by one unit of the active granularity.
// Month moves keep the day of month, clamped to the last day of the target month.
// PRE: dir is +1 or -1
// POST: returns the new state; the receiver is unchanged
func (v ViewState) Advance(dir int) (ViewState, error) {
	if dir != 1 && dir != -1 {
		return v, ErrInvalidDirection
	}
	switch v.Granularity {
	case GranularityDay:
		v.Focal = v.Focal.AddDate(0, 0, dir)
	case GranularityWeek:
		v.Focal = v.Focal.AddDate(0, 0, 7*dir)
	case GranularityMonth:
		v.Focal = AddMonths(v.Focal, dir)
	default:
		return v, ErrInvalidGranularity
	}
	return v, nil
}

// AddMonths adds n calendar months, clamping the day to the target month's length.
// time.AddDate normalizes Jan 31 + 1 month to Mar 2, which is not what a calendar wants.
func AddMonths(d time.Time, n int) time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day()
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOnly strips the clock and location, keeping the wall-clock calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
// PRE: none
// POST: returns a midnight UTC date or ErrInvalidDate
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FormatDate formats a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MonthPrefix returns the YYYY-MM range prefix for d.
func MonthPrefix(d time.Time) string {
	return d.Format(MonthLayout)
}

// ValidatePrefix checks that p is a day ("YYYY-MM-DD") or month ("YYYY-MM") prefix.
func ValidatePrefix(p string) error {
	switch len(p) {
	case len(DateLayout):
		if _, err := time.Parse(DateLayout, p); err == nil {
			return nil
		}
	case len(MonthLayout):
		if _, err := time.Parse(MonthLayout, p); err == nil {
			return nil
		}
	}
	return ErrInvalidPrefix
}

// WeekStart returns the Sunday on or before d.
func WeekStart(d time.Time) time.Time {
	d = DateOnly(d)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeekDays returns Sunday through Saturday of the week containing d.
// POST: len(result) == 7, result[0] is a Sunday
func WeekDays(d time.Time) []time.Time {
	start := WeekStart(d)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthsCovering returns the distinct YYYY-MM prefixes touched by [from, to], in order.
// PRE: !to.Before(from)
func MonthsCovering(from, to time.Time) []string {
	var months []string
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		months = append(months, MonthPrefix(cur))
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// MonthGrid describes the whole-week grid that covers a month.
type MonthGrid struct {
	Start       time.Time // Sunday on or before the 1st
	LeadingDays int       // days shown from the previous month
	DaysInMonth int
	Weeks       int
}

// Cells returns the total number of day cells in the grid.
func (g MonthGrid) Cells() int {
	return g.Weeks * 7
}

// NewMonthGrid computes the grid for the month containing d.
// POST: Weeks == ceil((LeadingDays + DaysInMonth) / 7)
func NewMonthGrid(d time.Time) MonthGrid {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := int(first.Weekday())
	days := DaysInMonth(first.Year(), first.Month())
	return MonthGrid{
		Start:       first.AddDate(0, 0, -offset),
		LeadingDays: offset,
		DaysInMonth: days,
		Weeks:       (offset + days + 6) / 7,
	}
}

// Slots returns the start times of the day view's 30-minute slots, "09:00" through "18:30".
func Slots() []string {
	n := (CloseHour - OpenHour) * 60 / SlotMinutes
	slots := make([]string, 0, n)
	for i := 0; i < n; i++ {
		m := OpenHour*60 + i*SlotMinutes
		slots = append(slots, formatMinutes(m))
	}
	return slots
}

// SlotAligned reports whether t ("HH:MM") is the start of a rendered day-view slot.
// Appointments whose start is not slot-aligned are dropped from the day view.
func SlotAligned(t string) bool {
	c, err := time.Parse(ClockLayout, t)
	if err != nil || len(t) != len(ClockLayout) {
		return false
	}
	m := c.Hour()*60 + c.Minute()
	if m < OpenHour*60 || m >= CloseHour*60 {
		return false
	}
	return (m-OpenHour*60)%SlotMinutes == 0
}

func formatMinutes(m int) string {
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format(ClockLayout)
}
