package projections

import (
	"sort"
	"time"

	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/calendar"
	"groomdesk/internal/domain/staff"
)

// MaxMonthCards is the number of appointment chips a month cell shows before collapsing.
const MaxMonthCards = 3

// AllStaff is the staff filter value that shows every schedulable staff member.
const AllStaff = "all"

// ActionKind says what clicking a cell or card opens.
type ActionKind string

// Action kinds
const (
	ActionCreate ActionKind = "create"
	ActionEdit   ActionKind = "edit"
)

// Drop reasons reported for appointments that could not be placed in the day grid.
const (
	DropUnaligned  = "unaligned"
	DropConflict   = "conflict"
	DropUnassigned = "unassigned"
)

// AppointmentSource is the read side of the appointment cache.
type AppointmentSource interface {
	QueryByDate(date, staffID string) []appointment.Appointment
}

// Action seeds the appointment form opened by a click.
// An empty Date on a create action opens a blank-date form.
type Action struct {
	Kind          ActionKind `json:"kind"`
	Date          string     `json:"date,omitempty"`
	Time          string     `json:"time,omitempty"`
	StaffID       string     `json:"staffId,omitempty"`
	AppointmentID string     `json:"appointmentId,omitempty"`
}

// Card is an appointment placed in the grid.
type Card struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Guardian  string `json:"guardian"`
	Pets      string `json:"pets"`
	Service   string `json:"service"`
	StaffID   string `json:"staffId"`
	StaffName string `json:"staffName"`
	Status    string `json:"status"`
	Span      int    `json:"span"` // day view slots covered, at least 1
	Action    Action `json:"action"`
}

// SlotCell is one 30-minute slot of one staff column.
type SlotCell struct {
	Time   string `json:"time"`
	Card   *Card  `json:"card,omitempty"`
	Action Action `json:"action"`
}

// StaffColumn is a staff member's schedule for the day view.
type StaffColumn struct {
	StaffID   string     `json:"staffId"`
	StaffName string     `json:"staffName"`
	Slots     []SlotCell `json:"slots"`
}

// DayView lays out one date as per-staff columns of time slots.
type DayView struct {
	Date    string        `json:"date"`
	Columns []StaffColumn `json:"columns"`
}

// DayColumn is one day of the week view.
type DayColumn struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	IsToday bool   `json:"isToday"`
	Cards   []Card `json:"cards"`
	Action  Action `json:"action"`
}

// WeekView lays out Sunday through Saturday.
type WeekView struct {
	Start string      `json:"start"`
	End   string      `json:"end"`
	Days  []DayColumn `json:"days"`
}

// MonthCell is one day cell of the month grid.
type MonthCell struct {
	Date    string `json:"date"`
	Day     int    `json:"day"`
	InMonth bool   `json:"inMonth"`
	IsToday bool   `json:"isToday"`
	Cards   []Card `json:"cards"`
	More    int    `json:"more"`
	Action  Action `json:"action"`
}

// MonthView lays out whole weeks covering a month.
type MonthView struct {
	Month string        `json:"month"`
	Weeks [][]MonthCell `json:"weeks"`
}

// Dropped is an appointment that had no place in the rendered grid.
type Dropped struct {
	Card   Card   `json:"card"`
	Reason string `json:"reason"`
}

// View is the render tree for one calendar state. Exactly one of Day, Week, Month is set.
type View struct {
	Granularity calendar.Granularity `json:"granularity"`
	Focal       string               `json:"focal"`
	Title       string               `json:"title"`
	StaffFilter string               `json:"staffFilter"`
	Staff       []staff.Staff        `json:"staff"`
	Day         *DayView             `json:"day,omitempty"`
	Week        *WeekView            `json:"week,omitempty"`
	Month       *MonthView           `json:"month,omitempty"`
	Dropped     []Dropped            `json:"dropped,omitempty"`
	Notice      string               `json:"notice,omitempty"`
	Loading     bool                 `json:"loading"`
}

// BuildViewInput carries everything a layout needs.
type BuildViewInput struct {
	State       calendar.ViewState
	Staff       []staff.Staff
	StaffFilter string // staff ID or AllStaff
	Source      AppointmentSource
	Today       time.Time
}

// BuildView lays out the calendar for the input's granularity.
// PRE: input.Source is non-nil
// POST: returns a View with exactly one layout set
func BuildView(input BuildViewInput) View {
	if input.StaffFilter == "" {
		input.StaffFilter = AllStaff
	}
	switch input.State.Granularity {
	case calendar.GranularityWeek:
		return BuildWeekView(input)
	case calendar.GranularityMonth:
		return BuildMonthView(input)
	default:
		return BuildDayView(input)
	}
}

func newView(input BuildViewInput, g calendar.Granularity, title string) View {
	filter := input.StaffFilter
	if filter == "" {
		filter = AllStaff
	}
	return View{
		Granularity: g,
		Focal:       calendar.FormatDate(input.State.Focal),
		Title:       title,
		StaffFilter: filter,
		Staff:       staff.Schedulable(input.Staff),
	}
}

// BuildDayView renders one column per schedulable staff member (or only the filtered one),
// each holding the 09:00–19:00 half-hour slots. An appointment is placed only in the slot
// equal to its start time; unaligned, conflicting or unassigned records are reported in Dropped.
func BuildDayView(input BuildViewInput) View {
	date := calendar.FormatDate(input.State.Focal)
	v := newView(input, calendar.GranularityDay, input.State.Focal.Format("2006-01-02 (Mon)"))

	columns := dayColumns(input.Staff, v.StaffFilter)
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c.StaffID] = true
	}

	records := input.Source.QueryByDate(date, v.StaffFilter)
	sortForPlacement(records)

	placed := make(map[string]map[string]Card, len(columns))
	for _, a := range records {
		card := newCard(a, input.Staff)
		switch {
		case !known[a.StaffID]:
			v.Dropped = append(v.Dropped, Dropped{Card: card, Reason: DropUnassigned})
			continue
		case !calendar.SlotAligned(a.StartTime):
			v.Dropped = append(v.Dropped, Dropped{Card: card, Reason: DropUnaligned})
			continue
		}
		bySlot := placed[a.StaffID]
		if bySlot == nil {
			bySlot = make(map[string]Card)
			placed[a.StaffID] = bySlot
		}
		if _, taken := bySlot[a.StartTime]; taken {
			v.Dropped = append(v.Dropped, Dropped{Card: card, Reason: DropConflict})
			continue
		}
		bySlot[a.StartTime] = card
	}

	slots := calendar.Slots()
	for i := range columns {
		col := &columns[i]
		col.Slots = make([]SlotCell, 0, len(slots))
		for _, t := range slots {
			cell := SlotCell{
				Time:   t,
				Action: Action{Kind: ActionCreate, Date: date, Time: t, StaffID: col.StaffID},
			}
			if card, ok := placed[col.StaffID][t]; ok {
				c := card
				cell.Card = &c
				cell.Action = c.Action
			}
			col.Slots = append(col.Slots, cell)
		}
	}
	v.Day = &DayView{Date: date, Columns: columns}
	return v
}

// BuildWeekView renders seven day columns, Sunday through Saturday of the focal week.
func BuildWeekView(input BuildViewInput) View {
	days := calendar.WeekDays(input.State.Focal)
	start, end := calendar.FormatDate(days[0]), calendar.FormatDate(days[6])
	v := newView(input, calendar.GranularityWeek, start+" – "+end)
	today := calendar.FormatDate(input.Today)

	week := &WeekView{Start: start, End: end, Days: make([]DayColumn, 0, 7)}
	for _, d := range days {
		date := calendar.FormatDate(d)
		records := input.Source.QueryByDate(date, v.StaffFilter)
		appointment.SortByStartTime(records)
		week.Days = append(week.Days, DayColumn{
			Date:    date,
			Weekday: d.Weekday().String()[:3],
			IsToday: date == today,
			Cards:   cards(records, input.Staff),
			Action:  Action{Kind: ActionCreate, Date: date},
		})
	}
	v.Week = week
	return v
}

// BuildMonthView renders ceil((offset+daysInMonth)/7) weeks of seven cells.
// Cells outside the focal month are muted and open a blank-date form.
func BuildMonthView(input BuildViewInput) View {
	grid := calendar.NewMonthGrid(input.State.Focal)
	month := calendar.MonthPrefix(input.State.Focal)
	v := newView(input, calendar.GranularityMonth, input.State.Focal.Format("January 2006"))
	today := calendar.FormatDate(input.Today)

	mv := &MonthView{Month: month, Weeks: make([][]MonthCell, 0, grid.Weeks)}
	d := grid.Start
	for w := 0; w < grid.Weeks; w++ {
		row := make([]MonthCell, 0, 7)
		for i := 0; i < 7; i++ {
			date := calendar.FormatDate(d)
			inMonth := calendar.MonthPrefix(d) == month
			records := input.Source.QueryByDate(date, v.StaffFilter)
			appointment.SortByStartTime(records)

			cell := MonthCell{
				Date:    date,
				Day:     d.Day(),
				InMonth: inMonth,
				IsToday: date == today,
				Action:  Action{Kind: ActionCreate, Date: date},
			}
			if !inMonth {
				cell.Action = Action{Kind: ActionCreate}
			}
			all := cards(records, input.Staff)
			if len(all) > MaxMonthCards {
				cell.More = len(all) - MaxMonthCards
				all = all[:MaxMonthCards]
			}
			cell.Cards = all
			row = append(row, cell)
			d = d.AddDate(0, 0, 1)
		}
		mv.Weeks = append(mv.Weeks, row)
	}
	v.Month = mv
	return v
}

func dayColumns(all []staff.Staff, filter string) []StaffColumn {
	var cols []StaffColumn
	for _, s := range staff.Schedulable(all) {
		if filter != AllStaff && s.ID != filter {
			continue
		}
		cols = append(cols, StaffColumn{StaffID: s.ID, StaffName: s.Name})
	}
	if len(cols) == 0 && filter != AllStaff {
		// Filtered staff not in the list (e.g. list not loaded yet): still show its column.
		cols = append(cols, StaffColumn{StaffID: filter, StaffName: filter})
	}
	return cols
}

// sortForPlacement orders by start time then ID so conflicts resolve the same way every render.
func sortForPlacement(list []appointment.Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].StartTime != list[j].StartTime {
			return list[i].StartTime < list[j].StartTime
		}
		return list[i].ID < list[j].ID
	})
}

func cards(records []appointment.Appointment, staffList []staff.Staff) []Card {
	out := make([]Card, 0, len(records))
	for _, a := range records {
		out = append(out, newCard(a, staffList))
	}
	return out
}

func newCard(a appointment.Appointment, staffList []staff.Staff) Card {
	name := a.StaffName
	if name == "" {
		name = staff.NameByID(staffList, a.StaffID)
	}
	return Card{
		ID:        a.ID,
		Date:      a.Date,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Guardian:  a.Guardian.Name,
		Pets:      a.PetNames(),
		Service:   a.Service,
		StaffID:   a.StaffID,
		StaffName: name,
		Status:    a.Status,
		Span:      slotSpan(a.StartTime, a.EndTime),
		Action:    Action{Kind: ActionEdit, Date: a.Date, Time: a.StartTime, StaffID: a.StaffID, AppointmentID: a.ID},
	}
}

func slotSpan(start, end string) int {
	s, err1 := appointment.ParseClock(start)
	e, err2 := appointment.ParseClock(end)
	if err1 != nil || err2 != nil || e <= s {
		return 1
	}
	return (e - s + calendar.SlotMinutes - 1) / calendar.SlotMinutes
}
