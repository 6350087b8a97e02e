package calendarsession

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/calendar"
	"groomdesk/internal/domain/staff"
)

type fakeFetcher struct {
	mu        sync.Mutex
	byMonth   map[string][]appointment.Appointment
	byDate    map[string][]appointment.Appointment
	failMonth map[string]bool
	staffErr  error
	calls     []string
	block     chan struct{}
	started   chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		byMonth:   make(map[string][]appointment.Appointment),
		byDate:    make(map[string][]appointment.Appointment),
		failMonth: make(map[string]bool),
	}
}

func (f *fakeFetcher) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeFetcher) ListAppointmentsByDate(_ context.Context, date, _ string) ([]appointment.Appointment, error) {
	f.record("date:" + date)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byDate[date], nil
}

func (f *fakeFetcher) ListAppointmentsByMonth(_ context.Context, month, _ string) ([]appointment.Appointment, error) {
	f.record("month:" + month)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMonth[month] {
		return nil, errors.New("boom")
	}
	return f.byMonth[month], nil
}

func (f *fakeFetcher) ListStaff(context.Context) ([]staff.Staff, error) {
	if f.staffErr != nil {
		return nil, f.staffErr
	}
	return []staff.Staff{
		{ID: "s1", Name: "Jisoo", Role: staff.RoleStaff},
		{ID: "s2", Name: "Hana", Role: staff.RoleStaff},
	}, nil
}

func (f *fakeFetcher) fetches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func clock(s string) func() time.Time {
	return func() time.Time {
		d, _ := calendar.ParseDate(s)
		return d.Add(10 * time.Hour)
	}
}

func appt(id, date, start string) appointment.Appointment {
	return appointment.Appointment{
		ID: id, Date: date, StartTime: start, EndTime: "18:00", StaffID: "s1",
		Status: appointment.StatusReserved, Guardian: appointment.Guardian{Name: "Kim", Phone: "01012345678"},
		Pets: []appointment.Pet{{Name: "Bori"}},
	}
}

func TestSession_RenderDayFetchesDate(t *testing.T) {
	f := newFakeFetcher()
	f.byDate["2024-03-01"] = []appointment.Appointment{appt("a", "2024-03-01", "10:00")}
	s := New(f, clock("2024-03-01"))

	v := s.Render(context.Background())

	require.NotNil(t, v.Day)
	assert.Equal(t, []string{"date:2024-03-01"}, f.fetches())
	assert.Empty(t, v.Notice)
	assert.False(t, v.Loading)
	require.Len(t, v.Day.Columns, 2)
	assert.NotNil(t, v.Day.Columns[0].Slots[2].Card)
}

func TestSession_WeekSpanningTwoMonthsFetchesBoth(t *testing.T) {
	f := newFakeFetcher()
	f.byMonth["2024-02"] = []appointment.Appointment{appt("feb", "2024-02-29", "10:00")}
	f.byMonth["2024-03"] = []appointment.Appointment{appt("mar", "2024-03-02", "10:00")}
	s := New(f, clock("2024-02-29"))

	v, err := s.SwitchGranularity(context.Background(), calendar.GranularityWeek)
	require.NoError(t, err)

	assert.Equal(t, []string{"month:2024-02", "month:2024-03"}, f.fetches())
	require.NotNil(t, v.Week)
	assert.Equal(t, "2024-02-25", v.Week.Start)
	assert.Equal(t, "2024-03-02", v.Week.End)
	assert.Equal(t, "feb", v.Week.Days[4].Cards[0].ID)
	assert.Equal(t, "mar", v.Week.Days[6].Cards[0].ID)
}

func TestSession_PartialFailureKeepsSuccessfulMonth(t *testing.T) {
	f := newFakeFetcher()
	f.byMonth["2024-03"] = []appointment.Appointment{appt("mar", "2024-03-02", "10:00")}
	f.failMonth["2024-02"] = true
	s := New(f, clock("2024-02-29"))

	v, err := s.SwitchGranularity(context.Background(), calendar.GranularityWeek)
	require.NoError(t, err)

	assert.Equal(t, NoticeAppointmentsFailed, v.Notice)
	assert.Equal(t, "mar", v.Week.Days[6].Cards[0].ID)
	assert.Equal(t, 1, s.Cache().Len())
}

func TestSession_FailedFetchKeepsPriorCache(t *testing.T) {
	f := newFakeFetcher()
	f.byMonth["2024-03"] = []appointment.Appointment{appt("a", "2024-03-05", "10:00")}
	s := New(f, clock("2024-03-05"))
	_, err := s.SwitchGranularity(context.Background(), calendar.GranularityMonth)
	require.NoError(t, err)

	f.mu.Lock()
	f.failMonth["2024-03"] = true
	f.mu.Unlock()
	v := s.Render(context.Background())

	assert.Equal(t, NoticeAppointmentsFailed, v.Notice)
	assert.Equal(t, 1, s.Cache().Len())
}

func TestSession_StaffFailureStillRenders(t *testing.T) {
	f := newFakeFetcher()
	f.staffErr = errors.New("down")
	s := New(f, clock("2024-03-01"))

	v := s.Render(context.Background())

	assert.Equal(t, NoticeStaffFailed, v.Notice)
	require.NotNil(t, v.Day)
	assert.Empty(t, v.Day.Columns)
}

func TestSession_AdvanceAndToday(t *testing.T) {
	f := newFakeFetcher()
	s := New(f, clock("2024-01-31"))
	ctx := context.Background()

	_, err := s.SwitchGranularity(ctx, calendar.GranularityMonth)
	require.NoError(t, err)
	v, err := s.Advance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", v.Focal)

	v, err = s.JumpToToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", v.Focal)
	assert.Equal(t, calendar.GranularityMonth, v.Granularity)

	_, err = s.Advance(ctx, 3)
	assert.ErrorIs(t, err, calendar.ErrInvalidDirection)
	assert.Equal(t, "2024-01-31", calendar.FormatDate(s.State().Focal))
}

func TestSession_SetStaffFilter(t *testing.T) {
	f := newFakeFetcher()
	s := New(f, clock("2024-03-01"))

	v, err := s.SetStaffFilter(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", v.StaffFilter)
	require.Len(t, v.Day.Columns, 1)

	v, err = s.SetStaffFilter(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "all", v.StaffFilter)
}

func TestSession_ApplyComposesOneTransition(t *testing.T) {
	f := newFakeFetcher()
	s := New(f, clock("2024-01-31"))

	v, err := s.Apply(context.Background(), Move{Granularity: calendar.GranularityMonth, StaffID: "s2", Dir: 1})
	require.NoError(t, err)
	assert.Equal(t, calendar.GranularityMonth, v.Granularity)
	assert.Equal(t, "2024-02-29", v.Focal)
	assert.Equal(t, "s2", v.StaffFilter)
	assert.Equal(t, []string{"month:2024-02"}, f.fetches(), "one fetch for the composed move")
}

func TestSession_ApplyRejectsWholeMove(t *testing.T) {
	f := newFakeFetcher()
	s := New(f, clock("2024-03-01"))

	_, err := s.Apply(context.Background(), Move{Granularity: calendar.GranularityWeek, StaffID: "s2", Dir: 3})
	assert.ErrorIs(t, err, calendar.ErrInvalidDirection)
	assert.Equal(t, calendar.GranularityDay, s.State().Granularity)
	assert.Equal(t, "all", s.StaffFilter())
	assert.Empty(t, f.fetches())
}

func TestSession_NavigationWhileLoadingIsBusy(t *testing.T) {
	f := newFakeFetcher()
	f.block = make(chan struct{})
	f.started = make(chan struct{}, 1)
	s := New(f, clock("2024-03-01"))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Advance(ctx, 1)
		done <- err
	}()
	<-f.started

	assert.True(t, s.IsLoading())
	_, err := s.Advance(ctx, 1)
	assert.ErrorIs(t, err, ErrBusy)
	v := s.Render(ctx)
	assert.True(t, v.Loading)

	close(f.block)
	require.NoError(t, <-done)
	assert.False(t, s.IsLoading())
	assert.Equal(t, "2024-03-02", calendar.FormatDate(s.State().Focal))
}

func TestSession_RefreshUsesGranularityRange(t *testing.T) {
	f := newFakeFetcher()
	s := New(f, clock("2024-03-01"))
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx, "2024-03-09"))
	_, err := s.SwitchGranularity(ctx, calendar.GranularityWeek)
	require.NoError(t, err)
	require.NoError(t, s.Refresh(ctx, "2024-04-02"))

	assert.Contains(t, f.fetches(), "date:2024-03-09")
	assert.Contains(t, f.fetches(), "month:2024-04")
	assert.Error(t, s.Refresh(ctx, "bad"))
}
