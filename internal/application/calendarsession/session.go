// Package calendarsession is the per-user calendar context: the focal date and
// granularity, the appointment cache, the staff list, and the loading guard that
// serializes calendar reloads.
package calendarsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"groomdesk/internal/application/apptcache"
	"groomdesk/internal/application/projections"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/calendar"
	"groomdesk/internal/domain/staff"
)

// ErrBusy is returned when navigation arrives while a calendar load is in flight.
var ErrBusy = errors.New("calendar is loading")

// Notices shown on a view when a fetch fails. The view still renders from the cache.
const (
	NoticeAppointmentsFailed = "Could not load appointments. Showing the last saved schedule."
	NoticeStaffFailed        = "Could not load the staff list."
)

// Fetcher is the remote API surface the calendar reads from.
type Fetcher interface {
	ListAppointmentsByDate(ctx context.Context, date, staffID string) ([]appointment.Appointment, error)
	ListAppointmentsByMonth(ctx context.Context, month, staffID string) ([]appointment.Appointment, error)
	ListStaff(ctx context.Context) ([]staff.Staff, error)
}

// Session is one dashboard user's calendar state.
// INVARIANT: state and staffFilter change only while the loading guard is held.
type Session struct {
	fetcher Fetcher
	now     func() time.Time
	cache   *apptcache.Cache

	lookupMu   sync.Mutex
	lookups    map[string]*Sequencer
	lookupKeys []string

	loading atomic.Bool

	mu          sync.RWMutex
	state       calendar.ViewState
	staffFilter string
	staff       []staff.Staff
	staffLoaded bool
}

// New creates a session focused on today in day view.
// PRE: fetcher is non-nil
// POST: cache is empty; staff list loads on first render
func New(fetcher Fetcher, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		fetcher:     fetcher,
		now:         now,
		cache:       apptcache.New(),
		lookups:     make(map[string]*Sequencer),
		state:       calendar.NewViewState(now()),
		staffFilter: projections.AllStaff,
	}
}

// Cache exposes the session's appointment cache (read side for form seeding).
func (s *Session) Cache() *apptcache.Cache {
	return s.cache
}

// MaxLookupPages caps how many page loads keep their own lookup sequencer.
const MaxLookupPages = 16

// Lookups returns the customer lookup sequencer for one page load. Each page
// (a reload, a second tab) counts its keystrokes from zero, so tokens are
// only comparable within the same page.
// POST: the oldest page's sequencer is dropped once MaxLookupPages is exceeded
func (s *Session) Lookups(page string) *Sequencer {
	s.lookupMu.Lock()
	defer s.lookupMu.Unlock()
	if seq, ok := s.lookups[page]; ok {
		return seq
	}
	seq := NewSequencer()
	s.lookups[page] = seq
	s.lookupKeys = append(s.lookupKeys, page)
	if len(s.lookupKeys) > MaxLookupPages {
		delete(s.lookups, s.lookupKeys[0])
		s.lookupKeys = s.lookupKeys[1:]
	}
	return seq
}

// State returns the current focal date and granularity.
func (s *Session) State() calendar.ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// StaffFilter returns the active staff filter ("all" or a staff ID).
func (s *Session) StaffFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staffFilter
}

// Staff returns the cached staff list, loading it once if needed.
// POST: on fetch failure returns the (possibly empty) cached list and the error
func (s *Session) Staff(ctx context.Context) ([]staff.Staff, error) {
	s.mu.RLock()
	if s.staffLoaded {
		list := s.staff
		s.mu.RUnlock()
		return list, nil
	}
	s.mu.RUnlock()

	list, err := s.fetcher.ListStaff(ctx)
	if err != nil {
		slog.Warn("calendar_staff_load_failed", "error", err)
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.staff, err
	}
	s.mu.Lock()
	s.staff = list
	s.staffLoaded = true
	s.mu.Unlock()
	return list, nil
}

// IsLoading reports whether a calendar load is in flight.
func (s *Session) IsLoading() bool {
	return s.loading.Load()
}

// Move is one composed toolbar change. Zero fields keep the current value.
// Granularity and StaffID apply before the date move.
type Move struct {
	Granularity calendar.Granularity
	StaffID     string
	Dir         int  // +1 or -1; 0 keeps the focal date
	Today       bool // jump to today; overrides Dir
}

// Apply performs every change in m as one guarded transition with a single fetch.
// POST: ErrBusy or a validation error leaves state and filter unchanged
func (s *Session) Apply(ctx context.Context, m Move) (projections.View, error) {
	return s.navigate(ctx, func(v calendar.ViewState, filter string) (calendar.ViewState, string, error) {
		if m.Granularity != "" {
			g, err := calendar.ParseGranularity(string(m.Granularity))
			if err != nil {
				return v, filter, err
			}
			v.Granularity = g
		}
		if m.StaffID != "" {
			filter = m.StaffID
		}
		switch {
		case m.Today:
			v.Focal = calendar.DateOnly(s.now())
		case m.Dir != 0:
			next, err := v.Advance(m.Dir)
			if err != nil {
				return v, filter, err
			}
			v = next
		}
		return v, filter, nil
	})
}

// Advance moves the focal date one unit (dir = +1 or -1) and re-renders.
// PRE: dir is +1 or -1
// POST: ErrBusy and unchanged state if a load is in flight
func (s *Session) Advance(ctx context.Context, dir int) (projections.View, error) {
	if dir == 0 {
		return projections.View{}, calendar.ErrInvalidDirection
	}
	return s.Apply(ctx, Move{Dir: dir})
}

// SwitchGranularity changes the view mode without moving the focal date.
func (s *Session) SwitchGranularity(ctx context.Context, g calendar.Granularity) (projections.View, error) {
	if g == "" {
		return projections.View{}, calendar.ErrInvalidGranularity
	}
	return s.Apply(ctx, Move{Granularity: g})
}

// JumpToToday sets the focal date to the current date, keeping the granularity.
func (s *Session) JumpToToday(ctx context.Context) (projections.View, error) {
	return s.Apply(ctx, Move{Today: true})
}

// SetStaffFilter limits the calendar to one staff member ("all" shows everyone).
func (s *Session) SetStaffFilter(ctx context.Context, staffID string) (projections.View, error) {
	if staffID == "" {
		staffID = projections.AllStaff
	}
	return s.Apply(ctx, Move{StaffID: staffID})
}

// Render loads the current range and lays out the view.
// If another load is in flight, the view is built from the cache and marked Loading.
func (s *Session) Render(ctx context.Context) projections.View {
	if !s.loading.CompareAndSwap(false, true) {
		v := s.build(ctx)
		v.Loading = true
		return v
	}
	defer s.loading.Store(false)
	return s.load(ctx)
}

type transition func(calendar.ViewState, string) (calendar.ViewState, string, error)

func (s *Session) navigate(ctx context.Context, fn transition) (projections.View, error) {
	if !s.loading.CompareAndSwap(false, true) {
		slog.Debug("calendar_navigation_suppressed")
		return projections.View{}, ErrBusy
	}
	defer s.loading.Store(false)

	s.mu.Lock()
	next, filter, err := fn(s.state, s.staffFilter)
	if err != nil {
		s.mu.Unlock()
		return projections.View{}, err
	}
	s.state = next
	s.staffFilter = filter
	s.mu.Unlock()

	return s.load(ctx), nil
}

// load fetches the ranges the current state needs, merges them, and builds the view.
// PRE: loading guard is held
func (s *Session) load(ctx context.Context) projections.View {
	state := s.State()
	var notice string
	if _, err := s.Staff(ctx); err != nil {
		notice = NoticeStaffFailed
	}
	if err := s.fetchRanges(ctx, state); err != nil {
		notice = NoticeAppointmentsFailed
	}
	v := s.build(ctx)
	v.Notice = notice
	return v
}

func (s *Session) build(ctx context.Context) projections.View {
	s.mu.RLock()
	state, filter, list := s.state, s.staffFilter, s.staff
	s.mu.RUnlock()
	return projections.BuildView(projections.BuildViewInput{
		State:       state,
		Staff:       list,
		StaffFilter: filter,
		Source:      s.cache,
		Today:       s.now(),
	})
}

// fetchRanges loads every range the state shows. A week spanning two months fetches both.
// Successful ranges are merged even if another range failed.
func (s *Session) fetchRanges(ctx context.Context, state calendar.ViewState) error {
	switch state.Granularity {
	case calendar.GranularityDay:
		return s.fetchDate(ctx, calendar.FormatDate(state.Focal))
	case calendar.GranularityWeek:
		days := calendar.WeekDays(state.Focal)
		return s.fetchMonths(ctx, calendar.MonthsCovering(days[0], days[6]))
	default:
		return s.fetchMonths(ctx, []string{calendar.MonthPrefix(state.Focal)})
	}
}

func (s *Session) fetchDate(ctx context.Context, date string) error {
	records, err := s.fetcher.ListAppointmentsByDate(ctx, date, "")
	if err != nil {
		slog.Warn("calendar_fetch_failed", "range", date, "error", err)
		return err
	}
	return s.cache.MergeRange(records, date)
}

func (s *Session) fetchMonths(ctx context.Context, months []string) error {
	results := make([][]appointment.Appointment, len(months))
	errs := make([]error, len(months))
	var g errgroup.Group
	for i, m := range months {
		g.Go(func() error {
			results[i], errs[i] = s.fetcher.ListAppointmentsByMonth(ctx, m, "")
			return errs[i]
		})
	}
	firstErr := g.Wait()

	for i, m := range months {
		if errs[i] != nil {
			slog.Warn("calendar_fetch_failed", "range", m, "error", errs[i])
			continue
		}
		if err := s.cache.MergeRange(results[i], m); err != nil {
			return err
		}
	}
	return firstErr
}

// Refresh re-fetches the range that holds date under the current granularity.
// Called after a successful write; the cache is never updated optimistically.
func (s *Session) Refresh(ctx context.Context, date string) error {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return err
	}
	if s.State().Granularity == calendar.GranularityDay {
		return s.fetchDate(ctx, calendar.FormatDate(d))
	}
	return s.fetchMonths(ctx, []string{calendar.MonthPrefix(d)})
}
