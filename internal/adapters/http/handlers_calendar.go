package web

import (
	"context"
	"net/http"
	"strings"

	"groomdesk/internal/application/calendarsession"
	"groomdesk/internal/application/projections"
	"groomdesk/internal/domain/calendar"
)

// navigateRequest is one toolbar interaction. Any combination may be set;
// view and staff apply before the prev/next/today move.
type navigateRequest struct {
	Action string `json:"action"` // prev | next | today
	View   string `json:"view"`   // day | week | month
	Staff  string `json:"staff"`  // staff ID or "all"
}

// handleCalendarPage renders the dashboard calendar.
func handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	view := calendarFor(sess).Render(r.Context())
	renderTemplate(w, r, "calendar.html", map[string]any{
		"View": view,
	})
}

// handleCalendar handles GET /api/calendar, returning the current render tree.
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, calendarFor(sess).Render(r.Context()))
}

// handleCalendarNavigate handles POST /api/calendar/navigate.
// A request arriving while the calendar is loading gets 409 and leaves the view unchanged.
func handleCalendarNavigate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	cal := calendarFor(sess)
	if cal.IsLoading() {
		writeError(w, r, calendarsession.ErrBusy)
		return
	}

	var req navigateRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := strictDecode(r, &req); err != nil {
			badRequest(w, "invalid JSON")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			badRequest(w, "invalid form submission")
			return
		}
		req = navigateRequest{Action: r.FormValue("action"), View: r.FormValue("view"), Staff: r.FormValue("staff")}
	}

	view, err := navigate(r.Context(), cal, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") && isHTMLRequest(r) {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// navigate folds the request into one calendarsession.Move so a busy or invalid
// request changes nothing.
func navigate(ctx context.Context, cal *calendarsession.Session, req navigateRequest) (projections.View, error) {
	var m calendarsession.Move
	if req.View != "" {
		g, err := calendar.ParseGranularity(req.View)
		if err != nil {
			return projections.View{}, err
		}
		m.Granularity = g
	}
	m.StaffID = strings.TrimSpace(req.Staff)
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "":
	case "prev":
		m.Dir = -1
	case "next":
		m.Dir = 1
	case "today":
		m.Today = true
	default:
		return projections.View{}, calendar.ErrInvalidDirection
	}
	if m == (calendarsession.Move{}) {
		return cal.Render(ctx), nil
	}
	return cal.Apply(ctx, m)
}
