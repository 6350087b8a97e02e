package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/adapters/http/middleware"
	"groomdesk/internal/application/calendarsession"
	"groomdesk/internal/application/listutil"
	"groomdesk/internal/application/orchestrators"
	"groomdesk/internal/application/projections"
	"groomdesk/internal/domain/account"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/calendar"
)

//go:embed templates/*.html
var templateFS embed.FS

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// errorBody is the JSON shape of every failed API response.
type errorBody struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// writeError maps an orchestrator or API error onto a status and a user-facing message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *orchestrators.ValidationError
	var ierr *orchestrators.ImportCustomersValidationError
	var apiErr *api.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "please correct the highlighted fields", Fields: verr.Fields})
	case errors.As(err, &ierr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ierr.Message})
	case errors.Is(err, api.ErrUnauthorized):
		endSession(w, r)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "your session has expired, please sign in again", Redirect: "/login"})
	case errors.Is(err, orchestrators.ErrAppointmentNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, api.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: api.UserMessage(err)})
	case errors.Is(err, calendarsession.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, orchestrators.ErrPetChoiceOutOfRange),
		errors.Is(err, calendar.ErrInvalidDirection),
		errors.Is(err, calendar.ErrInvalidGranularity),
		errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, projections.ErrInvalidRange):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{Error: api.UserMessage(err)})
	default:
		slog.Error("request_failed", "path", r.URL.Path, "request_id", middleware.RequestIDFromContext(r.Context()), "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: api.FallbackMessage})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// requireSession returns the signed-in session.
// Pages redirect to /login and API requests get 401 when nobody is signed in.
func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		if middleware.IsAPIRequest(r) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated", Redirect: "/login"})
		} else {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		}
		return middleware.Session{}, false
	}
	return sess, true
}

// requireOwner checks the session for the owner role.
func requireOwner(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return sess, false
	}
	if sess.Role != account.RoleOwner {
		slog.Warn("auth_denied", "path", r.URL.Path, "user_id", sess.UserID, "role", sess.Role, "required", account.RoleOwner)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// userClient returns an API client that authenticates as the session's user.
func userClient(sess middleware.Session) *api.Client {
	return deps.API.WithToken(sess.APIToken)
}

// calendarFor returns the session's calendar, creating it on first use.
func calendarFor(sess middleware.Session) *calendarsession.Session {
	return calendars.Get(sess.Token, func() *calendarsession.Session {
		return calendarsession.New(userClient(sess), timeNow)
	})
}

// endSession drops the dashboard session after the API rejected its credential.
func endSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		return
	}
	slog.Info("auth_event", "event", "credential_rejected", "user_id", sess.UserID)
	sessions.Delete(sess.Token)
	calendars.Remove(sess.Token)
	middleware.ClearSessionCookie(w)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatWon renders an amount with thousands separators.
func formatWon(amount int) string {
	s := strconv.Itoa(amount)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String() + "원"
	}
	return b.String() + "원"
}

var statusLabels = map[string]string{
	appointment.StatusReserved:  "Reserved",
	appointment.StatusCompleted: "Completed",
	appointment.StatusCancelled: "Cancelled",
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data map[string]any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"isLoggedIn":     func() bool { return ok },
		"currentName":    func() string { return sess.Name },
		"currentEmail":   func() string { return sess.Email },
		"currentShop":    func() string { return sess.ShopName },
		"isOwner":        func() bool { return ok && sess.Role == account.RoleOwner },
		"csrfToken":      func() string { return csrf.Token(r) },
		"csrfField":      func() template.HTML { return csrf.TemplateField(r) },
		"renderMarkdown": renderMarkdown,
		"formatWon":      formatWon,
		"statusLabel":    func(s string) string { return statusLabels[s] },
		"add":            func(a, b int) int { return a + b },
		"sub":            func(a, b int) int { return a - b },
		"toJSON": func(v any) template.JS {
			data, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(data)
		},
		"pageNumbers": func(p api.Pagination) []int {
			return listutil.NewPageInfo(p.Page, p.Limit, p.Total).PageNumbers()
		},
		"pageQuery": func(page int, search string) template.URL {
			q := fmt.Sprintf("page=%d", page)
			if search != "" {
				q += "&q=" + template.URLQueryEscaper(search)
			}
			return template.URL(q)
		},
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("parse %s: %w", templateName, err))
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// handleRoot sends signed-in users to the calendar and everyone else to /login.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
